// Package logging provides the logger handle threaded through the pipeline.
// There is no package-global logger; callers construct one at the top of a
// run and pass it down.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Level controls logger verbosity.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// Config holds the logger settings.
type Config struct {
	Level  Level
	Output io.Writer // defaults to stderr
}

// Logger is a leveled, printf-style logger backed by zerolog.
type Logger struct {
	logger zerolog.Logger
	level  Level
}

func NewLogger(c Config) *Logger {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	zl := zerolog.New(out).With().Timestamp().Logger().Level(zerologLevel(c.Level))
	return &Logger{logger: zl, level: c.Level}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (l *Logger) Level() Level {
	if l == nil {
		return LevelError
	}
	return l.level
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Error().Msgf(format, args...)
}
