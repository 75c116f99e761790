// Package progress wraps the progress bar shown by the CLI while the
// pipeline walks combinations. A nil *Bar is a no-op so library callers can
// skip it.
package progress

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

type Bar struct {
	bar *progressbar.ProgressBar
}

// New returns a bar with the given maximum. Pass -1 for a spinner when the
// total is not known up front.
func New(max int, description string) *Bar {
	return &Bar{bar: progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *Bar) Add(n int) {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}
