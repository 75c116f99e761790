// Package generate is the public entry point to the catalog pipeline. It
// wraps the internal generator, adapter and policy engine behind a small
// stable surface for programmatic callers; the CLI is a thin layer on top of
// this package.
package generate

import (
	"io"
	"strings"

	"github.com/clusterforge/catconf/internal/adapter"
	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/feature"
	"github.com/clusterforge/catconf/internal/generator"
	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/policy"
	"github.com/clusterforge/catconf/internal/progress"
)

// Sentinel errors for errors.Is checks by callers.
var (
	// ErrNotFound marks a missing catalog, schema, policy or input path.
	ErrNotFound = errs.ErrNotFound

	// ErrSchemaInvalid marks a document that failed schema validation.
	ErrSchemaInvalid = errs.ErrSchemaInvalid

	// ErrProcessing marks any other pipeline failure.
	ErrProcessing = errs.ErrProcessing
)

// RolePackages is the listing result for one role of a feature-list file.
type RolePackages = feature.RolePackages

// PackageInfo is one package of a listing result.
type PackageInfo = feature.PackageInfo

// Options configures logging and progress reporting for a call. The zero
// value logs at info level to stderr with no progress bar.
type Options struct {
	// LogLevel is one of "error", "warn", "info", "debug". Empty means info.
	LogLevel string

	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer

	// Progress enables a progress bar on stderr while combinations are
	// processed.
	Progress bool
}

func (o Options) logger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: parseLevel(o.LogLevel), Output: o.LogOutput})
}

func (o Options) bar(description string) *progress.Bar {
	if !o.Progress {
		return nil
	}
	return progress.New(-1, description)
}

func parseLevel(s string) logging.Level {
	switch strings.ToLower(s) {
	case "error":
		return logging.LevelError
	case "warn", "warning":
		return logging.LevelWarn
	case "debug":
		return logging.LevelDebug
	default:
		return logging.LevelInfo
	}
}

// FeatureLists parses and validates the catalog at catalogPath and writes
// the per-combination feature-list files under outputRoot. Pass schemaPath
// as "" to validate against the embedded catalog schema.
func FeatureLists(catalogPath, schemaPath, outputRoot string, opts Options) error {
	bar := opts.bar("generating feature lists")
	defer bar.Finish()
	return generator.Generate(catalogPath, schemaPath, outputRoot, opts.logger(), bar)
}

// AdapterConfigs parses and validates the catalog at catalogPath and writes
// the fixed-rule configuration files under outputRoot.
func AdapterConfigs(catalogPath, schemaPath, outputRoot string, opts Options) error {
	bar := opts.bar("generating adapter configs")
	defer bar.Finish()
	return adapter.Generate(catalogPath, schemaPath, outputRoot, opts.logger(), bar)
}

// FromPolicy evaluates the policy at policyPath over the role documents
// under inputRoot and writes target files under outputRoot. Pass policyPath
// as "" to use the embedded default policy, which reproduces the fixed-rule
// adapter's outputs; pass schemaPath as "" to validate the policy against
// the embedded policy schema.
func FromPolicy(inputRoot, outputRoot, policyPath, schemaPath string, opts Options) error {
	bar := opts.bar("generating configs from policy")
	defer bar.Finish()
	return policy.Run(inputRoot, outputRoot, policyPath, schemaPath, opts.logger(), bar)
}

// Roles lists the role names of a feature-list file in stored order.
func Roles(path string, opts Options) ([]string, error) {
	return feature.Roles(path, opts.logger())
}

// Packages lists the packages of every role in a feature-list file.
func Packages(path string, opts Options) ([]RolePackages, error) {
	return feature.ListPackages(path, opts.logger())
}

// PackagesForRole lists the packages of a single role, matched
// case-insensitively. The stored role's original casing is preserved in the
// result.
func PackagesForRole(path, role string, opts Options) ([]RolePackages, error) {
	return feature.ListRolePackages(path, role, opts.logger())
}
