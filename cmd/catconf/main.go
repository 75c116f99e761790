// Command catconf turns a package catalog into per-combination deployment
// configuration files. It is a thin wrapper over pkg/generate.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/clusterforge/catconf/pkg/generate"
)

// Exit codes distinguish missing inputs from processing failures so callers
// in automation can branch on them.
const (
	exitNotFound = 2
	exitFailure  = 3
)

var (
	flagLogLevel string
	flagLogFile  string
	flagProgress bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, generate.ErrNotFound) {
			os.Exit(exitNotFound)
		}
		os.Exit(exitFailure)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catconf",
		Short:         "Generate cluster configuration files from a package catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")
	root.PersistentFlags().BoolVar(&flagProgress, "progress", false, "show a progress bar on stderr")

	root.AddCommand(newFeatureListsCmd())
	root.AddCommand(newAdapterCmd())
	root.AddCommand(newPolicyCmd())
	root.AddCommand(newRolesCmd())
	root.AddCommand(newPackagesCmd())
	return root
}

// options builds the generate options from the global flags. The log file is
// opened lazily, once per invocation; its handle lives until process exit.
func options() (generate.Options, error) {
	opts := generate.Options{
		LogLevel: flagLogLevel,
		Progress: flagProgress,
	}
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return opts, fmt.Errorf("open log file: %w", err)
		}
		opts.LogOutput = f
	}
	return opts, nil
}

func newFeatureListsCmd() *cobra.Command {
	var catalogPath, schemaPath, outputDir string

	cmd := &cobra.Command{
		Use:   "featurelists",
		Short: "Generate per-combination feature-list files from a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			return generate.FeatureLists(catalogPath, schemaPath, outputDir, opts)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to the catalog JSON file")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the catalog schema (default: embedded)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "root directory for generated files")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func newAdapterCmd() *cobra.Command {
	var catalogPath, schemaPath, outputDir string

	cmd := &cobra.Command{
		Use:   "adapter",
		Short: "Generate fixed-rule configuration files from a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			return generate.AdapterConfigs(catalogPath, schemaPath, outputDir, opts)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to the catalog JSON file")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the catalog schema (default: embedded)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "root directory for generated files")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func newPolicyCmd() *cobra.Command {
	var inputDir, outputDir, policyPath, schemaPath string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Generate configuration files from role documents using a policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			return generate.FromPolicy(inputDir, outputDir, policyPath, schemaPath, opts)
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "root directory of source role documents")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "root directory for generated files")
	cmd.Flags().StringVar(&policyPath, "policy", "", "path to the policy file, JSON or YAML (default: embedded)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the policy schema (default: embedded)")
	_ = cmd.MarkFlagRequired("input-dir")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func newRolesCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List role names of a feature-list file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			roles, err := generate.Roles(inputPath, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), roles)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to a feature-list file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newPackagesCmd() *cobra.Command {
	var inputPath, role string

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "List packages of one role, or of all roles, of a feature-list file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			var result []generate.RolePackages
			if role != "" {
				result, err = generate.PackagesForRole(inputPath, role, opts)
			} else {
				result, err = generate.Packages(inputPath, opts)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to a feature-list file")
	cmd.Flags().StringVar(&role, "role", "", "role name, matched case-insensitively (default: all roles)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bs))
	return err
}
