// Package kiln is the kiln command line.
package kiln

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/yaklabco/kiln/cmd/kiln/version"
	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/step"
)

const shortDescription = "Kiln builds a static site's assets: markup, styles, scripts, images and fonts."

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	src     string
	dist    string
	debug   bool
	verbose bool
	dryRun  bool
}

type rootCmdOptions struct {
	// prepare replaces the default app setup, for tests.
	prepare func(cmd *cobra.Command, flags *globalFlags) (*app, error)
}

// Option configures the root command.
type Option func(*rootCmdOptions)

func withPrepare(fn func(cmd *cobra.Command, flags *globalFlags) (*app, error)) Option {
	return func(opts *rootCmdOptions) {
		opts.prepare = fn
	}
}

// NewRootCmd builds the kiln command tree.
func NewRootCmd(_ context.Context, opts ...Option) *cobra.Command {
	rootOpts := &rootCmdOptions{prepare: newApp}
	for _, opt := range opts {
		opt(rootOpts)
	}

	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "kiln",
		Short: shortDescription,
		Example: `	# Clean the output root and build everything
	kiln build

	# Build, then rebuild on change and serve the output with live reload
	kiln watch --port 8080

	# Run one step, optionally on specific sources
	kiln step images src/images/logo.jpg

	# Show the effective configuration
	kiln config show`,
		Version: version.Resolve().Colorized(),
	}

	rootCmd.PersistentFlags().StringVar(&flags.src, "src", "", "source root (default from config, \"src\")")
	rootCmd.PersistentFlags().StringVar(&flags.dist, "dist", "", "output root (default from config, \"dist\")")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "turn on debug messages")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "print each artifact as it is written")
	rootCmd.PersistentFlags().BoolVar(&flags.dryRun, "dryrun", false, "report writes and deletes instead of performing them")

	rootCmd.AddCommand(
		newBuildCmd(rootOpts, flags),
		newWatchCmd(rootOpts, flags),
		newCleanCmd(rootOpts, flags),
		newStepCmd(rootOpts, flags),
		newConfigCmd(),
	)

	return rootCmd
}

func newBuildCmd(rootOpts *rootCmdOptions, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Clean the output root, then run every step once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rootOpts.prepare(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			run, err := a.orchestrator.Build(cmd.Context())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), buildSummary(run))
			return err
		},
	}
}

func newCleanCmd(rootOpts *rootCmdOptions, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the output root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rootOpts.prepare(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			_, err = a.orchestrator.RunStep(cmd.Context(), step.CleanName)
			return err
		},
	}
}

func newStepCmd(rootOpts *rootCmdOptions, flags *globalFlags) *cobra.Command {
	names := []string{step.CleanName}
	for _, class := range paths.Classes() {
		names = append(names, class.String())
	}

	return &cobra.Command{
		Use:       "step <name> [files...]",
		Short:     "Run a single step, on the given sources when it supports that",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.prepare(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			files, err := absPaths(args[1:])
			if err != nil {
				return err
			}
			if class, ok := paths.ParseClass(args[0]); ok && len(files) > 0 && !a.steps.Step(class).Partial() {
				slog.Warn("step always runs on all its sources; file arguments ignored",
					slog.String(klog.Step, args[0]))
			}
			report, err := a.orchestrator.RunStep(cmd.Context(), args[0], files...)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), stepSummary(report, err))
			return err
		},
	}
}

// ExecuteWithFang runs the root command with fang's styled help, errors and
// version output.
func ExecuteWithFang(ctx context.Context, rootCmd *cobra.Command) error {
	//nolint:wrapcheck // top-level error from cobra, wrapping not needed
	return fang.Execute(
		ctx, rootCmd, fang.WithVersion(rootCmd.Version), fang.WithoutManpage())
}
