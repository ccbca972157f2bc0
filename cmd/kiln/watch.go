package kiln

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/yaklabco/kiln/config"
	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/devserver"
	"github.com/yaklabco/kiln/pkg/exit"
	"github.com/yaklabco/kiln/pkg/step"
	"github.com/yaklabco/kiln/pkg/watch"
	"golang.org/x/sync/errgroup"
)

type watchFlags struct {
	host     string
	port     int
	noServer bool
	debounce time.Duration
}

func newWatchCmd(rootOpts *rootCmdOptions, flags *globalFlags) *cobra.Command {
	wflags := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild on change and serve the output with live reload",
		Long: "Runs a full build, then re-runs the step of every changed source's asset class " +
			"and tells connected browsers to reload. Runs until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rootOpts.prepare(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			applyWatchFlags(cmd, a.cfg, wflags)
			ctx := cmd.Context()

			// A failed initial build is reported; watching continues so the
			// next change can fix it.
			run, err := a.orchestrator.Build(ctx)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), buildSummary(run))
			if err != nil {
				slog.Warn("initial build failed", slog.Any(klog.Error, err))
			}

			group, ctx := errgroup.WithContext(ctx)

			var notify notifiers
			if a.cfg.Verbose {
				notify = append(notify, consoleNotifier{root: a.table.DistDir})
			}
			if a.cfg.Server.Enabled {
				server := devserver.New(a.table.DistDir, a.cfg.Server.Addr(),
					devserver.WithHub(devserver.NewHub(a.recorder)),
					devserver.WithMetrics(a.recorder.Handler()))
				notify = append(notify, server)
				group.Go(func() error { return server.Start(ctx) })
			}
			a.steps.SetNotifier(notify)

			scheduler := watch.New(a.table, a.orchestrator,
				watch.WithDebounce(a.cfg.Watch.Debounce),
				watch.WithRecorder(a.recorder))
			group.Go(func() error {
				err := scheduler.Run(ctx)
				if kind, ok := step.KindOf(err); ok && kind == step.WatchSetup {
					return exit.Fatalf(exitSetup, "%w", err)
				}
				return err
			})

			return group.Wait()
		},
	}

	cmd.Flags().StringVar(&wflags.host, "host", "", "dev server host (default from config, \"localhost\")")
	cmd.Flags().IntVar(&wflags.port, "port", 0, "dev server port (default from config, 3000)")
	cmd.Flags().BoolVar(&wflags.noServer, "no-server", false, "watch without starting the dev server")
	cmd.Flags().DurationVar(&wflags.debounce, "debounce", 0, "wait this long after a change before rebuilding (default from config, 100ms)")

	return cmd
}

func applyWatchFlags(cmd *cobra.Command, cfg *config.Config, wflags *watchFlags) {
	if wflags.host != "" {
		cfg.Server.Host = wflags.host
	}
	if wflags.port != 0 {
		cfg.Server.Port = wflags.port
	}
	if wflags.noServer {
		cfg.Server.Enabled = false
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce = wflags.debounce
	}
}
