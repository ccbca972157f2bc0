package kiln

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yaklabco/kiln/config"
	"github.com/yaklabco/kiln/pkg/exit"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage kiln configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Display the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(&config.LoadOptions{Stderr: cmd.ErrOrStderr()})
				if err != nil {
					return exit.Fatalf(exitConfig, "loading configuration: %w", err)
				}
				writeConfig(cmd.OutOrStdout(), cfg)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default user configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := config.WriteDefaultConfig()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show configuration file locations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				loc := config.Locate(".")
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User config:    %s\n", loc.UserFile)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Project config: %s\n", loc.ProjectFile)
				return nil
			},
		},
	)
	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config) {
	_, _ = fmt.Fprintln(w, "# Effective kiln configuration")
	if cfg.ConfigFile() != "" {
		_, _ = fmt.Fprintf(w, "# Loaded from: %s\n", cfg.ConfigFile())
	} else {
		_, _ = fmt.Fprintln(w, "# (using defaults, no config file found)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "src_dir: %s\n", cfg.SrcDir)
	_, _ = fmt.Fprintf(w, "dist_dir: %s\n", cfg.DistDir)
	_, _ = fmt.Fprintf(w, "verbose: %v\n", cfg.Verbose)
	_, _ = fmt.Fprintf(w, "debug: %v\n", cfg.Debug)
	_, _ = fmt.Fprintln(w, "server:")
	_, _ = fmt.Fprintf(w, "  enabled: %v\n", cfg.Server.Enabled)
	_, _ = fmt.Fprintf(w, "  host: %s\n", cfg.Server.Host)
	_, _ = fmt.Fprintf(w, "  port: %d\n", cfg.Server.Port)
	_, _ = fmt.Fprintln(w, "watch:")
	_, _ = fmt.Fprintf(w, "  debounce: %s\n", cfg.Watch.Debounce)
	_, _ = fmt.Fprintln(w, "images:")
	_, _ = fmt.Fprintf(w, "  jpeg_quality: %d\n", cfg.Images.JPEGQuality)
	_, _ = fmt.Fprintln(w, "minify:")
	_, _ = fmt.Fprintf(w, "  suffix: %q\n", cfg.Minify.Suffix)
	_, _ = fmt.Fprintln(w, "styles:")
	_, _ = fmt.Fprintf(w, "  browsers: [%s]\n", strings.Join(cfg.Styles.Browsers, ", "))
	_, _ = fmt.Fprintf(w, "  sass_binary: %s\n", cfg.Styles.SassBinary)
}
