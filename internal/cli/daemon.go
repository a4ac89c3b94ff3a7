package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/daemon"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	var (
		listen   string
		logLevel string
		logJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the issue tracker daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logJSON)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid --listen: %w", err)
				}
			}

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return d.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen_addr)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "log as JSON instead of text")
	return cmd
}

// newLogger builds the daemon's slog logger writing to w.
func newLogger(w io.Writer, level string, asJSON bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func newStatusCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := gf.newClient().Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon not running at %s; start with: issuetrack serve", gf.host)
			}

			w := cmd.OutOrStdout()
			if !gf.pretty {
				printJSON(w, health)
				return nil
			}

			status, _ := health["status"].(string)
			fmt.Fprintf(w, "Daemon status: %s\n", status)
			if uptime, ok := health["uptime"].(string); ok {
				fmt.Fprintf(w, "Uptime:        %s\n", uptime)
			}
			if sessions, ok := health["sessions"].(float64); ok {
				fmt.Fprintf(w, "Sessions:      %d\n", int(sessions))
			}
			return nil
		},
	}
}
