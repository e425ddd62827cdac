package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubiquits/ubiquits/internal/app"
	"github.com/ubiquits/ubiquits/internal/logging"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the remote cli",
		Long: `Start the REST API for every declared model.

The remote cli listens on REMOTE_CLI_PORT when REMOTE_CLI_PUBLIC_KEY_PATH
or REMOTE_CLI_PASSWORD_HASH is set. SIGINT or SIGTERM shuts both down
gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Config{
				Level:       cfg.LogLevel,
				Development: cfg.LogDevelopment && !color.NoColor,
			})
			if err != nil {
				return err
			}
			defer logging.Sync(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			logger.Source("serve").Info("starting", "addr", cfg.Addr(), "version", Version)
			return a.Run(ctx)
		},
	}
}
