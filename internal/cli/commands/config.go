package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubiquits/ubiquits/internal/cli/config"
	"github.com/ubiquits/ubiquits/internal/cli/ui"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long: `Show the configuration after merging defaults, the .env file and the
environment. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			writeConfig(cmd.OutOrStdout(), cfg, color.NoColor)
			return nil
		},
	}
}

func writeConfig(w io.Writer, cfg *config.Config, noColor bool) {
	ui.Header(w, "Configuration", noColor)

	table := ui.NewKeyValueTable(w, noColor)
	table.AddRow("API_BASE", cfg.APIBase)
	table.AddRow("API_PREFIX", cfg.APIPrefix)
	table.AddRow("listen", cfg.Addr())
	table.AddRow("DATABASE_DRIVER", cfg.DatabaseDriver)
	table.AddRow("DATABASE_URL", mask(cfg.DatabaseURL))
	table.AddRow("REDIS_ADDR", orNone(cfg.RedisAddr))
	table.AddRow("CACHE_TTL", cfg.CacheTTL.String())
	table.AddRow("LOG_LEVEL", cfg.LogLevel)
	table.AddRow("LOG_DEVELOPMENT", strconv.FormatBool(cfg.LogDevelopment))

	if cfg.RemoteCLIPublicKeyPath == "" && cfg.RemoteCLIPasswordHash == "" {
		table.AddRow("remote cli", "disabled")
	} else {
		table.AddRow("remote cli", cfg.RemoteCLIAddr())
		table.AddRow("REMOTE_CLI_PUBLIC_KEY_PATH", orNone(cfg.RemoteCLIPublicKeyPath))
		table.AddRow("REMOTE_CLI_PASSWORD_HASH", mask(cfg.RemoteCLIPasswordHash))
		table.AddRow("REMOTE_CLI_RATE_LIMIT", strconv.Itoa(cfg.RemoteCLIRateLimit)+"/min")
	}
	table.Render()
}

func mask(secret string) string {
	if secret == "" {
		return "(none)"
	}
	return fmt.Sprintf("(set, %d chars)", len(secret))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
