// Package commands implements the ubiquits command line.
package commands

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubiquits/ubiquits/internal/cli/config"
	"github.com/ubiquits/ubiquits/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	envFile string
	noColor bool
}

func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ubiquits",
		Short: "Ubiquits model server and runtime cli",
		Long: `Ubiquits serves declared models over a REST API and exposes a
runtime cli for inspecting a running server.

Configuration is read from .env in the working directory and from the
environment. Variables may carry a PUBLIC_ prefix.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", "", "path to the .env file (default ./.env)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newModelsCommand(opts))
	rootCmd.AddCommand(newGetCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newRemoteCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			writeVersion(cmd.OutOrStdout(), color.NoColor)
		},
	}
}

func writeVersion(w io.Writer, noColor bool) {
	goVer := GoVersion
	if goVer == "unknown" {
		goVer = runtime.Version()
	}

	table := ui.NewKeyValueTable(w, noColor)
	table.AddRow("Ubiquits version", Version)
	table.AddRow("Git commit", GitCommit)
	table.AddRow("Build date", BuildDate)
	table.AddRow("Go version", goVer)
	table.Render()
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		writeExecuteError(rootCmd, err)
		return err
	}
	return nil
}

func writeExecuteError(root *cobra.Command, err error) {
	if name, ok := unknownCommandName(err); ok {
		var known []string
		for _, c := range root.Commands() {
			if c.IsAvailableCommand() {
				known = append(known, c.Name())
			}
		}
		fmt.Fprint(root.ErrOrStderr(), ui.UnknownCommand(name, known, color.NoColor))
		return
	}
	ui.WriteError(root.ErrOrStderr(), err, color.NoColor)
}

// unknownCommandName extracts the name from cobra's
// `unknown command "x" for "ubiquits"` error
func unknownCommandName(err error) (string, bool) {
	rest, ok := strings.CutPrefix(err.Error(), "unknown command ")
	if !ok {
		return "", false
	}
	end := strings.Index(rest, " for ")
	if end < 0 {
		return "", false
	}
	name, uerr := strconv.Unquote(rest[:end])
	return name, uerr == nil
}
