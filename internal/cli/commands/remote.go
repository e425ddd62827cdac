package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubiquits/ubiquits/internal/cli/remote"
	"github.com/ubiquits/ubiquits/internal/cli/ui"
)

// prompter asks for secrets that were not passed as flags
type prompter interface {
	Password(message string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Password(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Password{Message: message}, &answer, survey.WithValidator(survey.Required))
	return answer, err
}

var ask prompter = surveyPrompter{}

func newRemoteCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Runtime cli of a running server",
		Long: `Connect to the runtime cli of a running server and manage its credentials.

Available subcommands:
  connect        - Open an interactive session
  token          - Sign a JWT with the private key
  hash-password  - Hash a password for REMOTE_CLI_PASSWORD_HASH`,
	}

	cmd.AddCommand(newRemoteConnectCommand(opts))
	cmd.AddCommand(newRemoteTokenCommand())
	cmd.AddCommand(newRemoteHashPasswordCommand())
	return cmd
}

func newRemoteConnectCommand(opts *globalOptions) *cobra.Command {
	var (
		url       string
		token     string
		tokenFile string
		password  string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open an interactive session with a running server",
		Long: `Open an interactive session with the remote cli of a running server.

Authenticate with a JWT (--token or --token-file) or with the password.
Without either, the password is prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				url = "ws://" + cfg.RemoteCLIAddr() + "/"
			}

			creds, err := connectCredentials(token, tokenFile, password)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			client, err := remote.Dial(ctx, url, creds)
			cancel()
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", url, err)
			}
			defer client.Close()

			return client.REPL(cmd.InOrStdin(), cmd.OutOrStdout(), color.NoColor)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "websocket url of the remote cli (default ws://HOST:REMOTE_CLI_PORT/)")
	cmd.Flags().StringVar(&token, "token", "", "JWT to authenticate with")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "file holding the JWT")
	cmd.Flags().StringVar(&password, "password", "", "password to authenticate with (prompted when omitted)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connection and authentication timeout")
	cmd.MarkFlagsMutuallyExclusive("token", "token-file", "password")

	return cmd
}

func connectCredentials(token, tokenFile, password string) (remote.Frame, error) {
	if tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return remote.Frame{}, fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}
	if token != "" {
		return remote.Frame{JWT: token}, nil
	}

	if password == "" {
		var err error
		if password, err = ask.Password("Password:"); err != nil {
			return remote.Frame{}, err
		}
	}
	return remote.Frame{Password: password}, nil
}

func newRemoteTokenCommand() *cobra.Command {
	var (
		keyPath  string
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a JWT for the remote cli",
		Long: `Sign an RS256 JWT with the private key matching the server's
REMOTE_CLI_PUBLIC_KEY_PATH. The token is written to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := remote.LoadPrivateKey(keyPath)
			if err != nil {
				return err
			}
			token, err := remote.SignToken(key, username, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "", "path to the PEM encoded RSA private key")
	cmd.Flags().StringVar(&username, "user", "admin", "username carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func newRemoteHashPasswordCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for REMOTE_CLI_PASSWORD_HASH",
		Long: `Hash a password with bcrypt and print the .env line that enables
password authentication on the remote cli.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = ask.Password("Password:"); err != nil {
					return err
				}
				confirm, err := ask.Password("Confirm password:")
				if err != nil {
					return err
				}
				if confirm != password {
					return errors.New("passwords do not match")
				}
			}

			hash, err := remote.HashPassword(password)
			if err != nil {
				return err
			}

			ui.WriteSuccess(cmd.ErrOrStderr(), "Add this line to .env", color.NoColor)
			// single quotes keep the $ of the hash from being expanded
			fmt.Fprintf(cmd.OutOrStdout(), "REMOTE_CLI_PASSWORD_HASH='%s'\n", hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password to hash (prompted when omitted)")
	return cmd
}
