package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mazurov/tc-credentials/internal/client/config"
	"github.com/mazurov/tc-credentials/internal/client/errors"
	"github.com/mazurov/tc-credentials/internal/client/output"
	"github.com/mazurov/tc-credentials/internal/client/prompts"
	"github.com/mazurov/tc-credentials/internal/client/validation"
)

func newSetCmd() *cobra.Command {
	var (
		user          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "set [server-url]",
		Short: "Store credentials for a server",
		Long: `Store credentials for a TeamCity server, replacing any stored credentials.

Server URL can be provided as an argument or via TC_CREDENTIALS_URL environment variable.
If both are provided, the argument takes precedence.

The user is taken from --user or TC_CREDENTIALS_USER and prompted for otherwise.
The password is prompted for without echo, or read from stdin with --password-stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			var argURL string
			if len(args) > 0 {
				argURL = args[0]
			}
			serverURL, err := config.ResolveURL(argURL)
			if err != nil {
				return &errors.UsageError{Err: err}
			}
			if err := validation.ValidateServerURL(serverURL); err != nil {
				return &errors.UsageError{Err: err}
			}

			in, prompt := cmd.InOrStdin(), cmd.ErrOrStderr()

			username := config.ResolveUser(user)
			if username == "" {
				if passwordStdin {
					return errors.Usagef("--user is required with --password-stdin")
				}
				if username, err = prompts.PromptUsername(in, prompt); err != nil {
					return fmt.Errorf("failed to read username: %w", err)
				}
			}
			if err := validation.ValidateUser(username); err != nil {
				return &errors.UsageError{Err: err}
			}

			var password string
			if passwordStdin {
				password, err = prompts.ReadPasswordLine(in)
			} else {
				password, err = prompts.PromptPassword(in, prompt)
			}
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if err := validation.ValidatePassword(password); err != nil {
				return &errors.UsageError{Err: err}
			}

			manager, err := loadManager(cmd)
			if err != nil {
				return err
			}

			if err := manager.SetCredentials(commandContext(cmd), serverURL, username, password); err != nil {
				return fmt.Errorf("failed to store credentials: %w", err)
			}

			result := map[string]string{
				"server":  serverURL,
				"user":    username,
				"backend": manager.BackendName(),
			}
			return render(cmd.OutOrStdout(), format, result, func(w io.Writer) error {
				output.PrintSuccess(w, fmt.Sprintf("Stored credentials for %s@%s in %s", username, serverURL, manager.BackendName()))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User name (or use TC_CREDENTIALS_USER env var)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}
