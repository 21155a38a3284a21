package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mazurov/tc-credentials/internal/client/errors"
	"github.com/mazurov/tc-credentials/internal/client/output"
	"github.com/mazurov/tc-credentials/internal/credentials"
)

// credentialsView is the printable form of stored credentials
type credentialsView struct {
	ServerURL string `json:"server_url" yaml:"server_url"`
	User      string `json:"user" yaml:"user"`
	Password  string `json:"password" yaml:"password"`
	Backend   string `json:"backend" yaml:"backend"`
}

func newGetCmd() *cobra.Command {
	var showPassword bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show stored credentials",
		Long: `Show the credentials held in the secret store.

The password is masked unless --show-password is given.
Exits with code 3 when no credentials are stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			manager, err := loadManager(cmd)
			if err != nil {
				return err
			}

			creds, err := manager.GetCredentials(commandContext(cmd))
			if err != nil {
				return err
			}
			if creds == nil {
				return errors.ErrNotStored
			}

			view := newCredentialsView(creds, manager.BackendName(), showPassword)
			return render(cmd.OutOrStdout(), format, view, func(w io.Writer) error {
				table := output.NewTableWriter(w)
				table.WriteHeader("SERVER", "USER", "PASSWORD", "BACKEND")
				table.WriteRow(view.ServerURL, view.User, view.Password, view.Backend)
				return table.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&showPassword, "show-password", false, "Print the password in clear text")

	return cmd
}

func newCredentialsView(creds *credentials.Credentials, backend string, showPassword bool) credentialsView {
	password := creds.MaskedPassword()
	if showPassword {
		password = creds.Password
	}
	return credentialsView{
		ServerURL: creds.ServerURL,
		User:      creds.User,
		Password:  password,
		Backend:   backend,
	}
}
