package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mazurov/tc-credentials/internal/client/errors"
	"github.com/mazurov/tc-credentials/internal/client/output"
	"github.com/mazurov/tc-credentials/internal/client/prompts"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove stored credentials",
		Long: `Remove every credential entry the secret store holds for this tool.

Removing when nothing is stored succeeds. Entries that cannot be decoded
are removed as well. Use --yes to skip the confirmation prompt.`,
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
			ctx := commandContext(cmd)

			removed := false
			creds, err := manager.GetCredentials(ctx)
			corrupt := errors.IsCorruptStore(err)
			if err != nil && !corrupt {
				return err
			}

			if creds != nil || corrupt {
				description := "the unreadable stored entry"
				if corrupt {
					output.PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("Stored credentials cannot be read: %v", err))
				} else {
					description = creds.String()
				}

				if !flagYes && !prompts.ConfirmRemoval(cmd.InOrStdin(), cmd.ErrOrStderr(), description) {
					output.PrintWarning(cmd.ErrOrStderr(), "Removal cancelled")
					return nil
				}
				if err := manager.RemoveCredentials(ctx); err != nil {
					return err
				}
				removed = true
			}

			result := map[string]interface{}{
				"removed": removed,
				"backend": manager.BackendName(),
			}
			return render(cmd.OutOrStdout(), format, result, func(w io.Writer) error {
				if removed {
					output.PrintSuccess(w, "Removed stored credentials")
				} else {
					output.PrintSuccess(w, "No credentials stored")
				}
				return nil
			})
		},
	}
}
