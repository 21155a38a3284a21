package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mazurov/tc-credentials/internal/client/output"
	"github.com/mazurov/tc-credentials/internal/credstore"
)

func newBackendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Show the secret store backend in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			manager, err := loadManager(cmd)
			if err != nil {
				return err
			}

			result := map[string]string{
				"backend":  manager.BackendName(),
				"platform": string(credstore.CurrentPlatform()),
			}
			if fb, ok := manager.Backend().(*credstore.FileBackend); ok {
				result["file_path"] = fb.Path()
			}

			return render(cmd.OutOrStdout(), format, result, func(w io.Writer) error {
				table := output.NewTableWriter(w)
				if path, ok := result["file_path"]; ok {
					table.WriteHeader("BACKEND", "PLATFORM", "PATH")
					table.WriteRow(result["backend"], result["platform"], path)
				} else {
					table.WriteHeader("BACKEND", "PLATFORM")
					table.WriteRow(result["backend"], result["platform"])
				}
				return table.Flush()
			})
		},
	}
}
