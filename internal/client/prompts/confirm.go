package prompts

import (
	"fmt"
	"io"
	"strings"
)

// ConfirmRemoval prompts user to confirm removing the stored credentials
// Returns true if user confirms, false otherwise
func ConfirmRemoval(in io.Reader, out io.Writer, description string) bool {
	fmt.Fprintf(out, "⚠ This will remove stored credentials for %s\n", description)
	fmt.Fprint(out, "Are you sure? [y/N]: ")

	response, err := readLine(in)
	if err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
