package errors

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mazurov/tc-credentials/internal/credentials"
	"github.com/mazurov/tc-credentials/internal/credstore"
)

// Exit codes for different error scenarios
const (
	ExitSuccess          = 0 // Success
	ExitGeneralError     = 1 // General error (helper failure, unreadable store)
	ExitInvalidArguments = 2 // Invalid arguments/usage (missing required flags, invalid format)
	ExitNotFound         = 3 // No credentials stored
	ExitCorruptStore     = 4 // Stored entry cannot be decoded
)

// ErrNotStored is returned by commands that need stored credentials when there are none
var ErrNotStored = errors.New("no credentials stored")

// UsageError marks errors caused by invalid arguments
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usagef creates a UsageError with a formatted message
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// IsCorruptStore reports whether err comes from a stored entry that cannot be decoded
func IsCorruptStore(err error) bool {
	return errors.Is(err, credentials.ErrMalformedTarget) || errors.Is(err, credstore.ErrMalformedSecret)
}

// ExitCodeFor maps an error to the process exit code
func ExitCodeFor(err error) int {
	var usageErr *UsageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usageErr):
		return ExitInvalidArguments
	case errors.Is(err, ErrNotStored):
		return ExitNotFound
	case IsCorruptStore(err):
		return ExitCorruptStore
	default:
		return ExitGeneralError
	}
}

// PrintError prints the error in the CLI's format
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

// ExitWithError prints the error message and exits with the mapped code
func ExitWithError(err error) {
	PrintError(os.Stderr, err)
	os.Exit(ExitCodeFor(err))
}
