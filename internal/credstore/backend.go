// Package credstore stores a single set of server credentials in the secret
// store of the host operating system.
package credstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mazurov/tc-credentials/internal/credentials"
)

var (
	// ErrBackend is returned when the underlying secret store fails
	ErrBackend = errors.New("credential backend failure")

	// ErrMalformedSecret is returned when a stored password cannot be decoded
	ErrMalformedSecret = errors.New("malformed stored secret")

	// ErrUnknownBackend is returned for an unrecognized backend name
	ErrUnknownBackend = errors.New("unknown credential backend")
)

// Backend names
const (
	BackendWinCred  = "wincred"
	BackendKeychain = "keychain"
	BackendFile     = "file"
	BackendKeyring  = "keyring"
	BackendAuto     = "auto"
)

// DefaultServicePrefix scopes every stored entry to this application
const DefaultServicePrefix = "teamcity:"

// Backend is one OS-specific secret store
type Backend interface {
	// Name identifies the backend
	Name() string

	// Get returns the stored credentials, or nil when nothing is stored
	Get(ctx context.Context) (*credentials.Credentials, error)

	// Set writes the credentials
	Set(ctx context.Context, creds credentials.Credentials) error

	// Remove deletes every entry belonging to the service prefix.
	// Removing when nothing is stored succeeds.
	Remove(ctx context.Context) error
}

// pickFirst resolves ambiguous lookups: the first match in enumeration
// order wins and a single warning is logged.
func pickFirst[T any](logger *slog.Logger, backend string, matches []T) (T, bool) {
	var zero T
	switch len(matches) {
	case 0:
		return zero, false
	case 1:
		return matches[0], true
	default:
		logger.Warn("Multiple stored credentials found, using the first one",
			"backend", backend,
			"count", len(matches))
		return matches[0], true
	}
}
