package credstore

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mazurov/tc-credentials/internal/credentials"
	"github.com/mazurov/tc-credentials/internal/credstore/parser"
	"github.com/mazurov/tc-credentials/internal/sys"
)

const (
	// DefaultSecurityPath is the macOS security utility
	DefaultSecurityPath = "/usr/bin/security"

	// keychainNotFound is errSecItemNotFound
	keychainNotFound = 44
)

// password: "value" or password: 0x70617373  "pass"
var passwordPattern = regexp.MustCompile(`(?m)^password:\s*(?:(0x[0-9A-Fa-f]*)(?:\s+"(.*)")?|"(.*)")\s*$`)

// KeychainBackend stores credentials as generic passwords in the macOS
// keychain. Listing never exposes passwords; the password of the selected
// entry is fetched with a second, targeted lookup.
type KeychainBackend struct {
	security string
	prefix   string
	runner   sys.CommandRunner
	logger   *slog.Logger
}

// NewKeychainBackend creates a keychain backend
func NewKeychainBackend(security, prefix string, runner sys.CommandRunner, logger *slog.Logger) *KeychainBackend {
	if security == "" {
		security = DefaultSecurityPath
	}
	return &KeychainBackend{
		security: security,
		prefix:   prefix,
		runner:   runner,
		logger:   logger,
	}
}

// Name implements Backend
func (b *KeychainBackend) Name() string {
	return BackendKeychain
}

// Get implements Backend
func (b *KeychainBackend) Get(ctx context.Context) (*credentials.Credentials, error) {
	records, err := b.list(ctx)
	if err != nil {
		return nil, err
	}

	rec, ok := pickFirst(b.logger, b.Name(), records)
	if !ok {
		return nil, nil
	}

	account := rec.Get("acct", parser.FieldTargetName)
	password, err := b.findPassword(ctx, account)
	if err != nil {
		return nil, err
	}

	return credentials.FromTarget(account, password)
}

// Set implements Backend. The -U flag updates an existing item in place.
// The password travels on the security argv for the duration of the call.
func (b *KeychainBackend) Set(ctx context.Context, creds credentials.Credentials) error {
	err := b.runner.Run(ctx, sys.Command{
		Path: b.security,
		Args: []string{"add-generic-password", "-a", creds.TargetName(), "-s", b.prefix, "-w", creds.Password, "-U"},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to add keychain item: %w", ErrBackend, err)
	}

	b.logger.Debug("Credential written", "backend", b.Name())
	return nil
}

// Remove implements Backend
func (b *KeychainBackend) Remove(ctx context.Context) error {
	records, err := b.list(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		account := rec.Get("acct", parser.FieldTargetName)
		err := b.runner.Run(ctx, sys.Command{
			Path: b.security,
			Args: []string{"delete-generic-password", "-a", account, "-s", b.prefix},
		})
		if code, ok := sys.ExitCode(err); ok && code == keychainNotFound {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: failed to delete keychain item: %w", ErrBackend, err)
		}
	}

	b.logger.Debug("Credentials removed", "backend", b.Name(), "count", len(records))
	return nil
}

// list streams the keychain dump and keeps items of this service, in dump order
func (b *KeychainBackend) list(ctx context.Context) ([]parser.Record, error) {
	out := parser.NewWriter(parser.NewKeychainParser())
	err := b.runner.Run(ctx, sys.Command{
		Path:   b.security,
		Args:   []string{"dump-keychain"},
		Stdout: out,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dump keychain: %w", ErrBackend, err)
	}

	var matches []parser.Record
	for _, rec := range out.Records() {
		if rec.Get("svce", "service") == b.prefix {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

// findPassword looks up the password of one account. security prints it on stderr.
func (b *KeychainBackend) findPassword(ctx context.Context, account string) (string, error) {
	var stderr bytes.Buffer
	err := b.runner.Run(ctx, sys.Command{
		Path:   b.security,
		Args:   []string{"find-generic-password", "-a", account, "-s", b.prefix, "-g"},
		Stderr: &stderr,
	})
	if code, ok := sys.ExitCode(err); ok && code == keychainNotFound {
		b.logger.Warn("Keychain item disappeared before its password was read", "backend", b.Name())
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to read keychain password: %w", ErrBackend, err)
	}

	return parsePassword(stderr.String())
}

// parsePassword extracts the password from find-generic-password output.
// The hex form is preferred because the quoted form escapes some bytes.
func parsePassword(output string) (string, error) {
	m := passwordPattern.FindStringSubmatch(output)
	if m == nil {
		return "", nil
	}

	if encoded := m[1]; encoded != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
		if err != nil {
			return "", fmt.Errorf("%w: keychain password: %v", ErrMalformedSecret, err)
		}
		return string(raw), nil
	}

	return strings.ReplaceAll(m[3], `\134`, `\`), nil
}
