package credstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mazurov/tc-credentials/internal/credentials"
	"github.com/mazurov/tc-credentials/internal/credstore/parser"
	"github.com/mazurov/tc-credentials/internal/sys"
)

const (
	// DefaultWinCredHelper is the credential manager helper executable
	DefaultWinCredHelper = "creds.exe"

	// winCredNotFound is ERROR_NOT_FOUND reported by the helper
	winCredNotFound = 1168
)

// WinCredBackend stores credentials in the Windows credential manager
// through an external helper. Passwords cross the process boundary hex-encoded.
type WinCredBackend struct {
	helper string
	prefix string
	runner sys.CommandRunner
	logger *slog.Logger
}

// NewWinCredBackend creates a credential manager backend
func NewWinCredBackend(helper, prefix string, runner sys.CommandRunner, logger *slog.Logger) *WinCredBackend {
	if helper == "" {
		helper = DefaultWinCredHelper
	}
	return &WinCredBackend{
		helper: helper,
		prefix: prefix,
		runner: runner,
		logger: logger,
	}
}

// Name implements Backend
func (b *WinCredBackend) Name() string {
	return BackendWinCred
}

// Get implements Backend
func (b *WinCredBackend) Get(ctx context.Context) (*credentials.Credentials, error) {
	records, err := b.list(ctx)
	if err != nil {
		return nil, err
	}

	rec, ok := pickFirst(b.logger, b.Name(), records)
	if !ok {
		return nil, nil
	}

	target := strings.TrimPrefix(rec[parser.FieldTargetName], b.prefix)
	password, err := hex.DecodeString(rec["credential"])
	if err != nil {
		return nil, fmt.Errorf("%w: credential for %s: %v", ErrMalformedSecret, target, err)
	}

	return credentials.FromTarget(target, string(password))
}

// Set implements Backend
func (b *WinCredBackend) Set(ctx context.Context, creds credentials.Credentials) error {
	err := b.runner.Run(ctx, sys.Command{
		Path: b.helper,
		Args: []string{"-a", "-t", b.prefix + creds.TargetName(), "-p", hex.EncodeToString([]byte(creds.Password))},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to write credential: %w", ErrBackend, err)
	}

	b.logger.Debug("Credential written", "backend", b.Name())
	return nil
}

// Remove implements Backend. All entries under the prefix are removed in
// one wildcard invocation.
func (b *WinCredBackend) Remove(ctx context.Context) error {
	err := b.runner.Run(ctx, sys.Command{
		Path: b.helper,
		Args: []string{"-d", "-t", b.prefix + "*", "-g"},
	})
	if code, ok := sys.ExitCode(err); ok && code == winCredNotFound {
		b.logger.Debug("No credentials to remove", "backend", b.Name())
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to remove credentials: %w", ErrBackend, err)
	}

	b.logger.Debug("Credentials removed", "backend", b.Name())
	return nil
}

// list returns the entries whose target name carries the service prefix
func (b *WinCredBackend) list(ctx context.Context) ([]parser.Record, error) {
	out := parser.NewWriter(parser.NewWinCredParser())
	err := b.runner.Run(ctx, sys.Command{
		Path:   b.helper,
		Args:   []string{"-s", "-g", "-t", b.prefix + "*"},
		Stdout: out,
	})
	if code, ok := sys.ExitCode(err); ok && code == winCredNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list credentials: %w", ErrBackend, err)
	}

	var matches []parser.Record
	for _, rec := range out.Records() {
		if strings.HasPrefix(rec[parser.FieldTargetName], b.prefix) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}
