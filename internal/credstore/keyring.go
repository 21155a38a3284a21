package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"

	"github.com/mazurov/tc-credentials/internal/credentials"
)

// keyringIndexAccount holds the list of stored target names. Target names
// always contain the separator, so they never collide with it.
const keyringIndexAccount = "index"

// Keyring is the minimal OS keyring API used by KeyringBackend
type Keyring interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

// OSKeyring talks to the OS keyring (Secret Service, Keychain or
// Credential Manager) through go-keyring
type OSKeyring struct{}

// Get implements Keyring
func (OSKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

// Set implements Keyring
func (OSKeyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

// Delete implements Keyring
func (OSKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

// KeyringBackend stores credentials in the OS keyring. The keyring cannot
// enumerate entries, so an index entry lists the stored target names.
type KeyringBackend struct {
	prefix string
	ring   Keyring
	logger *slog.Logger
}

// NewKeyringBackend creates a keyring backend
func NewKeyringBackend(prefix string, ring Keyring, logger *slog.Logger) *KeyringBackend {
	if ring == nil {
		ring = OSKeyring{}
	}
	return &KeyringBackend{
		prefix: prefix,
		ring:   ring,
		logger: logger,
	}
}

// Name implements Backend
func (b *KeyringBackend) Name() string {
	return BackendKeyring
}

// Get implements Backend
func (b *KeyringBackend) Get(ctx context.Context) (*credentials.Credentials, error) {
	targets, err := b.index()
	if err != nil {
		return nil, err
	}

	target, ok := pickFirst(b.logger, b.Name(), targets)
	if !ok {
		return nil, nil
	}

	password, err := b.ring.Get(b.prefix, target)
	if errors.Is(err, keyring.ErrNotFound) {
		b.logger.Warn("Indexed keyring entry is missing", "backend", b.Name())
		password = ""
	} else if err != nil {
		return nil, fmt.Errorf("%w: failed to read keyring entry: %w", ErrBackend, err)
	}

	return credentials.FromTarget(target, password)
}

// Set implements Backend
func (b *KeyringBackend) Set(ctx context.Context, creds credentials.Credentials) error {
	target := creds.TargetName()
	if err := b.ring.Set(b.prefix, target, creds.Password); err != nil {
		return fmt.Errorf("%w: failed to write keyring entry: %w", ErrBackend, err)
	}

	targets, err := b.index()
	if err != nil {
		return err
	}
	for _, t := range targets {
		if t == target {
			return nil
		}
	}

	if err := b.saveIndex(append(targets, target)); err != nil {
		return err
	}

	b.logger.Debug("Credential written", "backend", b.Name())
	return nil
}

// Remove implements Backend
func (b *KeyringBackend) Remove(ctx context.Context) error {
	targets, err := b.index()
	if err != nil {
		return err
	}

	for _, target := range targets {
		if err := b.delete(target); err != nil {
			return err
		}
	}
	if err := b.delete(keyringIndexAccount); err != nil {
		return err
	}

	b.logger.Debug("Credentials removed", "backend", b.Name(), "count", len(targets))
	return nil
}

func (b *KeyringBackend) delete(account string) error {
	err := b.ring.Delete(b.prefix, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: failed to delete keyring entry: %w", ErrBackend, err)
	}
	return nil
}

func (b *KeyringBackend) index() ([]string, error) {
	data, err := b.ring.Get(b.prefix, keyringIndexAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read keyring index: %w", ErrBackend, err)
	}

	var targets []string
	if err := json.Unmarshal([]byte(data), &targets); err != nil {
		return nil, fmt.Errorf("%w: keyring index: %v", ErrMalformedSecret, err)
	}
	return targets, nil
}

func (b *KeyringBackend) saveIndex(targets []string) error {
	data, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("failed to marshal keyring index: %w", err)
	}
	if err := b.ring.Set(b.prefix, keyringIndexAccount, string(data)); err != nil {
		return fmt.Errorf("%w: failed to write keyring index: %w", ErrBackend, err)
	}
	return nil
}
