package credstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mazurov/tc-credentials/internal/credentials"
)

// Manager is the single entry point for credential storage. It owns one
// backend, chosen at construction, and never caches what it reads.
// Callers serialize their own use; the manager does no locking.
type Manager struct {
	backend Backend
	logger  *slog.Logger
}

// NewManager creates a manager over an already selected backend
func NewManager(backend Backend, logger *slog.Logger) *Manager {
	return &Manager{
		backend: backend,
		logger:  logger,
	}
}

// Backend returns the selected backend
func (m *Manager) Backend() Backend {
	return m.backend
}

// BackendName returns the name of the selected backend
func (m *Manager) BackendName() string {
	return m.backend.Name()
}

// GetCredentials returns the stored credentials, or nil when nothing is stored
func (m *Manager) GetCredentials(ctx context.Context) (*credentials.Credentials, error) {
	logger := m.opLogger("get")

	creds, err := m.backend.Get(ctx)
	if err != nil {
		logger.Error("Failed to read credentials", "error", err)
		return nil, err
	}

	logger.Debug("Credentials read", "found", creds != nil)
	return creds, nil
}

// SetCredentials replaces the stored credentials. Existing entries are
// removed first because some backends add a duplicate instead of overwriting.
func (m *Manager) SetCredentials(ctx context.Context, serverURL, user, password string) error {
	logger := m.opLogger("set")

	existing, err := m.backend.Get(ctx)
	if err != nil {
		logger.Warn("Could not read existing credentials, writing anyway", "error", err)
	}

	if existing != nil {
		if err := m.removeCredentials(ctx, logger); err != nil {
			return fmt.Errorf("failed to replace existing credentials: %w", err)
		}
	}

	if err := m.backend.Set(ctx, credentials.New(serverURL, user, password)); err != nil {
		logger.Error("Failed to write credentials", "error", err)
		return err
	}

	logger.Info("Credentials stored", "server", serverURL, "user", user, "replaced", existing != nil)
	return nil
}

// RemoveCredentials deletes the stored credentials. It succeeds when nothing is stored.
func (m *Manager) RemoveCredentials(ctx context.Context) error {
	return m.removeCredentials(ctx, m.opLogger("remove"))
}

func (m *Manager) removeCredentials(ctx context.Context, logger *slog.Logger) error {
	if err := m.backend.Remove(ctx); err != nil {
		logger.Error("Failed to remove credentials", "error", err)
		return err
	}

	logger.Info("Credentials removed")
	return nil
}

func (m *Manager) opLogger(op string) *slog.Logger {
	return m.logger.With(
		"op_id", uuid.New().String(),
		"operation", op,
		"backend", m.backend.Name())
}
