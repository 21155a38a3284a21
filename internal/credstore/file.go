package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mazurov/tc-credentials/internal/credentials"
	"github.com/mazurov/tc-credentials/internal/sys"
)

const (
	// DefaultFileDir is the per-user directory of the secrets file, relative to home
	DefaultFileDir = ".teamcity-credentials"

	// DefaultFileName is the secrets file name
	DefaultFileName = "secrets.json"

	fileMode os.FileMode = 0600
	dirMode  os.FileMode = 0700
)

// FileEntry is one element of the secrets file
type FileEntry struct {
	Service  string `json:"service"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// storedEntry keeps the original bytes so entries of other services are
// written back unchanged
type storedEntry struct {
	raw   json.RawMessage
	entry FileEntry
}

// FileBackend keeps credentials in a JSON array readable only by the owner.
// It is the fallback on platforms without a native secret store.
type FileBackend struct {
	path   string
	prefix string
	fs     sys.FileSystem
	logger *slog.Logger
	mu     sync.Mutex
}

// DefaultFilePath returns the secrets file location in the user's home directory
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileDir, DefaultFileName), nil
}

// NewFileBackend creates a file backend storing entries at path
func NewFileBackend(path, prefix string, fs sys.FileSystem, logger *slog.Logger) *FileBackend {
	return &FileBackend{
		path:   path,
		prefix: prefix,
		fs:     fs,
		logger: logger,
	}
}

// Name implements Backend
func (b *FileBackend) Name() string {
	return BackendFile
}

// Path returns the location of the secrets file
func (b *FileBackend) Path() string {
	return b.path
}

// Get implements Backend
func (b *FileBackend) Get(ctx context.Context) (*credentials.Credentials, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.load()
	if err != nil {
		return nil, err
	}

	var matches []FileEntry
	for _, e := range entries {
		if e.entry.Service == b.prefix {
			matches = append(matches, e.entry)
		}
	}

	entry, ok := pickFirst(b.logger, b.Name(), matches)
	if !ok {
		return nil, nil
	}

	creds := credentials.New(entry.URL, entry.Username, entry.Password)
	return &creds, nil
}

// Set implements Backend. Entries of this service are replaced, others kept.
func (b *FileBackend) Set(ctx context.Context, creds credentials.Credentials) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.load()
	if err != nil {
		return err
	}

	kept := b.others(entries)
	entry := FileEntry{
		Service:  b.prefix,
		URL:      creds.ServerURL,
		Username: creds.User,
		Password: creds.Password,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal credential entry: %w", err)
	}
	kept = append(kept, storedEntry{raw: raw, entry: entry})

	if err := b.save(kept); err != nil {
		return err
	}

	b.logger.Debug("Credential written", "backend", b.Name(), "file_path", b.path)
	return nil
}

// Remove implements Backend
func (b *FileBackend) Remove(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.load()
	if err != nil {
		return err
	}

	kept := b.others(entries)
	if len(kept) == len(entries) {
		b.logger.Debug("No credentials to remove", "backend", b.Name(), "file_path", b.path)
		return nil
	}

	if err := b.save(kept); err != nil {
		return err
	}

	b.logger.Debug("Credentials removed",
		"backend", b.Name(),
		"count", len(entries)-len(kept))
	return nil
}

func (b *FileBackend) others(entries []storedEntry) []storedEntry {
	kept := make([]storedEntry, 0, len(entries))
	for _, e := range entries {
		if e.entry.Service != b.prefix {
			kept = append(kept, e)
		}
	}
	return kept
}

// load reads the secrets file. A missing or empty file is an empty store.
func (b *FileBackend) load() ([]storedEntry, error) {
	exists, err := b.fs.Exists(b.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat secrets file: %w", ErrBackend, err)
	}
	if !exists {
		return nil, nil
	}

	data, err := b.fs.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read secrets file: %w", ErrBackend, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: failed to parse secrets file (invalid JSON syntax): %w", ErrBackend, err)
	}

	entries := make([]storedEntry, 0, len(raws))
	for _, raw := range raws {
		var entry FileEntry
		// Elements that are not objects belong to nobody we know; keep them as is.
		_ = json.Unmarshal(raw, &entry)
		entries = append(entries, storedEntry{raw: raw, entry: entry})
	}
	return entries, nil
}

// save replaces the whole secrets file
func (b *FileBackend) save(entries []storedEntry) error {
	if err := b.fs.MkdirAll(filepath.Dir(b.path), dirMode); err != nil {
		return fmt.Errorf("%w: failed to create secrets directory: %w", ErrBackend, err)
	}

	raws := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		raws = append(raws, e.raw)
	}

	data, err := json.MarshalIndent(raws, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secrets file: %w", err)
	}

	if err := b.fs.WriteFile(b.path, data, fileMode); err != nil {
		return fmt.Errorf("%w: failed to write secrets file: %w", ErrBackend, err)
	}
	return nil
}
