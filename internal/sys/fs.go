package sys

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileSystem is the narrow file API used by the file-backed credential store
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces the whole file atomically with the given permissions
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) (bool, error)
	MkdirAll(path string, perm os.FileMode) error
}

// AferoFS implements FileSystem on top of an afero filesystem
type AferoFS struct {
	fs afero.Fs
}

// NewFileSystem wraps an afero filesystem
func NewFileSystem(fs afero.Fs) *AferoFS {
	return &AferoFS{fs: fs}
}

// NewOSFileSystem returns a FileSystem backed by the real disk
func NewOSFileSystem() *AferoFS {
	return NewFileSystem(afero.NewOsFs())
}

// ReadFile implements FileSystem
func (a *AferoFS) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(a.fs, path)
}

// Exists implements FileSystem
func (a *AferoFS) Exists(path string) (bool, error) {
	return afero.Exists(a.fs, path)
}

// MkdirAll implements FileSystem
func (a *AferoFS) MkdirAll(path string, perm os.FileMode) error {
	return a.fs.MkdirAll(path, perm)
}

// WriteFile writes data to a temp file in the same directory and renames it
// over path, so readers never observe a partially written file.
func (a *AferoFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tempFile, err := afero.TempFile(a.fs, dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	// Ensure temp file cleanup on error
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			a.fs.Remove(tempPath)
		}
	}()

	if err := a.fs.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tempFile = nil

	if err := a.fs.Rename(tempPath, path); err != nil {
		a.fs.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
