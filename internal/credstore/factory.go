package credstore

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/mazurov/tc-credentials/internal/sys"
)

// Platform identifies the host operating system
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformDarwin  Platform = "darwin"
	PlatformLinux   Platform = "linux"
)

// CurrentPlatform returns the platform this binary runs on
func CurrentPlatform() Platform {
	return Platform(runtime.GOOS)
}

// Options configures backend selection
type Options struct {
	// ServicePrefix scopes stored entries. Defaults to DefaultServicePrefix.
	ServicePrefix string

	// Backend forces a backend by name. Empty or "auto" selects by platform.
	Backend string

	// FilePath is the secrets file of the file backend
	FilePath string

	// WinCredHelper is the credential manager helper executable
	WinCredHelper string

	// SecurityPath is the macOS security utility
	SecurityPath string
}

// Deps are the collaborators backends are built from
type Deps struct {
	Runner  sys.CommandRunner
	FS      sys.FileSystem
	Keyring Keyring
	Logger  *slog.Logger
}

// BackendForPlatform maps a platform to its native backend.
// Unrecognized platforms fall back to the file backend.
func BackendForPlatform(p Platform) string {
	switch p {
	case PlatformWindows:
		return BackendWinCred
	case PlatformDarwin:
		return BackendKeychain
	default:
		return BackendFile
	}
}

// NewBackend creates the backend for the platform, or the one forced by opts.Backend:
//   - windows -> WinCredBackend
//   - darwin -> KeychainBackend
//   - linux and anything else -> FileBackend
func NewBackend(p Platform, opts Options, deps Deps) (Backend, error) {
	prefix := opts.ServicePrefix
	if prefix == "" {
		prefix = DefaultServicePrefix
	}

	name := opts.Backend
	if name == "" || name == BackendAuto {
		name = BackendForPlatform(p)
	}

	switch name {
	case BackendWinCred:
		return NewWinCredBackend(opts.WinCredHelper, prefix, deps.Runner, deps.Logger), nil

	case BackendKeychain:
		return NewKeychainBackend(opts.SecurityPath, prefix, deps.Runner, deps.Logger), nil

	case BackendFile:
		path := opts.FilePath
		if path == "" {
			var err error
			if path, err = DefaultFilePath(); err != nil {
				return nil, err
			}
		}
		return NewFileBackend(path, prefix, deps.FS, deps.Logger), nil

	case BackendKeyring:
		return NewKeyringBackend(prefix, deps.Keyring, deps.Logger), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

// NewManagerForPlatform selects a backend once and wraps it in a Manager
func NewManagerForPlatform(p Platform, opts Options, deps Deps) (*Manager, error) {
	backend, err := NewBackend(p, opts, deps)
	if err != nil {
		return nil, err
	}

	deps.Logger.Debug("Credential backend selected",
		"platform", string(p),
		"backend", backend.Name())

	return NewManager(backend, deps.Logger), nil
}
