package browsers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
)

// ProfileSource reads extensions from the on-disk profiles of one or more browsers
type ProfileSource struct {
	browsers []Browser
	homeDir  string
	goos     string
	log      *zap.Logger
}

// NewProfileSource creates a source for the given browsers. An empty list scans all of them.
func NewProfileSource(list []Browser, log *zap.Logger) *ProfileSource {
	if len(list) == 0 {
		list = All
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileSource{browsers: list, goos: runtime.GOOS, log: log}
}

// WithHome overrides the home directory and OS used to locate profiles
func (ps *ProfileSource) WithHome(homeDir, goos string) *ProfileSource {
	ps.homeDir = homeDir
	ps.goos = goos
	return ps
}

// UserDataDir returns the user data directory of a browser for the configured OS
func (ps *ProfileSource) UserDataDir(b Browser) (string, error) {
	config, ok := b.Config()
	if !ok {
		return "", fmt.Errorf("unknown browser %q", b)
	}

	homeDir := ps.homeDir
	if homeDir == "" {
		var err error
		homeDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
	}

	switch ps.goos {
	case "windows":
		return filepath.Join(homeDir, filepath.Join(config.WindowsPath...)), nil
	case "darwin": // macOS
		return filepath.Join(homeDir, filepath.Join(config.MacOSPath...)), nil
	case "linux":
		return filepath.Join(homeDir, filepath.Join(config.LinuxPath...)), nil
	default:
		return "", fmt.Errorf("unsupported OS %s for %s", ps.goos, config.Name)
	}
}

// ListExtensions retrieves extensions from every configured browser. A browser that is not
// installed is skipped; the call fails only when none of them could be read.
func (ps *ProfileSource) ListExtensions(ctx context.Context) ([]Extension, error) {
	var allExtensions []Extension
	var lastErr error
	found := 0

	for _, b := range ps.browsers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		basePath, err := ps.UserDataDir(b)
		if err != nil {
			lastErr = err
			continue
		}

		exts, err := ps.getChromiumExtensions(basePath, b)
		if err != nil {
			ps.log.Warn("failed to get extensions", zap.String("browser", b.String()), zap.Error(err))
			lastErr = err
			continue
		}
		found++
		allExtensions = append(allExtensions, exts...)
	}

	if found == 0 && lastErr != nil {
		return nil, &HostError{Op: "list extensions", Err: lastErr}
	}
	return allExtensions, nil
}
