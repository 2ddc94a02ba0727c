package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

const stagingDirName = ".staging"

// Manager hands out staging directories below a cache root.
type Manager struct {
	baseDir    string
	stagingDir string
	logger     *slog.Logger
}

// NewManager creates a manager rooted at baseDir (os.TempDir when empty).
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		baseDir:    baseDir,
		stagingDir: filepath.Join(baseDir, stagingDirName),
		logger:     logger,
	}
}

// Create ensures the staging area exists.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.stagingDir, 0o750); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// GetPath returns the cache root.
func (m *Manager) GetPath() string {
	return m.baseDir
}

// Stage creates a fresh, uniquely named staging directory.
func (m *Manager) Stage(prefix string) (string, error) {
	if err := m.Create(); err != nil {
		return "", err
	}
	prefix = strings.NewReplacer("/", "-", "\\", "-").Replace(prefix)
	dir, err := os.MkdirTemp(m.stagingDir, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

// Promote moves a staged directory to dest. If dest already exists the staged
// copy is discarded and the existing entry wins.
func (m *Manager) Promote(staged, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		m.logger.Debug("Destination already present, discarding staged copy", logfields.Path(dest))
		return os.RemoveAll(staged)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.Rename(staged, dest); err != nil {
		if _, statErr := os.Stat(dest); statErr == nil {
			return os.RemoveAll(staged)
		}
		return fmt.Errorf("failed to promote staged directory: %w", err)
	}
	return nil
}

// Discard removes a staged directory, ignoring a missing path.
func (m *Manager) Discard(staged string) {
	if err := os.RemoveAll(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("Failed to discard staging directory", logfields.Path(staged), logfields.Error(err))
	}
}

// Cleanup removes the whole staging area. Promoted entries are untouched.
func (m *Manager) Cleanup() error {
	if err := os.RemoveAll(m.stagingDir); err != nil {
		return fmt.Errorf("failed to cleanup staging area: %w", err)
	}
	m.logger.Debug("Cleaned up staging area", logfields.Path(m.stagingDir))
	return nil
}
