package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved directories used by the binaries.
type Paths struct {
	BaseDir    string
	LogsDir    string
	ExportsDir string
}

// ResolvePaths resolves the configured directories. Relative entries are
// anchored at Paths.BaseDir, which defaults to the executable directory.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}

	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:    base,
		LogsDir:    resolve(c.Paths.LogsDir, DefaultLogsDir),
		ExportsDir: resolve(c.Paths.ExportsDir, DefaultExportsDir),
	}, nil
}

// EnsureDirectories creates the directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.LogsDir, p.ExportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogFile returns the log file path, anchored at the base directory when relative.
func (p *Paths) LogFile(configured string) string {
	if configured == "" {
		configured = DefaultLogFile
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(p.BaseDir, configured)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}
