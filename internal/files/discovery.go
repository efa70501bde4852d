package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// lockPrefix marks the lock files office suites leave next to open workbooks.
const lockPrefix = "~$"

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds workbooks on disk. Relative paths resolve against basePath.
type Discovery struct {
	basePath   string
	extensions []string
}

// NewDiscovery creates a new file discovery instance accepting the given
// extensions (with leading dot, any case).
func NewDiscovery(basePath string, extensions []string) *Discovery {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		normalized = append(normalized, strings.ToLower(ext))
	}
	return &Discovery{basePath: basePath, extensions: normalized}
}

// IsWorkbook reports whether name is a workbook this discovery accepts.
// Lock files are never workbooks.
func (d *Discovery) IsWorkbook(name string) bool {
	if strings.HasPrefix(name, lockPrefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range d.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindWorkbooks lists the workbooks directly inside dir, sorted by name.
func (d *Discovery) FindWorkbooks(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !d.IsWorkbook(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Collect expands a mix of workbook paths and directories into a de-duplicated
// list. Explicit files must be workbooks; directories contribute the workbooks
// they contain.
func (d *Discovery) Collect(paths ...string) ([]FileInfo, error) {
	seen := make(map[string]bool)
	var out []FileInfo
	add := func(fi FileInfo) {
		if !seen[fi.Path] {
			seen[fi.Path] = true
			out = append(out, fi)
		}
	}

	for _, p := range paths {
		full := d.resolve(p)
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", full, err)
		}
		if info.IsDir() {
			found, err := d.FindWorkbooks(full)
			if err != nil {
				return nil, err
			}
			for _, fi := range found {
				add(fi)
			}
			continue
		}
		if !d.IsWorkbook(info.Name()) {
			return nil, fmt.Errorf("%s is not a workbook", full)
		}
		add(FileInfo{Path: full, Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

func (d *Discovery) resolve(path string) string {
	if filepath.IsAbs(path) || d.basePath == "" {
		return path
	}
	return filepath.Join(d.basePath, path)
}
