package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apierrors "solarclean/internal/errors"
	"solarclean/internal/dataprocessing"
)

// LockFilePrefix marks the lock files office suites leave next to open workbooks.
const LockFilePrefix = "~$"

// FileValidator checks uploads and batch inputs before they reach the loader.
type FileValidator struct {
	extensions []string
	maxBytes   int64
	logger     *slog.Logger
}

// NewFileValidator creates a validator. Empty extensions fall back to the
// workbook formats the parser understands; maxBytes <= 0 disables the size check.
func NewFileValidator(extensions []string, maxBytes int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if len(extensions) == 0 {
		extensions = dataprocessing.SupportedExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &FileValidator{
		extensions: normalized,
		maxBytes:   maxBytes,
		logger:     logger.With(slog.String("component", "file_validator")),
	}
}

// Extensions returns the accepted workbook extensions.
func (v *FileValidator) Extensions() []string {
	return append([]string(nil), v.extensions...)
}

// ValidateUpload checks the name and declared size of an uploaded workbook.
func (v *FileValidator) ValidateUpload(filename string, size int64) error {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return apierrors.ErrValidation("file", "file name is required")
	}
	if strings.HasPrefix(name, LockFilePrefix) {
		return apierrors.ErrValidation("file", "lock files cannot be loaded")
	}
	if !v.AcceptsExtension(name) {
		v.logger.Warn("upload rejected",
			slog.String("file", name),
			slog.String("reason", "extension"))
		return fmt.Errorf("%w: %s", dataprocessing.ErrUnsupportedFormat, filepath.Ext(name))
	}
	if size == 0 {
		return apierrors.ErrValidation("file", "file is empty")
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("upload rejected",
			slog.String("file", name),
			slog.String("reason", "size"),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxBytes))
		return apierrors.NewWithDetails(apierrors.ErrUploadTooLarge.StatusCode, apierrors.ErrUploadTooLarge.ErrorCode,
			apierrors.ErrUploadTooLarge.Message, map[string]int64{"size": size, "limit": v.maxBytes})
	}
	return nil
}

// AcceptsExtension reports whether name carries one of the accepted extensions.
func (v *FileValidator) AcceptsExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range v.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ValidateInputDirectory checks that dir exists and is a directory.
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("input directory does not exist", slog.String("directory", dir))
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("input path is not a directory", slog.String("path", dir))
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := tmp.Name()
	tmp.Close()
	os.Remove(name)

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateWorkbookFile checks that path is a readable workbook and not a lock file.
func (v *FileValidator) ValidateWorkbookFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if strings.HasPrefix(filepath.Base(path), LockFilePrefix) {
		return fmt.Errorf("file %s is a lock file", path)
	}
	if !v.AcceptsExtension(path) {
		return fmt.Errorf("%w: %s", dataprocessing.ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	f.Close()
	return nil
}
