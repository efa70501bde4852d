package services

import "errors"

// Dashboard service errors
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrEmptyUpload       = errors.New("uploaded workbook is empty")
	ErrSourceUnavailable = errors.New("remote spreadsheet unavailable")
	ErrInvalidPolicy     = errors.New("invalid target policy")
	ErrExportFailed      = errors.New("export failed")
)
