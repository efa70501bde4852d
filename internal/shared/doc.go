// Package shared holds code used by several packages that belongs to none of
// them. Its testutil subpackage provides generated workbook fixtures and a
// buffered slog handler for asserting on log output.
package shared
