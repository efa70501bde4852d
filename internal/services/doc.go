// Package services holds the dashboard business layer between the HTTP
// handlers and the dataprocessing package.
//
// DashboardService loads workbooks (uploads or Google spreadsheets) into
// sessions kept by a SessionStore, and answers progress, filter, record and
// export queries against a session's immutable dataset. Every query
// re-aggregates from the dataset; nothing is cached between requests.
//
// Sessions expire after an idle TTL and the store evicts the least recently
// used session once it holds the configured maximum.
//
// Errors are returned as sentinels (ErrSessionNotFound, ErrEmptyUpload,
// ErrSourceUnavailable, ErrInvalidPolicy) or as dataprocessing errors; the
// transport layer maps them to problem documents.
package services
