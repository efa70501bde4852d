// Package http implements the HTTP handlers of the dashboard API.
//
// Handlers stay thin: they parse and validate the request, call the
// dashboard service and translate its errors. Failures are rendered as
// RFC 7807 problem documents by internal/errors.ErrorHandler.
//
// Routes, mounted by internal/app:
//
//	POST   /api/sessions                          multipart "file" upload
//	POST   /api/sessions/sheets                   {"spreadsheet_id": "..."}
//	GET    /api/sessions/{sessionID}
//	DELETE /api/sessions/{sessionID}
//	GET    /api/sessions/{sessionID}/filters
//	GET    /api/sessions/{sessionID}/progress     ?date&inverter&box&tracker&target
//	GET    /api/sessions/{sessionID}/records      ?date&inverter&box&tracker
//	GET    /api/sessions/{sessionID}/export/{format}
//	GET    /api/health, /api/health/live, /api/health/ready, /api/version
//
// Filter criteria accept the "all" sentinels ("", "all", "Todos"). The target
// parameter selects the percentage denominator: "selection" resolves it over
// the filtered records, "dataset" over the whole workbook.
package http
