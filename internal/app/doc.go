// Package app wires the dashboard server together: configuration, logging,
// OpenTelemetry, the session store, the dashboard service and the chi router.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, SOLARCLEAN_* environment)
//	2. Resolve paths and initialize the slog logger
//	3. Initialize OpenTelemetry (stdout traces, Prometheus metrics)
//	4. Create the session store, the optional Google Sheets source and the services
//	5. Build the router and the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM, then shuts the server down within
// server.shutdown_timeout. Sessions live in memory and are dropped on exit.
// The app does not call os.Exit; the main function controls the exit code.
package app
