// Package middleware holds the HTTP middleware chain of the dashboard API:
// request IDs, CORS, security headers, rate limiting, body limits, request
// validation and OpenTelemetry instrumentation.
//
// Recommended order:
//
//	r.Use(middleware.RequestID)
//	r.Use(chimiddleware.RealIP)
//	r.Use(errorMiddleware.Handler)
//	r.Use(otelMiddleware.Handler)
//	r.Use(middleware.CORS(corsConfig))
//	r.Use(middleware.SecurityHeaders)
//	r.Use(rateLimiter.Handler)
package middleware
