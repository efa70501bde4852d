package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"solarclean/pkg/contracts"
)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	SessionCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version       string
	buildTime     string
	sessions      SessionCounter
	sheetsEnabled bool
	startTime     time.Time
	logger        *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version, buildTime string, sessions SessionCounter, sheetsEnabled bool, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:       version,
		buildTime:     buildTime,
		sessions:      sessions,
		sheetsEnabled: sheetsEnabled,
		startTime:     time.Now(),
		logger:        logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check", slog.Duration("uptime", time.Since(hs.startTime)))
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports the state of each dependency. The Google Sheets
// source being disabled does not make the service unready.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]ServiceHealth),
	}

	if hs.sessions == nil {
		status.Services["sessions"] = ServiceHealth{Status: "not_ready", Message: "session store not initialized"}
		status.Status = "not_ready"
	} else {
		status.Services["sessions"] = ServiceHealth{Status: "ready"}
	}

	if hs.sheetsEnabled {
		status.Services["google_sheets"] = ServiceHealth{Status: "ready"}
	} else {
		status.Services["google_sheets"] = ServiceHealth{Status: "disabled", Message: "no credentials configured"}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	runtimeInfo := map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.sessions != nil {
		runtimeInfo["sessions"] = hs.sessions.SessionCount()
	}
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   runtimeInfo,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":     hs.version,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
		"api":         contracts.APIVersion,
		"data_format": contracts.DataFormatVersion,
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}
