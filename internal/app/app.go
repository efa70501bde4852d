package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"

	"solarclean/internal/config"
	"solarclean/internal/dataprocessing"
	apierrors "solarclean/internal/errors"
	"solarclean/internal/infrastructure"
	customMiddleware "solarclean/internal/middleware"
	"solarclean/internal/services"
	handlers "solarclean/internal/transport/http"
	"solarclean/internal/validation"
	"solarclean/pkg/contracts"
	"solarclean/pkg/contracts/domain"
)

const (
	VERSION = "v" + contracts.Version
	AppName = config.AppName
)

var (
	// BuildTime is set at link time with -ldflags "-X solarclean/internal/app.BuildTime=..."
	BuildTime = ""
	// BuildID is a short identifier of this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(BuildTime))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Sessions      *services.SessionStore
	Dashboard     *services.DashboardService
	HealthService *services.HealthService

	registrations []metric.Registration
}

// NewApplication loads configuration, sets up logging and builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	if cfg.Logging.Output != "console" {
		cfg.Logging.FilePath = paths.LogFile(cfg.Logging.FilePath)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("build_id", BuildID),
		slog.String("base_dir", paths.BaseDir),
		slog.String("logs_dir", paths.LogsDir))

	return New(context.Background(), cfg, logger)
}

// New wires the services, router and server for an already loaded config.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry, VERSION), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(ctx); err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	a.Sessions = services.NewSessionStore(a.Config.Sessions.TTL, a.Config.Sessions.MaxSessions, a.Logger)

	deps := services.DashboardDeps{
		Store:        a.Sessions,
		Metrics:      metrics,
		Tracer:       a.OTelProviders.Tracer,
		Logger:       a.Logger,
		TargetPolicy: domain.TargetPolicy(a.Config.Progress.TargetPolicy),
	}
	if a.Config.Sources.GoogleSheets.Enabled() {
		reader, err := dataprocessing.NewSheetsReader(ctx, a.Config.Sources.GoogleSheets.ReaderConfig(), a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Google Sheets source: %w", err)
		}
		deps.Sheets = reader
	} else {
		a.Logger.Info("Google Sheets source disabled, no credentials configured")
	}
	a.Dashboard = services.NewDashboardService(deps)

	a.HealthService = services.NewHealthService(VERSION, BuildTime, a.Dashboard, a.Dashboard.SheetsEnabled(), a.Logger)

	runtimeReg, err := infrastructure.RegisterRuntimeMetrics(a.OTelProviders.Meter, time.Now())
	if err != nil {
		return fmt.Errorf("failed to register runtime metrics: %w", err)
	}
	sessionReg, err := infrastructure.RegisterSessionGauge(a.OTelProviders.Meter, a.Sessions.Len)
	if err != nil {
		_ = runtimeReg.Unregister()
		return fmt.Errorf("failed to register session gauge: %w", err)
	}
	a.registrations = append(a.registrations, runtimeReg, sessionReg)
	return nil
}

// setupRouter configures the HTTP router with all routes.
//
// Order: RequestID → RealIP → OTel → ErrorMiddleware (logging, recovery) →
// SecurityHeaders → CORS → RateLimiter, then a per-request Timeout on /api.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	uploads := validation.NewFileValidator(a.Config.Upload.Extensions, a.Config.Upload.MaxBytes, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, uploads, a.Config.Upload.MaxBytes, a.Logger, errorHandler)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/sessions", dashboardHandler.Routes())
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// sweepInterval is how often expired sessions are removed.
func (a *Application) sweepInterval() time.Duration {
	interval := a.Config.Sessions.TTL / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

// Start launches the session janitor and the HTTP server. A server failure
// cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level),
		slog.String("target_policy", a.Config.Progress.TargetPolicy),
		slog.Bool("google_sheets", a.Dashboard.SheetsEnabled()))

	go a.Sessions.Run(ctx, a.sweepInterval())

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	for _, reg := range a.registrations {
		if err := reg.Unregister(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete", slog.Int("sessions_dropped", a.Sessions.Len()))
	return errors.Join(errs...)
}

// Run runs the application until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(runCtx, cancel); err != nil {
		return err
	}

	<-runCtx.Done()
	a.Logger.Info("received shutdown signal")
	return a.Stop(context.Background())
}
