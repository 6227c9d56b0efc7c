// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package collab provides the collaborative editing service for
// AleutianCollab.
//
// This package contains the main Service type that coordinates all
// components: the session hub, HTTP and WebSocket routing, the session
// archive, the reaper, and observability infrastructure.
//
// # Enterprise Integration
//
// The service supports dependency injection via extensions.ServiceOptions,
// enabling AleutianEnterprise to provide custom implementations of:
//   - AuthProvider: Custom authentication (JWT, API keys)
//   - AuditLogger: Compliance audit logging
//
// # Usage
//
// Open source (uses no-op defaults):
//
//	cfg := collab.Config{Port: 12240}
//	svc, err := collab.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
//
// Enterprise (with custom implementations):
//
//	opts := &extensions.ServiceOptions{
//	    AuthProvider: enterpriseAuth,
//	    AuditLogger:  enterpriseAudit,
//	}
//	svc, err := collab.New(cfg, opts)
package collab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianCollab/pkg/extensions"
	"github.com/AleutianAI/AleutianCollab/services/collab/archive"
	"github.com/AleutianAI/AleutianCollab/services/collab/hub"
	"github.com/AleutianAI/AleutianCollab/services/collab/observability"
	"github.com/AleutianAI/AleutianCollab/services/collab/routes"
	"github.com/AleutianAI/AleutianCollab/services/collab/ttl"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the collab service.
//
// # Description
//
// Service abstracts the service lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are
// exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	//
	// # Outputs
	//
	//   - error: Non-nil if the server fails to start or encounters a
	//     fatal error
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Outputs
	//
	//   - *gin.Engine: The configured router with all routes registered
	//
	// # Assumptions
	//
	//   - Caller will not modify the router
	Router() *gin.Engine

	// Close releases service resources without running the server.
	// Run() performs the same cleanup on exit; Close exists for tests
	// and for callers that never start the server.
	Close()
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds collab service configuration options.
//
// # Description
//
// Config centralizes all configuration for the collab service. Values
// can be populated from environment variables, config files, or
// programmatically for testing.
//
// # Required Fields
//
// None - all fields have sensible defaults.
type Config struct {
	// Port is the HTTP server port. Default: 12240
	Port int

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "aleutian-otel-collector:4317"
	OTelEndpoint string

	// EnableTracing enables OTLP trace export. Default: false
	EnableTracing bool

	// DisableMetrics turns off Prometheus metric recording. Metrics are
	// on by default; tests that need registry isolation opt out here.
	DisableMetrics bool

	// ArchivePath is the on-disk location of the session archive.
	// Default: "./data/collab-archive"
	ArchivePath string

	// ArchiveInMemory runs the archive without persistence. Used by
	// tests and throwaway deployments. Default: false
	ArchiveInMemory bool

	// ReaperInterval is how often ended sessions are swept into the
	// archive. Default: 1 minute
	ReaperInterval time.Duration

	// DisableReaper keeps the background reaper from starting. The
	// reaper is on by default; without it, ended sessions accumulate in
	// memory and never reach the archive.
	DisableReaper bool
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Fields
//
//   - config: Service configuration
//   - opts: Extension options for enterprise features
//   - router: Gin HTTP engine
//   - hub: In-memory session registry and operation engine
//   - store: Badger-backed session archive (may be nil)
//   - reaper: Background archiver for ended sessions (may be nil)
//   - tracerCleanup: Function to shutdown the tracer on exit
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	hub           *hub.Hub
	store         *archive.Store
	reaper        *ttl.Reaper
	metrics       *observability.CollabMetrics
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a collab Service with the given configuration.
//
// # Description
//
// New initializes all service components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing (when enabled)
//  3. Initializes Prometheus metrics
//  4. Creates the session hub
//  5. Opens the session archive
//  6. Starts the reaper for ended sessions
//  7. Sets up HTTP routes with extension options
//
// If opts is nil, DefaultOptions() is used (no-op implementations).
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//   - opts: Extension options for enterprise features. May be nil.
//
// # Outputs
//
//   - Service: Ready-to-run collab service
//   - error: Non-nil if initialization fails
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
	}

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	if s.config.EnableTracing {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if !s.config.DisableMetrics {
		s.metrics = observability.InitMetrics()
		slog.Info("collab: initialized Prometheus metrics")
	}

	s.hub = hub.New(hub.WithMetrics(s.metrics))

	if err := s.initArchive(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open session archive: %w", err)
	}

	if !s.config.DisableReaper && s.store != nil {
		if err := s.initReaper(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to start reaper: %w", err)
		}
	}

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.Close()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("collab: starting server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close releases all resources held by the service.
//
// # Description
//
// Stops the reaper, flushes the audit logger, closes the archive, and
// shuts down the tracer. Safe to call more than once; subsequent calls
// are no-ops for already-released resources.
func (s *service) Close() {
	if s.reaper != nil {
		if err := s.reaper.Stop(); err != nil {
			slog.Warn("collab: reaper stop error", "error", err)
		}
		s.reaper = nil
	}

	if s.opts.AuditLogger != nil {
		if err := s.opts.AuditLogger.Flush(context.Background()); err != nil {
			slog.Warn("collab: audit flush error", "error", err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("collab: archive close error", "error", err)
		}
		s.store = nil
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12240
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "aleutian-otel-collector:4317"
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = "./data/collab-archive"
	}
	if cfg.ReaperInterval == 0 {
		cfg.ReaperInterval = time.Minute
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up an OTLP trace exporter to send spans to the configured
// collector.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
//
// # Limitations
//
//   - Uses an insecure gRPC connection (appropriate for internal
//     networks)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("collab-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("collab: failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initArchive opens the badger-backed session archive.
func (s *service) initArchive() error {
	var cfg archive.Config
	if s.config.ArchiveInMemory {
		cfg = archive.InMemoryConfig()
	} else {
		cfg = archive.DefaultConfig(s.config.ArchivePath)
	}
	cfg.Logger = slog.Default()

	store, err := archive.Open(cfg)
	if err != nil {
		return err
	}
	s.store = store

	slog.Info("collab: session archive opened",
		"path", s.config.ArchivePath,
		"in_memory", s.config.ArchiveInMemory,
	)
	return nil
}

// initReaper starts the background sweep of ended sessions into the
// archive.
func (s *service) initReaper() error {
	reaperConfig := ttl.DefaultReaperConfig()
	reaperConfig.Interval = s.config.ReaperInterval

	s.reaper = ttl.NewReaper(s.hub, s.store, reaperConfig,
		ttl.WithAuditLogger(s.opts.AuditLogger),
		ttl.WithMetrics(s.metrics),
	)

	if err := s.reaper.Start(context.Background()); err != nil {
		return err
	}

	slog.Info("collab: reaper started", "interval", s.config.ReaperInterval.String())
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
//
// # Assumptions
//
//   - The hub and archive are initialized
func (s *service) initRouter() {
	s.router = gin.Default()
	if s.config.EnableTracing {
		s.router.Use(otelgin.Middleware("collab-service"))
	}

	routes.SetupRoutes(s.router, s.hub, s.store, s.opts, s.metrics)
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
