package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stacklok/thv-history-sync/internal/api"
	"github.com/stacklok/thv-history-sync/internal/app/storage"
	"github.com/stacklok/thv-history-sync/internal/capture"
	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/remote"
	"github.com/stacklok/thv-history-sync/internal/service"
	"github.com/stacklok/thv-history-sync/internal/store"
	pkgsync "github.com/stacklok/thv-history-sync/internal/sync"
	"github.com/stacklok/thv-history-sync/internal/sync/coordinator"
	"github.com/stacklok/thv-history-sync/internal/telemetry"
	"github.com/stacklok/thv-history-sync/internal/threads"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 35 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// HistoryAppOptions configures the app builder
type HistoryAppOptions func(*historyAppConfig) error

type historyAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	store        store.Store
	source       remote.Source
	remoteLister threads.Lister
	telemetry    *telemetry.Telemetry

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
	maxBodyBytes   int64
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...HistoryAppOptions) (*historyAppConfig, error) {
	cfg := &historyAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return cfg, nil
}

// NewHistoryApp builds the server application
func NewHistoryApp(ctx context.Context, opts ...HistoryAppOptions) (*HistoryApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, cleanup, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components.HistoryService)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &HistoryApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		telemetry:  cfg.telemetry,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// RunOnce builds the sync components, performs a single run over every
// thread and releases everything again. Thread failures are part of the
// report, not the error.
func RunOnce(ctx context.Context, opts ...HistoryAppOptions) (*pkgsync.Report, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, cleanup, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return components.SyncCoordinator.RunOnce(ctx)
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) HistoryAppOptions {
	return func(cfg *historyAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) HistoryAppOptions {
	return func(cfg *historyAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("address is not a valid host:port: %w", err)
		}
		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) HistoryAppOptions {
	return func(cfg *historyAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStore injects the message store instead of opening the configured one.
// The app takes ownership and closes it on Stop.
func WithStore(st store.Store) HistoryAppOptions {
	return func(cfg *historyAppConfig) error {
		cfg.store = st
		return nil
	}
}

// WithSource injects the remote source instead of the configured HTTP one.
// lister is used when threads are enumerated remotely.
func WithSource(src remote.Source, lister threads.Lister) HistoryAppOptions {
	return func(cfg *historyAppConfig) error {
		cfg.source = src
		cfg.remoteLister = lister
		return nil
	}
}

// WithTelemetry injects already initialized telemetry
func WithTelemetry(t *telemetry.Telemetry) HistoryAppOptions {
	return func(cfg *historyAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// WithMaxBodyBytes limits captured message bodies
func WithMaxBodyBytes(n int64) HistoryAppOptions {
	return func(cfg *historyAppConfig) error {
		if n < 0 {
			return fmt.Errorf("max body bytes cannot be negative")
		}
		cfg.maxBodyBytes = n
		return nil
	}
}

// buildComponents opens the store and wires the sync engine, the coordinator
// and the service. The returned cleanup releases what was created here.
func buildComponents(ctx context.Context, b *historyAppConfig) (*AppComponents, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*AppComponents, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if b.telemetry == nil {
		tel, err := telemetry.New(ctx, b.config.Telemetry)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize telemetry: %w", err))
		}
		b.telemetry = tel
		closers = append(closers, func() {
			if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Failed to shutdown telemetry", "error", err)
			}
		})
	}
	tp := b.telemetry.TracerProvider()
	mp := b.telemetry.MeterProvider()

	if b.store == nil {
		st, err := storage.NewStore(ctx, &b.config.Storage, storage.WithTracer(tp.Tracer(storage.TracerName)))
		if err != nil {
			return fail(fmt.Errorf("failed to open store: %w", err))
		}
		b.store = st
		closers = append(closers, func() {
			if err := st.Close(); err != nil {
				slog.Warn("Failed to close store", "error", err)
			}
		})
	}

	if b.source == nil {
		src, err := remote.NewHTTPSourceFromConfig(ctx, &b.config.Remote)
		if err != nil {
			return fail(fmt.Errorf("failed to create remote source: %w", err))
		}
		b.source = src
		if b.remoteLister == nil {
			b.remoteLister = src
		}
	}

	lister, err := threads.FromConfig(&b.config.Threads, b.remoteLister)
	if err != nil {
		return fail(err)
	}

	syncMetrics, err := telemetry.NewSyncMetrics(mp)
	if err != nil {
		return fail(fmt.Errorf("failed to create sync metrics: %w", err))
	}

	syncOpts := []pkgsync.Option{
		pkgsync.WithTracer(tp.Tracer(pkgsync.TracerName)),
		pkgsync.WithMetrics(syncMetrics),
		pkgsync.WithMaxConcurrentThreads(b.config.Sync.MaxConcurrentThreads),
	}
	manager := pkgsync.NewManager(b.source, b.store, b.config.Sync.GetMaxMessagesPerRequest(), syncOpts...)
	orchestrator := pkgsync.NewOrchestrator(manager, syncOpts...)

	syncCoordinator := coordinator.New(orchestrator, lister,
		coordinator.WithInterval(b.config.Sync.GetInterval()),
		coordinator.WithExecuteOnStart(b.config.Sync.GetExecuteOnStart()),
	)

	svcOpts := []service.Option{service.WithTracer(tp.Tracer(service.TracerName))}

	var filter *capture.Filter
	if b.config.IsCaptureEnabled() {
		captureMetrics, err := telemetry.NewCaptureMetrics(mp)
		if err != nil {
			return fail(fmt.Errorf("failed to create capture metrics: %w", err))
		}
		filter = capture.NewFilter(b.store,
			capture.WithTimeout(b.config.Capture.GetTimeout()),
			capture.WithMetrics(captureMetrics),
			capture.WithTracer(tp.Tracer(capture.TracerName)),
		)
		svcOpts = append(svcOpts, service.WithCapture(filter, b.config.Remote.GetFields()))
		slog.Info("Live capture enabled", "timeout", b.config.Capture.GetTimeout())
	}

	slog.Info("Sync components initialized",
		"thread_source", b.config.Threads.GetSource(),
		"interval", b.config.Sync.GetInterval(),
		"max_messages_per_request", b.config.Sync.GetMaxMessagesPerRequest())

	return &AppComponents{
		Store:           b.store,
		Threads:         lister,
		SyncCoordinator: syncCoordinator,
		Capture:         filter,
		HistoryService:  service.New(b.store, lister, syncCoordinator, svcOpts...),
	}, cleanup, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *historyAppConfig,
	svc service.HistoryService,
) (*http.Server, error) {
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	if b.telemetry != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.telemetry.MeterProvider())
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		b.middlewares = append([]func(http.Handler) http.Handler{
			metricsMiddleware,
			telemetry.TracingMiddleware(b.telemetry.TracerProvider()),
		}, b.middlewares...)
	}

	if b.metricsHandler == nil && b.config.Telemetry.PrometheusEnabled() {
		b.metricsHandler = promhttp.Handler()
	}

	serverOpts := []api.ServerOption{api.WithMiddlewares(b.middlewares...)}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	if b.maxBodyBytes > 0 {
		serverOpts = append(serverOpts, api.WithMaxBodyBytes(b.maxBodyBytes))
	}

	server := &http.Server{
		Addr:              b.address,
		Handler:           api.NewServer(svc, serverOpts...),
		ReadTimeout:       b.readTimeout,
		ReadHeaderTimeout: b.readTimeout,
		WriteTimeout:      b.writeTimeout,
		IdleTimeout:       b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
