package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarer-ai/wayfarer/internal/adapter/advisory"
	"github.com/wayfarer-ai/wayfarer/internal/adapter/amadeus"
	wfhttp "github.com/wayfarer-ai/wayfarer/internal/adapter/http"
	"github.com/wayfarer-ai/wayfarer/internal/adapter/llm"
	wfnats "github.com/wayfarer-ai/wayfarer/internal/adapter/nats"
	"github.com/wayfarer-ai/wayfarer/internal/adapter/otel"
	"github.com/wayfarer-ai/wayfarer/internal/adapter/postgres"
	"github.com/wayfarer-ai/wayfarer/internal/adapter/ristretto"
	"github.com/wayfarer-ai/wayfarer/internal/adapter/ws"
	"github.com/wayfarer-ai/wayfarer/internal/config"
	"github.com/wayfarer-ai/wayfarer/internal/domain/taskdef"
	"github.com/wayfarer-ai/wayfarer/internal/logger"
	"github.com/wayfarer-ai/wayfarer/internal/planner"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
	"github.com/wayfarer-ai/wayfarer/internal/resilience"
	"github.com/wayfarer-ai/wayfarer/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := wfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Extraction cache
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- Providers ---
	extract := llm.NewExtractor(cfg.LLM)
	extract.SetCache(cache, cfg.Cache.ExtractionTTL)
	extract.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	amadeusClient := amadeus.NewClient(cfg.Amadeus)
	amadeusClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	advisoryClient := advisory.NewClient(cfg.Advisory)
	advisoryClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	advisoryClient.SetCache(cache, cfg.Cache.ProviderTTL)

	providers := provider.Set{
		taskdef.TaskDestinationDiscovery: amadeusClient.DestinationDiscovery(),
		taskdef.TaskFlightSearch:         amadeusClient.FlightSearch(),
		taskdef.TaskHotelSearch:          amadeusClient.HotelSearch(),
		taskdef.TaskSeatMap:              amadeusClient.SeatMap(),
		taskdef.TaskEventSearch:          advisoryClient.EventSearch(),
		taskdef.TaskVisaCheck:            advisoryClient.VisaCheck(),
		taskdef.TaskHealthAdvisory:       advisoryClient.HealthAdvisory(),
		taskdef.TaskInsuranceQuote:       advisoryClient.InsuranceQuote(),
		taskdef.TaskOfferEnrichment:      planner.OfferEnrichment(),
		taskdef.TaskFlightCuration:       planner.FlightCuration(),
		taskdef.TaskItinerary:            planner.Itinerary(),
	}

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	registry := taskdef.Travel()

	sched := service.NewScheduler(registry, providers, cfg.Orchestrator)
	sched.SetQueue(queue)
	sched.SetBroadcaster(hub)
	sched.SetMetrics(metrics)

	convo := service.NewConversationService(store, store, extract, sched, registry)
	convo.SetQueue(queue)
	convo.SetBroadcaster(hub)
	convo.SetMetrics(metrics)

	// --- HTTP ---
	handlers := &wfhttp.Handlers{
		Conversations: convo,
		Profiles:      store,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(wfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(wfhttp.Tracing)
	r.Use(wfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))

	// Health endpoint with service status
	r.Get("/health", healthHandler(pool, queue, hub))

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWS)

	// API routes
	wfhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := queue.Drain(); err != nil {
		slog.Warn("queue drain", "error", err)
	}
	return nil
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(pool *pgxpool.Pool, queue *wfnats.Queue, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status        string `json:"status"`
		Postgres      string `json:"postgres"`
		NATS          string `json:"nats"`
		WSConnections int    `json:"ws_connections"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{
			Status:        "ok",
			Postgres:      "ok",
			NATS:          "ok",
			WSConnections: hub.ConnectionCount(),
		}
		code := http.StatusOK

		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			status.Postgres = "unreachable"
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if !queue.IsConnected() {
			status.NATS = "disconnected"
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
