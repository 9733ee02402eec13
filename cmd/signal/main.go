package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"roomcast/internal/core/ports"
	httphandlers "roomcast/internal/handlers/http"
	"roomcast/internal/infrastructure/distributed"
	"roomcast/internal/infrastructure/monitoring"
	"roomcast/internal/infrastructure/repositories/memory"
	sig "roomcast/internal/infrastructure/signal"
	"roomcast/internal/infrastructure/sfu"
	"roomcast/pkg/circuitbreaker"
	"roomcast/pkg/config"
	"roomcast/pkg/logger"
	"roomcast/pkg/retry"
	"roomcast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			log.Printf("Loaded config from: %s", path)
			break
		}
	}
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	slog := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		slog.Fatalw("failed to initialize tracing", "error", err)
	}

	var collector *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled {
		collector = monitoring.NewPrometheusCollector()
	}

	// Room event publisher
	var events ports.RoomEventPublisher
	switch cfg.Events.Mode {
	case "http":
		events = distributed.NewHTTPPublisher(distributed.HTTPPublisherConfig{
			Endpoint: cfg.Events.Endpoint,
			DLQPath:  cfg.Events.DLQPath,
			Retry: retry.Config{
				MaxAttempts:  cfg.Events.Retry.MaxAttempts,
				InitialDelay: cfg.Events.Retry.InitialDelay,
				MaxDelay:     cfg.Events.Retry.MaxDelay,
				Multiplier:   2.0,
				Jitter:       true,
			},
		}, slog)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		events = distributed.NewRedisPublisher(client, cfg.Events.Channel, slog)
	default:
		events = distributed.NewNoopPublisher()
	}

	// SFU client, optionally behind a circuit breaker
	var breaker *circuitbreaker.CircuitBreaker
	if cfg.Sfu.CircuitBreaker.Enabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.Sfu.CircuitBreaker.FailureThreshold,
			SuccessThreshold: cfg.Sfu.CircuitBreaker.SuccessThreshold,
			OpenTimeout:      cfg.Sfu.CircuitBreaker.OpenTimeout,
		})
		breaker.OnStateChange(func(from, to circuitbreaker.State) {
			slog.Warnw("sfu circuit breaker state changed", "from", from.String(), "to", to.String())
		})
	}
	sfuClient, err := sfu.NewHTTPClient(sfu.Config{
		BaseURL:         cfg.Sfu.BaseURL,
		ConnectTimeout:  cfg.Sfu.ConnectTimeout,
		ResponseTimeout: cfg.Sfu.ResponseTimeout,
		Breaker:         breaker,
		Metrics:         collector,
	}, slog)
	if err != nil {
		slog.Fatalw("failed to create sfu client", "error", err)
	}

	// Single composition of shared state: the directory and registry are the
	// only shared mutable resources.
	directory := memory.NewMemoryRoomDirectory()
	registry := sig.NewConnectionRegistry(slog)
	dispatcher := sig.NewSignalingDispatcher(directory, registry, sfuClient, events, collector, slog)
	wsServer := sig.NewWebSocketServer(registry, dispatcher, directory, collector, slog)
	wsServer.SetPingInterval(cfg.Signal.PingInterval)
	wsServer.SetPongTimeout(cfg.Signal.PongTimeout)
	wsServer.SetWriteTimeout(cfg.Signal.WriteTimeout)
	if cfg.RateLimiting.Enabled {
		wsServer.SetRateLimit(sig.RateLimit{
			MessagesPerSecond: cfg.RateLimiting.WebSocket.MessagesPerSecond,
			Burst:             cfg.RateLimiting.WebSocket.Burst,
		})
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))
	router.GET("/health", gin.WrapF(wsServer.HealthCheck))
	if cfg.Monitoring.PrometheusEnabled {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
	httphandlers.NewRoomHandler(directory).SetupRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Infow("starting roomcast signaling server", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Errorw("server shutdown failed", "error", err)
	}
	if err := events.Close(); err != nil {
		slog.Warnw("event publisher close failed", "error", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		slog.Warnw("tracer shutdown failed", "error", err)
	}
}
