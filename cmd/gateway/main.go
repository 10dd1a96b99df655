// Command gateway is the thin entrypoint that wires the Registry, Health
// Tracker, Router and Executor together, loads configuration, and exposes
// Prometheus metrics. It owns no business logic of its own. Grounded on the
// teacher's cmd/agentflow/main.go for the flag-based CLI shape and the
// config/telemetry/logger wiring order.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/CoReason-AI/coreason-arbitrage/audit"
	"github.com/CoReason-AI/coreason-arbitrage/budget"
	"github.com/CoReason-AI/coreason-arbitrage/circuitbreaker"
	"github.com/CoReason-AI/coreason-arbitrage/config"
	"github.com/CoReason-AI/coreason-arbitrage/executor"
	"github.com/CoReason-AI/coreason-arbitrage/gatekeeper"
	"github.com/CoReason-AI/coreason-arbitrage/internal/metrics"
	"github.com/CoReason-AI/coreason-arbitrage/internal/telemetry"
	"github.com/CoReason-AI/coreason-arbitrage/invoker"
	"github.com/CoReason-AI/coreason-arbitrage/registry"
	"github.com/CoReason-AI/coreason-arbitrage/router"
)

func main() {
	fs := flag.NewFlagSet("gateway", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(os.Args[1:])

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer otelProviders.Shutdown(context.Background())

	reg := registry.New(logger)
	for _, m := range cfg.Arbitrage.Models {
		if err := reg.Register(m.ToDefinition()); err != nil {
			logger.Warn("skipping invalid model from config", zap.String("id", m.ID), zap.Error(err))
		}
	}

	tracker := circuitbreaker.New(logger,
		circuitbreaker.WithWindow(cfg.Arbitrage.FailureWindow),
		circuitbreaker.WithThreshold(cfg.Arbitrage.FailureThreshold),
		circuitbreaker.WithCooldown(cfg.Arbitrage.Cooldown),
	)

	budgetClient := budget.NewInMemoryClient(logger)
	auditClient := audit.NewInMemoryClient(logger, 10000)
	collector := metrics.NewCollector("arbitrage")

	r := router.New(reg, tracker, budgetClient, logger, router.WithMetrics(collector))
	inv := invoker.New(logger)
	classifier := gatekeeper.New()

	exec := executor.New(r, tracker, inv, classifier, logger,
		executor.WithBudget(budgetClient),
		executor.WithAudit(auditClient),
		executor.WithFallbackModel(cfg.Arbitrage.FallbackModel),
		executor.WithMaxAttempts(cfg.Arbitrage.MaxAttempts),
		executor.WithMetrics(collector),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/v1/chat/completions", newCompletionsHandler(exec, logger))

	addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("gateway listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(logger, server, cfg)
}

func waitForShutdown(logger *zap.Logger, server *http.Server, cfg *config.Config) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
