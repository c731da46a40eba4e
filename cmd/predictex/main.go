package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evanreis/predictex/internal/config"
	"github.com/evanreis/predictex/internal/dispatch"
	"github.com/evanreis/predictex/internal/engine"
	"github.com/evanreis/predictex/internal/handler"
	"github.com/evanreis/predictex/internal/ledger"
	"github.com/evanreis/predictex/internal/snapshot"
	"github.com/evanreis/predictex/internal/transport"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Engine state and its single mutation path.
	books := engine.NewBooks()
	led := ledger.New()
	store := snapshot.NewStore(cfg.SnapshotDir)
	disp := dispatch.New(books, led, store, logger)

	// Recover from the latest snapshot; on first boot, write an empty
	// baseline so the timer always has a canonical file to replace.
	if err := disp.RestoreLatest(); err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) {
			logger.Error("failed to restore snapshot", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := disp.TakeSnapshot(); err != nil {
			logger.Error("failed to write baseline snapshot", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("no snapshot found, wrote empty baseline", slog.String("path", store.Path()))
	} else {
		logger.Info("state restored from snapshot", slog.String("path", store.Path()))
	}

	// Kafka transports.
	consumer := transport.NewConsumer(cfg.KafkaBrokers, cfg.KafkaCommandsTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	replies := transport.NewPublisher(cfg.KafkaBrokers, cfg.KafkaRepliesTopic)
	defer replies.Close()
	events := transport.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
	defer events.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic snapshot capture.
	go func() {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := disp.TakeSnapshot(); err != nil {
					logger.Error("scheduled snapshot failed", slog.String("error", err.Error()))
				} else {
					logger.Debug("snapshot written", slog.String("path", store.Path()))
				}
			}
		}
	}()

	// Command ingress loop: commands are read and applied one at a time.
	// An unsupported command kind is an ingress contract violation and
	// takes the whole process down.
	ingressDone := make(chan struct{})
	go func() {
		defer close(ingressDone)
		for {
			env, err := consumer.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("dropping unreadable command", slog.String("error", err.Error()))
				continue
			}

			resp, bookEvents, err := disp.Dispatch(env.Message)
			if err != nil {
				logger.Error("unsupported command, terminating",
					slog.String("type", string(env.Message.Type)),
					slog.String("clientId", env.ClientID),
				)
				os.Exit(1)
			}

			key, value, err := transport.EncodeReply(env.ClientID, resp)
			if err != nil {
				logger.Error("failed to encode reply", slog.String("error", err.Error()))
			} else if err := replies.Send(ctx, key, value); err != nil {
				logger.Error("failed to publish reply",
					slog.String("clientId", env.ClientID),
					slog.String("error", err.Error()),
				)
			}

			for _, ev := range bookEvents {
				key, value, err := transport.EncodeEvent(ev.Symbol, ev.Book)
				if err != nil {
					logger.Error("failed to encode book event", slog.String("error", err.Error()))
					continue
				}
				if err := events.Send(ctx, key, value); err != nil {
					logger.Error("failed to publish book event",
						slog.String("symbol", ev.Symbol),
						slog.String("error", err.Error()),
					)
				}
			}

			logger.Debug("command applied",
				slog.String("type", string(env.Message.Type)),
				slog.String("clientId", env.ClientID),
				slog.Int("status", resp.StatusCode),
			)
		}
	}()

	// Router.
	router := handler.NewRouter(disp, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("commandsTopic", cfg.KafkaCommandsTopic),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops the
	// ingress loop and the snapshot timer), then capture a final snapshot.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	select {
	case <-ingressDone:
	case <-shutdownCtx.Done():
	}

	if err := disp.TakeSnapshot(); err != nil {
		logger.Error("final snapshot failed", slog.String("error", err.Error()))
	} else {
		logger.Info("final snapshot written", slog.String("path", store.Path()))
	}

	logger.Info("server stopped")
}
