package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/emithub/internal/backup"
	"github.com/alfredjeanlab/emithub/internal/config"
	"github.com/alfredjeanlab/emithub/internal/events"
	"github.com/alfredjeanlab/emithub/internal/hub"
	"github.com/alfredjeanlab/emithub/internal/model"
	"github.com/alfredjeanlab/emithub/internal/server"
	"github.com/alfredjeanlab/emithub/internal/store"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the emithub server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg, os.Stderr)
		slog.SetDefault(logger)

		// Open the durable store.
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		logger.Info("store opened", "driver", cfg.Store)

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (EMIT_HUB_NATS_URL not set)")
		}

		// Metrics.
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := hub.NewMetrics(registry)
		if err := metrics.Register(); err != nil {
			publisher.Close()
			st.Close()
			return err
		}

		// Build the hub over the store.
		defaults := model.DefaultSettings()
		defaults.MaxConnections = cfg.MaxConnections
		defaults.PersistMessages = cfg.Persistence.PersistMessagesDefault
		policy := model.PolicyPermissive
		if cfg.StrictTransitions {
			policy = model.PolicyStrict
		}
		h, err := hub.New(cmd.Context(), st, publisher, hub.Options{
			Defaults:         &defaults,
			MessageSizeLimit: cfg.MessageSizeLimit,
			Transitions:      policy,
			WriteTimeout:     cfg.WebSocket.WriteTimeout,
			Logger:           logger,
			Metrics:          metrics,
		})
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}

		// Start HTTP server.
		srv := server.New(h, st, serverOptions(cfg, logger, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		httpServer := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.Addr())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		// Start backup scheduler if enabled.
		stopBackups := startBackups(cmd.Context(), cfg, st, logger)

		// Wait for SIGINT, SIGTERM or a listener failure.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		var runErr error
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
		case runErr = <-serveErr:
			logger.Error("HTTP server error", "err", runErr)
		}

		// Graceful shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Error("hub shutdown error", "err", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if stopBackups != nil {
			stopBackups()
			logger.Info("backup scheduler stopped")
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return runErr
	},
}

// serverOptions maps the configuration onto the HTTP server.
func serverOptions(cfg *config.Config, logger *slog.Logger, metrics http.Handler) server.Options {
	ping := cfg.WebSocket.PingInterval
	if ping == 0 {
		ping = -1 // disabled
	}
	return server.Options{
		Version: version,
		CORS: server.CORSConfig{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: cfg.CORS.AllowedMethods,
			AllowHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:       cfg.CORS.MaxAge,
		},
		MessageSizeLimit: cfg.MessageSizeLimit,
		HandshakeTimeout: cfg.WebSocket.ConnectionTimeout,
		PingInterval:     ping,
		PongTimeout:      cfg.WebSocket.PongTimeout,
		WriteTimeout:     cfg.WebSocket.WriteTimeout,
		Metrics:          metrics,
		Logger:           logger,
	}
}

// startBackups runs the backup scheduler in the background when auto backup
// is enabled and at least one destination could be built. The returned func
// stops it and waits for an in-flight run; it is nil when nothing started.
func startBackups(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) func() {
	p := cfg.Persistence
	if !p.AutoBackup {
		return nil
	}

	var dests []backup.Destination
	if p.BackupDir != "" {
		fileDest, err := backup.NewFileDestination(p.BackupDir)
		if err != nil {
			logger.Error("failed to create file backup destination", "err", err)
		} else {
			dests = append(dests, fileDest)
			logger.Info("backup file destination enabled", "dir", p.BackupDir)
		}
	}
	if p.S3Bucket != "" {
		s3Dest, err := backup.NewS3Destination(ctx, p.S3Bucket, p.S3Key, p.S3Region, p.S3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 backup destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("backup S3 destination enabled", "bucket", p.S3Bucket, "key", p.S3Key)
		}
	}
	if len(dests) == 0 {
		logger.Warn("auto backup enabled but no destination is usable")
		return nil
	}

	scheduler := backup.NewScheduler(st, dests, p.BackupInterval, logger)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(runCtx)
	}()
	logger.Info("backup scheduler started", "interval", p.BackupInterval)
	return func() {
		cancel()
		<-done
	}
}
