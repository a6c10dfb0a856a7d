package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/httpserver"
	"github.com/parleyhq/parley/internal/hub"
	"github.com/parleyhq/parley/internal/store"
	"github.com/parleyhq/parley/internal/ws"
	"github.com/parleyhq/parley/pkg/jwt"
	"github.com/parleyhq/parley/pkg/logger"
)

func main() {
	// Initializing and validating config
	cm, err := config.NewConfigManager("internal/config/config.yaml")
	if err != nil {
		fmt.Printf("Error getting config file: %v\n", err)
		os.Exit(1)
	}
	c := cm.GetConfig()
	if err := c.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initializing logger
	log := logger.Must(logger.New(logger.Config{
		Env: c.GeneralParams.Env,
	}))

	log.Info(
		"Config loaded successfully!",
		"env", c.GeneralParams.Env,
		"http_server_port", c.HTTPServerParams.Port,
		"allowed_origin", c.HTTPServerParams.AllowedOrigin,
		"database", c.MainDBParams.Name,
	)

	// Global context with cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection
	pool, err := store.NewPool(ctx, c.MainDBParams.GetDSN())
	if err != nil {
		log.Error("Failed to create postgres pool", "error", err, "db", c.MainDBParams.Name)
		os.Exit(1)
	}
	defer pool.Close()

	log.Info("Database connection established", "db", c.MainDBParams.Name)

	// Object storage for transcript archives
	minioClient, err := store.NewMinIOClient(
		c.S3Params.Endpoint,
		c.S3Params.AccessKeyID,
		c.S3Params.SecretAccessKey,
		c.S3Params.BucketName,
		c.S3Params.UseSSL,
	)
	if err != nil {
		log.Error("Failed to create minio client", "error", err)
		os.Exit(1)
	}

	meetingStore := store.New(
		store.NewPostgresStore(pool),
		store.NewTranscriptArchive(minioClient, c.S3Params.BucketName),
	)

	// Token verification
	jwtService := jwt.NewService(c.GeneralParams.SecretKey)

	// The hub and its expiry sweeper
	signalingHub := hub.New(hub.Config{
		PendingTTL:     c.HubParams.PendingTTL,
		DedupWindow:    c.HubParams.DedupWindow,
		SweepInterval:  c.HubParams.SweepInterval,
		HostGrace:      c.HubParams.HostGrace,
		MaxSignalBytes: c.HubParams.MaxSignalBytes,
	}, meetingStore, log)

	go signalingHub.Run(ctx)

	// Transport; a zero signal cap leaves the transport's default read limit
	var readLimit int64
	if c.HubParams.MaxSignalBytes > 0 {
		readLimit = int64(c.HubParams.MaxSignalBytes) + 8*1024
	}
	wsHandler := ws.NewHandler(signalingHub, jwtService, ws.Options{
		QueueDepth:     c.HubParams.SendQueueDepth,
		ReadLimit:      readLimit,
		OriginPatterns: []string{c.HTTPServerParams.AllowedOrigin},
	}, log)

	server := httpserver.New(
		c.HTTPServerParams.GetAddress(),
		c.HTTPServerParams.AllowedOrigin,
		signalingHub,
		wsHandler,
		log,
	)

	serverErrors := make(chan error, 1)

	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-serverErrors:
		log.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		signalingHub.Shutdown()

		log.Info("Shutting down HTTP server...")
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
		}
	}
}
