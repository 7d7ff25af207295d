package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/smartdoorlock/server/internal/config"
	"github.com/smartdoorlock/server/internal/db"
	"github.com/smartdoorlock/server/internal/doorlock/service"
	sqlitestore "github.com/smartdoorlock/server/internal/doorlock/store/sqlite"
	"github.com/smartdoorlock/server/internal/httpapi"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "doorlock-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
	}

	writer := db.NewWriter(conn)
	defer writer.Close()

	// Stores
	accessStore := sqlitestore.NewAccessRecordStore(conn, writer)
	otpStore := sqlitestore.NewOtpRecordStore(conn, writer)
	deviceStore := sqlitestore.NewDeviceStore(conn, writer)

	// Services
	ingestSvc := service.NewIngestService(accessStore, deviceStore)
	otpSvc := service.NewOtpService(otpStore, deviceStore, service.OtpConfig{
		Length: cfg.OtpLength,
		TTL:    cfg.OtpTTL,
	})
	querySvc := service.NewQueryService(accessStore, otpStore, deviceStore, service.QueryLimits{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})

	sweeper := service.NewOtpSweeper(otpSvc, service.SweeperConfig{
		Interval: cfg.OtpSweepInterval,
	}, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:        logger,
		Addr:          cfg.HTTPAddr,
		IngestService: ingestSvc,
		OtpService:    otpSvc,
		QueryService:  querySvc,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
