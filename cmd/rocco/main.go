package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theponti/rocco-api/internal/analytics"
	"github.com/theponti/rocco-api/internal/auth"
	"github.com/theponti/rocco-api/internal/backup"
	"github.com/theponti/rocco-api/internal/database"
	"github.com/theponti/rocco-api/internal/email"
	"github.com/theponti/rocco-api/internal/logging"
	"github.com/theponti/rocco-api/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("ROCCO_LOG_LEVEL"))

	port := os.Getenv("ROCCO_PORT")
	if port == "" {
		port = "4444"
	}

	dbPath := os.Getenv("ROCCO_DB_PATH")
	if dbPath == "" {
		dbPath = "rocco.db"
	}

	jwtSecret := os.Getenv("ROCCO_JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("ROCCO_JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	signer := auth.NewSigner([]byte(jwtSecret))

	fromEmail := os.Getenv("SENDGRID_SENDER_EMAIL")
	if fromEmail == "" {
		fromEmail = "no-reply@ponti.io"
	}
	fromName := os.Getenv("SENDGRID_SENDER_NAME")
	if fromName == "" {
		fromName = "Ponti Studios"
	}
	emailClient := email.NewClient(os.Getenv("SENDGRID_API_KEY"), fromEmail, fromName, logger.With("component", "email"))

	analyticsClient := analytics.NewClient(os.Getenv("SEGMENT_KEY"), logger.With("component", "analytics"))

	backupCfg := backup.Config{
		Endpoint:   os.Getenv("ROCCO_S3_ENDPOINT"),
		Bucket:     os.Getenv("ROCCO_S3_BUCKET"),
		Region:     os.Getenv("ROCCO_S3_REGION"),
		AccessKey:  os.Getenv("ROCCO_S3_ACCESS_KEY"),
		SecretKey:  os.Getenv("ROCCO_S3_SECRET_KEY"),
		Passphrase: os.Getenv("ROCCO_BACKUP_PASSPHRASE"),
	}
	if backupCfg.Region == "" {
		backupCfg.Region = "auto"
	}

	srv := server.New(db, signer, emailClient, analyticsClient, backupCfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(cleanupCtx); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				if n, err := srv.TokenStore().DeleteExpiredEmailTokens(cleanupCtx); err != nil {
					slog.Error("cleanup expired login tokens", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired login tokens", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("rocco api starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
