package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scontrino/internal/api"
	"scontrino/internal/config"
	apphttp "scontrino/internal/http"
	"scontrino/internal/imagecache"
	applog "scontrino/internal/log"
	"scontrino/internal/session"
	"scontrino/internal/snapshot"
	"scontrino/internal/store"
)

func main() {
	// Load .env file if present (development convenience)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	client := api.NewClient(&api.Config{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
	})

	st := store.New()

	var snap *snapshot.Store
	if cfg.SnapshotDBPath != "" {
		s, err := snapshot.NewStore(cfg.SnapshotDBPath)
		if err != nil {
			logger.Error("open snapshot store", applog.FieldError, err.Error())
			os.Exit(1)
		}
		snap = s
		defer snap.Close()

		// Seed the store from the last session so the UI has something
		// to show before the backend answers.
		if err := snap.Load(context.Background(), st); err != nil {
			logger.Warn("snapshot load failed, starting empty", applog.FieldError, err.Error())
		} else {
			logger.Info("seeded store from snapshot",
				"receipts", st.Receipts.Len(),
				"transactions", st.Transactions.Len())
		}
	}

	ses := session.New(client, st, logger)

	loadCtx, loadCancel := context.WithCancel(context.Background())
	defer loadCancel()
	go func() {
		if err := ses.InitialLoad(loadCtx); err != nil {
			logger.Error("initial load failed", applog.FieldError, err.Error())
			return
		}
		if snap != nil {
			if err := snap.Save(loadCtx, st); err != nil {
				logger.Warn("snapshot save after load failed", applog.FieldError, err.Error())
			}
		}
	}()

	images := imagecache.New(client.ReceiptImage, 128, 10*time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, ses, images, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())
		loadCancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", applog.FieldError, err.Error())
		}

		// Persist the session before exiting.
		if snap != nil {
			if err := snap.Save(shutdownCtx, st); err != nil {
				logger.Error("snapshot save failed", applog.FieldError, err.Error())
			} else {
				logger.Info("session snapshot saved")
			}
		}
		cancel()
	}()

	logger.Info("starting scontrino", "port", cfg.Port, "api", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
