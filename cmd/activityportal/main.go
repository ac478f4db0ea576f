package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"activityportal/internal/backend"
	"activityportal/internal/commands"
	"activityportal/internal/config"
	"activityportal/internal/database"
	"activityportal/internal/logger"
	"activityportal/internal/portal"
	"activityportal/internal/server"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hash-password":
			commands.HashPassword(os.Args[2:])
			return
		case "serve":
		default:
			fmt.Fprintf(os.Stderr, "Usage: activityportal [serve|hash-password]\n")
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		zapLog.Fatal("database open failed", zap.Error(err), zap.String("path", cfg.Database.Path))
	}
	defer db.Close()
	actionLogs := database.NewActionLogs(db)

	client, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout(), zapLog)
	if err != nil {
		zapLog.Fatal("backend client failed", zap.Error(err))
	}

	hub := server.NewHub(zapLog)
	go hub.Run(ctx)

	p := portal.New(client, zapLog, portal.Options{
		HideAfter:   cfg.UI.MessageHideAfter(),
		Recorder:    actionLogs,
		Broadcaster: hub,
	})

	if err := initialLoad(ctx, p, zapLog); err == nil {
		store, _ := p.Snapshot()
		zapLog.Info("activities loaded", zap.Int("count", store.Len()))
	}

	srv, err := server.New(p, actionLogs, hub, zapLog, server.Options{
		CSRFKey:           cfg.Server.CSRFKey,
		SecureCookies:     cfg.Server.SecureCookies,
		AdminUser:         cfg.Auth.AdminUser,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		DefaultLocale:     language.Make(cfg.UI.DefaultLocale),
	})
	if err != nil {
		zapLog.Fatal("server init failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("backend", cfg.Backend.BaseURL),
			zap.Bool("csrf", cfg.Server.CSRFKey != ""),
			zap.Bool("admin_auth", cfg.Auth.AdminPasswordHash != ""),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}
}

type activityLoader interface {
	LoadActivities(ctx context.Context) error
}

// initialLoad fetches the activities once. A backend that is down at startup
// only costs a warning; the next page load fetches again.
func initialLoad(ctx context.Context, l activityLoader, log *zap.Logger) error {
	err := l.LoadActivities(ctx)
	if err != nil {
		log.Warn("starting without activities", zap.Error(err))
	}
	return err
}
