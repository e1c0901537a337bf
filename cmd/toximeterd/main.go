package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/toximeter/internal/api/http"
	"github.com/mind-engage/toximeter/internal/app"
	auth "github.com/mind-engage/toximeter/internal/auth/middleware"
	"github.com/mind-engage/toximeter/internal/config"
	"github.com/mind-engage/toximeter/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "toximeterd:", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to a config file (default: ./toximeter.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	log := logger.NewStructured(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB, cache, services ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	a, err := app.Open(openCtx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if n, err := a.SeedIfEmpty(openCtx); err != nil {
		return fmt.Errorf("seed questions: %w", err)
	} else if n > 0 {
		log.Info("seeded question bank", map[string]interface{}{"count": n, "file": cfg.QuestionsFile})
	}

	created, err := auth.EnsureAdmin(openCtx, a.Users, cfg.AdminUser, cfg.AdminPassHash)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("created admin account", map[string]interface{}{"username": cfg.AdminUser})
	}

	// --- Router ---
	router := api.NewRouter(&api.Container{
		Service:     a.Service,
		Users:       a.Users,
		Auth:        auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		Events:      a.Events,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Checks:      a.Checks(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", map[string]interface{}{"addr": cfg.HTTPAddr, "mode": cfg.Mode, "db": cfg.DBDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
