// Package app wires configuration into the stores and services shared by the
// server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/toximeter/internal/assessment"
	authmw "github.com/mind-engage/toximeter/internal/auth/middleware"
	"github.com/mind-engage/toximeter/internal/cache"
	"github.com/mind-engage/toximeter/internal/config"
	"github.com/mind-engage/toximeter/internal/db"
	"github.com/mind-engage/toximeter/internal/logger"
	"github.com/mind-engage/toximeter/internal/questionbank"
	syncx "github.com/mind-engage/toximeter/internal/sync"
)

type App struct {
	Config  config.Config
	Log     logger.Logger
	DB      *sql.DB
	Redis   *redis.Client // nil when the cache is disabled
	Events  *syncx.EventRepo
	Users   *authmw.Users
	Service *assessment.Service
}

// Open connects the database (and redis when configured) and builds the
// service graph.
func Open(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a := &App{
		Config: cfg,
		Log:    log,
		DB:     dbh,
		Events: syncx.NewEventRepo(dbh),
		Users:  authmw.NewUsers(dbh),
	}

	opts := []assessment.Option{
		assessment.WithEvents(a.Events),
		assessment.WithLogger(log),
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			dbh.Close()
			return nil, err
		}
		a.Redis = rdb
		opts = append(opts, assessment.WithCache(cache.NewQuestionCache(rdb, cfg.CacheTTL)))
		log.Info("question cache enabled", map[string]interface{}{"addr": cfg.RedisAddr, "ttl": cfg.CacheTTL.String()})
	}
	a.Service = assessment.NewService(assessment.NewSQLStore(dbh), opts...)
	return a, nil
}

// SeedIfEmpty loads the configured bank (or the built-in one) when the store
// holds no questions at all.
func (a *App) SeedIfEmpty(ctx context.Context) (int, error) {
	existing, err := a.Service.ListQuestions(ctx, true)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	return a.Seed(ctx, a.Config.QuestionsFile)
}

// Seed replaces the bank with the one at path (built-in when empty).
func (a *App) Seed(ctx context.Context, path string) (int, error) {
	qs, err := questionbank.Load(path)
	if err != nil {
		return 0, err
	}
	seeded, err := a.Service.SeedQuestions(ctx, qs)
	if err != nil {
		return 0, err
	}
	return len(seeded), nil
}

// Checks returns the readiness probes for the connected backends.
func (a *App) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"db": a.DB.PingContext,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

func (a *App) Close() error {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	return a.DB.Close()
}
