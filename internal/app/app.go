package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/klaudly/klaudly/internal/config"
	"github.com/klaudly/klaudly/internal/db"
	"github.com/klaudly/klaudly/internal/middleware"
	"github.com/klaudly/klaudly/internal/repository"
	"github.com/klaudly/klaudly/internal/service"
	"github.com/klaudly/klaudly/internal/storage"
	"github.com/klaudly/klaudly/internal/validation"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	Redis           *redis.Client // nil unless REDIS_URL is set
	EntryService    *service.EntryService
	IdentityService *service.IdentityService
	UploadLimiter   middleware.Limiter
}

// New wires every collaborator explicitly; nothing is constructed at package
// scope. ctx bounds background work such as limiter cleanup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	blobStore, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Cfg: cfg,
		DB:  database,
	}

	a.UploadLimiter, err = a.uploadLimiter(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	constraints := validation.DefaultUploadConstraints
	constraints.MaxSize = cfg.MaxUploadSize

	entryRepository := repository.NewEntryRepository(database)
	blobCoordinator := service.NewBlobCoordinator(blobStore, cfg.StorageRootFolder, constraints, cfg.UploadAuthExpiry)

	a.EntryService = service.NewEntryService(entryRepository, blobCoordinator)
	a.IdentityService = service.NewIdentityService(cfg.JWTSecret, cfg.JWTExpiry)

	return a, nil
}

func (a *App) uploadLimiter(ctx context.Context) (middleware.Limiter, error) {
	if a.Cfg.RedisURL == "" {
		return middleware.NewRateLimiter(ctx, a.Cfg.UploadRateLimit, a.Cfg.UploadRateWindow), nil
	}

	opts, err := redis.ParseURL(a.Cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	a.Redis = redis.NewClient(opts)
	err = a.Redis.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("upload rate limit shared through redis", "addr", opts.Addr)
	return middleware.NewRedisRateLimiter(a.Redis, "klaudly:ratelimit:upload", a.Cfg.UploadRateLimit, a.Cfg.UploadRateWindow), nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	errs = append(errs, db.Close(a.DB))
	return errors.Join(errs...)
}
