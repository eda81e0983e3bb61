// Package app wires the catalog pipeline from configuration. Both the
// HTTP service and catalogctl build their stack through it.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Cheertaboi/esim-catalog-service/internal/cache"
	"github.com/Cheertaboi/esim-catalog-service/internal/catalog"
	"github.com/Cheertaboi/esim-catalog-service/internal/config"
	"github.com/Cheertaboi/esim-catalog-service/internal/repository"
	"github.com/Cheertaboi/esim-catalog-service/internal/service"
	"github.com/Cheertaboi/esim-catalog-service/internal/upstream"
	"github.com/Cheertaboi/esim-catalog-service/pkg/db"
	"github.com/Cheertaboi/esim-catalog-service/pkg/logger"
	"github.com/Cheertaboi/esim-catalog-service/pkg/metrics"
)

type App struct {
	Catalog *service.CatalogService
	Esim    *service.EsimResolver
	Client  *upstream.Client

	redis *redis.Client
	db    *sql.DB
}

type Options struct {
	// Offline skips Redis and Postgres even when configured.
	Offline bool
}

// New builds the pipeline. Redis and Postgres are optional: when either is
// unconfigured or unreachable the service runs with an in-memory cache and
// without stale snapshots.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Metrics, opts Options) *App {
	a := &App{}
	a.Client = upstream.NewClient(upstream.Options{
		BaseURL:  cfg.UpstreamBaseURL,
		APIKey:   cfg.UpstreamAPIKey,
		Timeout:  cfg.UpstreamTimeout,
		PageSize: cfg.UpstreamPageSize,
		MaxPages: cfg.UpstreamMaxPages,
		Workers:  cfg.UpstreamFetchWorkers,
		Logger:   log,
		Metrics:  m,
	})

	var bundleCache cache.BundleCache = cache.NewMemoryCache(cfg.CacheTTL)
	var snapshots service.SnapshotStore

	if !opts.Offline {
		if rc := connectRedis(ctx, cfg.RedisAddr, log); rc != nil {
			a.redis = rc
			bundleCache = cache.NewRedisCache(rc, cfg.CacheTTL)
		}
		if repo := a.connectSnapshots(ctx, log); repo != nil {
			snapshots = repo
		}
	}

	a.Catalog = service.NewCatalogService(service.CatalogOptions{
		Source:    a.Client,
		Cache:     bundleCache,
		Snapshots: snapshots,
		Regions:   catalog.NewRegionMatcher(cfg.RegionMapping),
		TTL:       cfg.CacheTTL,
		PageSize:  cfg.PageSize,
		Logger:    log,
		Metrics:   m,
	})
	a.Esim = service.NewEsimResolver(a.Client, log, m)
	return a
}

func connectRedis(ctx context.Context, addr string, log logger.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory cache", "addr", addr, "error", err)
		rc.Close()
		return nil
	}
	log.Info("redis bundle cache enabled", "addr", addr)
	return rc
}

func (a *App) connectSnapshots(ctx context.Context, log logger.Logger) *repository.SnapshotRepo {
	pgCfg, err := db.LoadPostgresConfig()
	if err != nil || !pgCfg.Enabled() {
		return nil
	}
	conn, err := db.NewPostgresConnection(ctx, pgCfg)
	if err != nil {
		log.Warn("postgres unavailable, stale snapshots disabled", "host", pgCfg.Host, "error", err)
		return nil
	}
	repo := repository.NewSnapshotRepo(conn)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Warn("snapshot schema setup failed, stale snapshots disabled", "error", err)
		conn.Close()
		return nil
	}
	a.db = conn
	log.Info("postgres snapshot store enabled", "host", pgCfg.Host, "db", pgCfg.DBName)
	return repo
}

// Close releases the Redis and Postgres connections.
func (a *App) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
