package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cyrasubia/phoinix-storefront/pkg/database"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/config"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage/memory"
	pgstore "github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage/postgres"
	redisstore "github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage/redis"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage/sqlite"
)

// openStorage connects the configured cart storage driver. The returned
// closer releases its connections and is never nil.
func openStorage(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (storage.KeyValue, func() error, error) {
	noop := func() error { return nil }
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	switch cfg.CartStorageDriver {
	case storage.DriverMemory:
		logger.Warn("cart storage is in-memory, the cart will not survive a restart")
		return memory.New(), noop, nil

	case storage.DriverSQLite:
		s, err := sqlite.Open(ctx, database.SQLiteConfig{
			Path:        cfg.SQLitePath,
			BusyTimeout: cfg.SQLiteBusyTimeout,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite storage: %w", err)
		}
		logger.Info("connected to SQLite", slog.String("path", cfg.SQLitePath))
		return s, s.Close, nil

	case storage.DriverRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return redisstore.New(rdb, cfg.RedisKeyPrefix), rdb.Close, nil

	case storage.DriverPostgres:
		pool, err := openPostgres(ctx, cfg, reg, logger)
		if err != nil {
			return nil, noop, err
		}
		return pgstore.New(pool), func() error { pool.Close(); return nil }, nil
	}

	return nil, noop, fmt.Errorf("unknown cart storage driver %q", cfg.CartStorageDriver)
}

func openPostgres(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPassword
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSLMode

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := pgstore.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres storage: %w", err)
	}
	if err := database.RegisterPoolMetrics(reg, pool, "storefront"); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)
	return pool, nil
}
