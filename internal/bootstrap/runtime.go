// Package bootstrap opens the shared runtime dependencies used by every binary.
package bootstrap

import (
	"fmt"

	"pulsevote/internal/cache"
	"pulsevote/internal/config"
	"pulsevote/internal/database"
	"pulsevote/internal/middleware"
	"pulsevote/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCatalog upserts the built-in preference catalog after the schema is applied.
	SeedCatalog bool
}

// InitRuntime connects to the database (applying the schema policy) and
// Redis. The Redis client is nil when the server is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	if opts.SeedCatalog {
		if err := seed.Preferences(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed preference catalog: %w", err)
		}
		middleware.Logger.Info("preference catalog ready")
	}

	return db, rdb, nil
}
