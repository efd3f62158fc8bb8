// Package bootstrap connects the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"gigfolio/internal/cache"
	"gigfolio/internal/config"
	"gigfolio/internal/database"
	"gigfolio/internal/seed"
	"gigfolio/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoUsers creates this many demo freelancers when the users table is empty.
	SeedDemoUsers int
}

// InitRuntime connects to the database and Redis. The Redis client is nil when
// Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r, err := cache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable, sessions stay in memory and rate limits fail open: %v", err)
	}

	if opts.SeedDemoUsers > 0 && !cfg.IsProduction() {
		if err := seedIfEmpty(cfg, db, opts.SeedDemoUsers); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo users: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(cfg *config.Config, db *gorm.DB, n int) error {
	var count int64
	if err := db.Table("users").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	dir, err := storage.NewDir(cfg.UploadDir)
	if err != nil {
		return err
	}
	users, err := seed.NewSeeder(db, dir, 0).SeedFreelancers(context.Background(), seed.Options{Users: n, FilesPerUser: 1})
	if err != nil {
		return err
	}
	log.Printf("seeded %d demo freelancers (password %q)", len(users), seed.DefaultPassword)
	return nil
}
