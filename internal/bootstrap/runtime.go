// Package bootstrap wires the process-wide runtime shared by the commands.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a built-in seed preset applied to an empty
	// development database.
	SeedPreset string
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seedEmptyDevDatabase(cfg, db, opts.SeedPreset); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development data: %w", err)
	}

	return db, r, nil
}

func seedEmptyDevDatabase(cfg *config.Config, db *gorm.DB, presetName string) error {
	if cfg == nil || db == nil || presetName == "" {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	preset, err := seed.BuiltinPreset(presetName)
	if err != nil {
		return err
	}
	s := seed.NewSeeder(db, seed.Options{MaxDays: 30})
	if err := s.ApplyPreset(preset); err != nil {
		return err
	}
	middleware.Logger.Info("Seeded empty development database",
		slog.String("preset", presetName),
		slog.String("summary", s.Summary().String()),
	)
	return nil
}
