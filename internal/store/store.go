// Package store is the time-series persistence layer: it owns the
// Postgres connection, the raw-sample write path, the roll-up and
// retention jobs that keep minute/hour aggregates current, and the
// read paths the analytics engine and HTTP adapter build on.
package store

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store wraps the database connection plus an optional read-through
// cache for settled aggregate queries.
type Store struct {
	db    *gorm.DB
	cache *redis.Client // nil means caching is disabled
}

// Connect opens the Postgres connection pool, matching the teacher's
// connect shape: UTC timestamps at the GORM layer, a bounded pool, and
// a liveness ping before the caller is handed the *gorm.DB.
func Connect(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// New wraps an already-connected *gorm.DB and an optional redis client.
// Passing a nil cache makes every cache lookup a miss, so the store
// works without Redis configured.
func New(db *gorm.DB, cache *redis.Client) *Store {
	return &Store{db: db, cache: cache}
}

func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}
