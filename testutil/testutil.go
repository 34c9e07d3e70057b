// Package testutil builds throwaway storage for package tests: an in-memory
// SQLite database migrated like production and a miniredis instance.
package testutil

import (
	"ClinicHub/cache"
	"ClinicHub/database"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Env struct {
	DB     *gorm.DB
	Cache  *cache.Cache
	Locker *database.Locker
	Redis  *miniredis.Miniredis
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c, err := cache.NewCache(client, time.Minute)
	require.NoError(t, err)

	return &Env{DB: db, Cache: c, Locker: database.NewLocker(client), Redis: mr}
}

func StrPtr(s string) *string { return &s }
