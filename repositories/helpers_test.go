package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/database"
	"ClinicHub/testutil"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	cache  *cache.Cache
	locker *database.Locker
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	env := testutil.NewEnv(t)
	return &testEnv{db: env.DB, cache: env.Cache, locker: env.Locker, redis: env.Redis}
}

var strPtr = testutil.StrPtr
