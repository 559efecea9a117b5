package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/core"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory everywhere", Config{Store: MemoryBackend, Cache: MemoryBackend}, false},
		{"sqlite everywhere", Config{Store: SQLiteBackend, SQLiteDBPath: "x.db", Cache: SQLiteBackend}, false},
		{"unknown store", Config{Store: "sheets", Cache: MemoryBackend}, true},
		{"unknown cache", Config{Store: MemoryBackend, Cache: "redis"}, true},
		{"sqlite without path", Config{Store: SQLiteBackend, Cache: MemoryBackend}, true},
		{"sqlite cache over memory store", Config{Store: MemoryBackend, Cache: SQLiteBackend}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "data/fintrack.db",
		CacheBackend: "sqlite",
		CacheTTL:     time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Store)
	assert.Equal(t, SQLiteBackend, cfg.Cache)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{Store: MemoryBackend, Cache: MemoryBackend})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.IsType(t, &cache.MemoryBackend{}, res.Backend)
	assert.Equal(t, cache.DefaultTTL, res.Cache.TTL())
}

func TestCreateSQLiteBackendSharesDatabase(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).Create(ctx, Config{
		Store:        SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db"),
		Cache:        SQLiteBackend,
		CacheTTL:     time.Minute,
	})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.IsType(t, &cache.SQLiteBackend{}, res.Backend)

	created, err := res.Store.Create(ctx, core.Transaction{
		UserID:          1,
		Type:            core.Expense,
		Category:        "Food",
		Amount:          decimal.NewFromInt(10),
		Description:     "Lunch",
		TransactionDate: core.NewDate(2025, 3, 10),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	// The metric_cache table comes from the same migrations as the store.
	require.NoError(t, res.Backend.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := res.Backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}
