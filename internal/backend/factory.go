package backend

import (
	"context"
	"fmt"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.NewNop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// Create builds the store first, then the cache backend that may share its
// database.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store core.Store
		repo  *storage.SQLiteRepository
	)
	switch config.Store {
	case SQLiteBackend:
		var err error
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory store")
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", config.Store)
	}

	var backend cache.Backend
	switch config.Cache {
	case SQLiteBackend:
		backend = cache.NewSQLiteBackend(repo.DB())
	case MemoryBackend:
		backend = cache.NewMemoryBackend()
	default:
		_ = store.Close()
		return nil, fmt.Errorf("unsupported cache backend: %s", config.Cache)
	}
	f.logger.InfoContext(ctx, "Initialized metric cache",
		"backend", config.Cache.String(),
		"ttl", config.CacheTTL.String())

	return &Result{
		Store:   store,
		Cache:   cache.New(backend, config.CacheTTL, f.logger),
		Backend: backend,
		Cleanup: store.Close,
	}, nil
}
