package backend

import (
	"context"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the transaction store and the metric cache built over it.
type Result struct {
	Store   core.Store
	Cache   *cache.Cache
	Backend cache.Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Store        BackendType
	SQLiteDBPath string

	Cache    BackendType
	CacheTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
