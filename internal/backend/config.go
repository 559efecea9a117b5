package backend

import (
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Store:        BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Cache:        BackendType(appConfig.CacheBackend),
		CacheTTL:     appConfig.CacheTTL,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store backend: %q", c.Store)
	}
	if !c.Cache.IsValid() {
		return fmt.Errorf("invalid cache backend: %q", c.Cache)
	}
	if c.Store == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	// The sqlite cache lives in the store's database file.
	if c.Cache == SQLiteBackend && c.Store != SQLiteBackend {
		return fmt.Errorf("sqlite cache backend requires the sqlite store")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}
