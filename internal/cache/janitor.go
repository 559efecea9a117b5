package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"fintrack/internal/log"
)

// DefaultCleanupSchedule is the cron schedule used when none is configured.
const DefaultCleanupSchedule = "@every 10m"

// Janitor periodically removes expired entries. Reads never depend on it,
// it only keeps the backend from growing.
type Janitor struct {
	cache    *Cache
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	logger   *log.Logger
}

func NewJanitor(c *Cache, schedule string, logger *log.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Janitor{
		cache:    c,
		cron:     cron.New(),
		schedule: schedule,
		timeout:  30 * time.Second,
		logger:   logger.WithComponent(log.ComponentCache),
	}
}

// Start registers the cleanup job and starts the scheduler.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.Run); err != nil {
		return fmt.Errorf("schedule cache cleanup %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("Cache janitor started", "schedule", j.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running cleanup to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Cache janitor stopped")
}

// Run performs one cleanup pass.
func (j *Janitor) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := j.cache.CleanExpired(ctx)
	if err != nil {
		j.logger.Error("Failed to clean expired cache entries", log.FieldError, err)
		return
	}
	if removed > 0 {
		j.logger.Info("Cleaned up expired cache entries", "removed", removed)
	}
}
