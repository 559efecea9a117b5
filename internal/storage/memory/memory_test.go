package memory

import (
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) core.Store {
		return NewWithClock(now)
	})
}
