package cache

import (
	"fmt"

	"github.com/google/uuid"
)

const PlanningLockKey = "lock:planning"

func RunStatusKey(runID uuid.UUID) string {
	return fmt.Sprintf("run:%s", runID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func HolidaysKey(source string, year int) string {
	return fmt.Sprintf("holidays:%s:%d", source, year)
}
