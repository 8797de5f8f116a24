package tasks

import (
	"context"

	"github.com/classmind/classmind/app/database"
)

// RunnerInterface is one reconciliation pass.
type RunnerInterface interface {
	Run(ctx context.Context) (database.RunStats, error)
}

// MonitorInterface records pass outcomes for cross-run failure tracking.
type MonitorInterface interface {
	RecordSuccess(ctx context.Context) error
	RecordFailure(ctx context.Context, runErr error) error
}

// SchedulerInterface drives periodic passes in serve mode.
type SchedulerInterface interface {
	Start()
	Stop()
	TriggerSync() bool
}
