package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classmind/classmind/app/database"
)

// FailureAlertThreshold is the consecutive-failure count at which an
// operator alert goes out. A single failed pass is expected noise; two in
// a row suggests something stuck.
const FailureAlertThreshold = 2

// Monitor tracks pass outcomes across runs in the singleton failure row
// and drives operator alerting. At most one alert is sent per failure
// streak; a success after a streak sends a recovery notice and resets the
// counters.
type Monitor struct {
	runs    database.RunRepository
	alerter Alerter
}

func NewMonitor(runs database.RunRepository, alerter Alerter) *Monitor {
	return &Monitor{
		runs:    runs,
		alerter: alerter,
	}
}

// RecordSuccess resets the failure streak. When a streak was active, a
// recovery notice is attempted first; delivery failure is logged and does
// not block the reset.
func (m *Monitor) RecordSuccess(ctx context.Context) error {
	state, err := m.runs.GetFailureState()
	if err != nil {
		return fmt.Errorf("failed to load failure state: %w", err)
	}

	if state.ConsecutiveFailures > 0 {
		slog.Info("Sync recovered after failures", "consecutive_failures", state.ConsecutiveFailures)
		if m.alerter != nil {
			if err := m.alerter.SendRecovery(ctx); err != nil {
				slog.Error("Failed to send recovery notification", "error", err)
			}
		}
	}

	if err := m.runs.RecordSuccess(); err != nil {
		return fmt.Errorf("failed to record success: %w", err)
	}
	return nil
}

// RecordFailure increments the failure streak and, once the threshold is
// reached and no alert has gone out for this streak, sends the alert. The
// streak and alert flag live in the store, so the exactly-once guarantee
// holds across restarts.
func (m *Monitor) RecordFailure(ctx context.Context, runErr error) error {
	consecutive, err := m.runs.RecordFailure()
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}

	slog.Warn("Sync failure recorded", "consecutive_failures", consecutive, "error", runErr)

	if consecutive < FailureAlertThreshold || m.alerter == nil {
		return nil
	}

	state, err := m.runs.GetFailureState()
	if err != nil {
		return fmt.Errorf("failed to load failure state: %w", err)
	}
	if state.AlertSent {
		return nil
	}

	if err := m.alerter.SendFailureAlert(ctx, runErr.Error()); err != nil {
		// Alert delivery failures never escalate; the flag stays unset so
		// the next failure retries the send
		slog.Error("Failed to send failure alert", "error", err)
		return nil
	}

	if err := m.runs.MarkAlertSent(); err != nil {
		return fmt.Errorf("failed to mark alert sent: %w", err)
	}

	slog.Info("Failure alert sent", "consecutive_failures", consecutive)
	return nil
}
