package sync

import (
	"context"
	"errors"
	"testing"
)

func TestMonitor_SingleFailureDoesNotAlert(t *testing.T) {
	runRepo := &mockRunRepo{}
	alerter := &mockAlerter{}
	monitor := NewMonitor(runRepo, alerter)

	if err := monitor.RecordFailure(context.Background(), errors.New("boom")); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	if len(alerter.failureAlerts) != 0 {
		t.Errorf("Expected no alert after one failure, got %d", len(alerter.failureAlerts))
	}
	if runRepo.state.ConsecutiveFailures != 1 {
		t.Errorf("Expected streak of 1, got %d", runRepo.state.ConsecutiveFailures)
	}
}

func TestMonitor_AlertsExactlyOncePerStreak(t *testing.T) {
	runRepo := &mockRunRepo{}
	alerter := &mockAlerter{}
	monitor := NewMonitor(runRepo, alerter)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := monitor.RecordFailure(ctx, errors.New("boom")); err != nil {
			t.Fatalf("RecordFailure %d failed: %v", i, err)
		}
	}

	if len(alerter.failureAlerts) != 1 {
		t.Errorf("Expected exactly 1 alert for the streak, got %d", len(alerter.failureAlerts))
	}
	if !runRepo.state.AlertSent {
		t.Error("Alert flag should be persisted")
	}
}

func TestMonitor_NewStreakAlertsAgain(t *testing.T) {
	runRepo := &mockRunRepo{}
	alerter := &mockAlerter{}
	monitor := NewMonitor(runRepo, alerter)

	ctx := context.Background()
	monitor.RecordFailure(ctx, errors.New("first streak"))
	monitor.RecordFailure(ctx, errors.New("first streak"))
	if err := monitor.RecordSuccess(ctx); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}
	monitor.RecordFailure(ctx, errors.New("second streak"))
	monitor.RecordFailure(ctx, errors.New("second streak"))

	if len(alerter.failureAlerts) != 2 {
		t.Errorf("Expected one alert per streak, got %d", len(alerter.failureAlerts))
	}
}

func TestMonitor_RecoveryNotificationAfterStreak(t *testing.T) {
	runRepo := &mockRunRepo{}
	alerter := &mockAlerter{}
	monitor := NewMonitor(runRepo, alerter)

	ctx := context.Background()
	monitor.RecordFailure(ctx, errors.New("boom"))

	if err := monitor.RecordSuccess(ctx); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	if alerter.recoveries != 1 {
		t.Errorf("Expected 1 recovery notification, got %d", alerter.recoveries)
	}
	if runRepo.state.ConsecutiveFailures != 0 {
		t.Errorf("Expected streak reset, got %d", runRepo.state.ConsecutiveFailures)
	}
}

func TestMonitor_SuccessWithoutStreakIsQuiet(t *testing.T) {
	runRepo := &mockRunRepo{}
	alerter := &mockAlerter{}
	monitor := NewMonitor(runRepo, alerter)

	if err := monitor.RecordSuccess(context.Background()); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	if alerter.recoveries != 0 {
		t.Errorf("Expected no recovery notification, got %d", alerter.recoveries)
	}
}

func TestMonitor_DeliveryFailureIsRetriedNextFailure(t *testing.T) {
	runRepo := &mockRunRepo{}
	alerter := &mockAlerter{sendErr: errors.New("smtp down")}
	monitor := NewMonitor(runRepo, alerter)

	ctx := context.Background()
	monitor.RecordFailure(ctx, errors.New("boom"))
	if err := monitor.RecordFailure(ctx, errors.New("boom")); err != nil {
		t.Fatalf("Delivery failure must not escalate: %v", err)
	}
	if runRepo.state.AlertSent {
		t.Error("Alert flag must stay unset when delivery fails")
	}

	alerter.sendErr = nil
	monitor.RecordFailure(ctx, errors.New("boom"))

	if len(alerter.failureAlerts) != 1 {
		t.Errorf("Expected the alert to go out on the next failure, got %d", len(alerter.failureAlerts))
	}
	if !runRepo.state.AlertSent {
		t.Error("Alert flag should be set after successful delivery")
	}
}

func TestMonitor_NilAlerterIsSafe(t *testing.T) {
	runRepo := &mockRunRepo{}
	monitor := NewMonitor(runRepo, nil)

	ctx := context.Background()
	monitor.RecordFailure(ctx, errors.New("boom"))
	if err := monitor.RecordFailure(ctx, errors.New("boom")); err != nil {
		t.Fatalf("RecordFailure with nil alerter failed: %v", err)
	}
	if err := monitor.RecordSuccess(ctx); err != nil {
		t.Fatalf("RecordSuccess with nil alerter failed: %v", err)
	}
}
