package database

import (
	"database/sql"
	"fmt"
)

var _ RunRepository = (*runRepository)(nil)

// runRepository handles the run audit log and the failure-state singleton
type runRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

// StartRun opens a new run log row and returns its ID
func (r *runRepository) StartRun() (int64, error) {
	var runID int64
	err := r.db.QueryRow(`
		INSERT INTO sync_runs (status) VALUES ($1) RETURNING id
	`, RunStatusRunning).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	return runID, nil
}

// CompleteRun fills in the end-of-run fields. The row is never mutated again.
func (r *runRepository) CompleteRun(runID int64, status, errorMessage string, stats RunStats) error {
	_, err := r.db.Exec(`
		UPDATE sync_runs
		SET status = $2, error_message = $3, assignments_processed = $4,
			reminders_created = $5, reminders_updated = $6, reminders_cancelled = $7,
			errors = $8, completed_at = NOW()
		WHERE id = $1
	`, runID, status, errorMessage, stats.AssignmentsProcessed,
		stats.RemindersCreated, stats.RemindersUpdated, stats.RemindersCancelled, stats.Errors)

	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	return nil
}

func (r *runRepository) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, status, error_message, assignments_processed, reminders_created,
			reminders_updated, reminders_cancelled, errors, started_at, completed_at
		FROM sync_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		err := rows.Scan(&run.ID, &run.Status, &run.ErrorMessage,
			&run.AssignmentsProcessed, &run.RemindersCreated, &run.RemindersUpdated,
			&run.RemindersCancelled, &run.Errors, &run.StartedAt, &run.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetFailureState reads the singleton failure tracking row
func (r *runRepository) GetFailureState() (*FailureState, error) {
	var state FailureState
	err := r.db.QueryRow(`
		SELECT last_success, last_failure, consecutive_failures, alert_sent, updated_at
		FROM sync_failures WHERE id = 1
	`).Scan(&state.LastSuccess, &state.LastFailure, &state.ConsecutiveFailures,
		&state.AlertSent, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("failure state row missing; run migrations")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failure state: %w", err)
	}

	return &state, nil
}

func (r *runRepository) RecordSuccess() error {
	_, err := r.db.Exec(`
		UPDATE sync_failures
		SET last_success = NOW(), consecutive_failures = 0, alert_sent = FALSE, updated_at = NOW()
		WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("failed to record success: %w", err)
	}

	return nil
}

// RecordFailure increments the consecutive-failure counter atomically and
// returns the new count.
func (r *runRepository) RecordFailure() (int, error) {
	var consecutive int
	err := r.db.QueryRow(`
		UPDATE sync_failures
		SET consecutive_failures = consecutive_failures + 1,
			last_failure = NOW(), updated_at = NOW()
		WHERE id = 1
		RETURNING consecutive_failures
	`).Scan(&consecutive)
	if err != nil {
		return 0, fmt.Errorf("failed to record failure: %w", err)
	}

	return consecutive, nil
}

func (r *runRepository) MarkAlertSent() error {
	_, err := r.db.Exec(`
		UPDATE sync_failures SET alert_sent = TRUE, updated_at = NOW() WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("failed to mark alert sent: %w", err)
	}

	return nil
}
