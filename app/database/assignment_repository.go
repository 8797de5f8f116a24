package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ AssignmentRepository = (*assignmentRepository)(nil)

// assignmentRepository handles database operations for assignments and alarms
type assignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `id, course_id, category_id, category_name, title, description,
	due_at, last_seen_due_at, submission_status, submission_checked_post_deadline,
	is_dead, reminder_ref, reminder_fingerprint, last_checked_at, created_at, updated_at`

func scanAssignment(row interface{ Scan(...any) error }) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.CourseID, &a.CategoryID, &a.CategoryName, &a.Title,
		&a.Description, &a.DueAt, &a.LastSeenDueAt, &a.SubmissionStatus,
		&a.PostDeadlineChecked, &a.IsDead, &a.ReminderRef, &a.ReminderFingerprint,
		&a.LastCheckedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAssignment returns an assignment by ID, or nil if it does not exist
func (r *assignmentRepository) GetAssignment(assignmentID string) (*Assignment, error) {
	assignment, err := scanAssignment(r.db.QueryRow(`
		SELECT `+assignmentColumns+` FROM assignments WHERE id = $1
	`, assignmentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return assignment, nil
}

// GetActiveAssignments returns all non-dead assignments
func (r *assignmentRepository) GetActiveAssignments() ([]Assignment, error) {
	rows, err := r.db.Query(`
		SELECT ` + assignmentColumns + ` FROM assignments WHERE is_dead = FALSE ORDER BY due_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		assignments = append(assignments, *assignment)
	}

	return assignments, rows.Err()
}

func (r *assignmentRepository) GetAssignmentCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM assignments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// InsertAssignment persists a newly discovered assignment.
// last_seen_due_at starts equal to due_at so the first pass after an
// extension has a stable comparison point.
func (r *assignmentRepository) InsertAssignment(a Assignment) error {
	_, err := r.db.Exec(`
		INSERT INTO assignments (
			id, course_id, category_id, category_name, title, description,
			due_at, last_seen_due_at, submission_status, reminder_ref,
			reminder_fingerprint, last_checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			category_name = EXCLUDED.category_name,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			reminder_ref = EXCLUDED.reminder_ref,
			reminder_fingerprint = EXCLUDED.reminder_fingerprint,
			last_checked_at = NOW(),
			updated_at = NOW()
	`, a.ID, a.CourseID, a.CategoryID, a.CategoryName, a.Title, a.Description,
		a.DueAt, a.SubmissionStatus, a.ReminderRef, a.ReminderFingerprint)

	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}

	return nil
}

func (r *assignmentRepository) TouchLastChecked(assignmentID string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE assignments SET last_checked_at = $2 WHERE id = $1
	`, assignmentID, at)

	if err != nil {
		return fmt.Errorf("failed to touch assignment: %w", err)
	}

	return nil
}

// MarkDead sets the terminal flag. The reminder reference is intentionally
// left in place for audit and recovery.
func (r *assignmentRepository) MarkDead(assignmentID string) error {
	_, err := r.db.Exec(`
		UPDATE assignments SET is_dead = TRUE, updated_at = NOW() WHERE id = $1
	`, assignmentID)

	if err != nil {
		return fmt.Errorf("failed to mark assignment dead: %w", err)
	}

	return nil
}

func (r *assignmentRepository) SetSubmissionStatus(assignmentID, status string) error {
	_, err := r.db.Exec(`
		UPDATE assignments
		SET submission_status = $2, last_checked_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, assignmentID, status)

	if err != nil {
		return fmt.Errorf("failed to set submission status: %w", err)
	}

	return nil
}

func (r *assignmentRepository) MarkPostDeadlineChecked(assignmentID string) error {
	_, err := r.db.Exec(`
		UPDATE assignments
		SET submission_checked_post_deadline = TRUE, last_checked_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, assignmentID)

	if err != nil {
		return fmt.Errorf("failed to mark post-deadline check: %w", err)
	}

	return nil
}

// UpdateDueDate advances both due_at and last_seen_due_at together so the
// change is not re-detected on the next pass, and re-arms the one-shot
// post-deadline check for the new deadline.
func (r *assignmentRepository) UpdateDueDate(assignmentID string, dueAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE assignments
		SET due_at = $2, last_seen_due_at = $2,
			submission_checked_post_deadline = FALSE, updated_at = NOW()
		WHERE id = $1
	`, assignmentID, dueAt)

	if err != nil {
		return fmt.Errorf("failed to update due date: %w", err)
	}

	return nil
}

func (r *assignmentRepository) UpdateMetadata(assignmentID, categoryID, categoryName, title, description string) error {
	_, err := r.db.Exec(`
		UPDATE assignments
		SET category_id = $2, category_name = $3, title = $4, description = $5,
			last_checked_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, assignmentID, categoryID, categoryName, title, description)

	if err != nil {
		return fmt.Errorf("failed to update assignment metadata: %w", err)
	}

	return nil
}

func (r *assignmentRepository) SetReminderRef(assignmentID, ref string) error {
	_, err := r.db.Exec(`
		UPDATE assignments SET reminder_ref = $2, updated_at = NOW() WHERE id = $1
	`, assignmentID, ref)

	if err != nil {
		return fmt.Errorf("failed to set reminder reference: %w", err)
	}

	return nil
}

// DeleteAssignmentsByCourse removes all local assignment state for a course.
// Alarm rows go with them via ON DELETE CASCADE. Used by the maintenance API.
func (r *assignmentRepository) DeleteAssignmentsByCourse(courseID string) (int, error) {
	result, err := r.db.Exec(`DELETE FROM assignments WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted assignments: %w", err)
	}

	return int(deleted), nil
}

func (r *assignmentRepository) GetAlarms(assignmentID string) ([]Alarm, error) {
	rows, err := r.db.Query(`
		SELECT assignment_id, lead_hours, scheduled_at, fired, fired_at
		FROM alarms WHERE assignment_id = $1 ORDER BY lead_hours DESC
	`, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []Alarm
	for rows.Next() {
		var a Alarm
		if err := rows.Scan(&a.AssignmentID, &a.LeadHours, &a.ScheduledAt, &a.Fired, &a.FiredAt); err != nil {
			return nil, fmt.Errorf("failed to scan alarm row: %w", err)
		}
		alarms = append(alarms, a)
	}

	return alarms, rows.Err()
}

// ReplaceAlarms swaps the full alarm set atomically. Alarms are never
// patched in place: a due-date change invalidates every scheduled instant.
func (r *assignmentRepository) ReplaceAlarms(assignmentID string, alarms []Alarm) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM alarms WHERE assignment_id = $1`, assignmentID); err != nil {
		return fmt.Errorf("failed to clear alarms: %w", err)
	}

	for _, alarm := range alarms {
		_, err := tx.Exec(`
			INSERT INTO alarms (assignment_id, lead_hours, scheduled_at)
			VALUES ($1, $2, $3)
		`, assignmentID, alarm.LeadHours, alarm.ScheduledAt)
		if err != nil {
			return fmt.Errorf("failed to insert alarm: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alarms: %w", err)
	}

	return nil
}

func (r *assignmentRepository) DeleteAlarms(assignmentID string) error {
	_, err := r.db.Exec(`DELETE FROM alarms WHERE assignment_id = $1`, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to delete alarms: %w", err)
	}

	return nil
}

func (r *assignmentRepository) MarkAlarmFired(assignmentID string, leadHours int, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE alarms SET fired = TRUE, fired_at = $3
		WHERE assignment_id = $1 AND lead_hours = $2
	`, assignmentID, leadHours, at)

	if err != nil {
		return fmt.Errorf("failed to mark alarm fired: %w", err)
	}

	return nil
}
