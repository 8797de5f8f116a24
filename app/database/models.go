package database

import (
	"time"
)

// Submission status values stored on assignments.
const (
	SubmissionStatusNotSubmitted = "NOT_SUBMITTED"
	SubmissionStatusSubmitted    = "SUBMITTED"
)

// Run statuses recorded in the sync_runs audit table.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusSuccess   = "SUCCESS"
	RunStatusFailed    = "FAILED"
	RunStatusRecovered = "RECOVERED"
)

type Course struct {
	ID                    string
	Name                  string
	Section               string
	CourseCode            string // Display code used in reminder titles, dashboard-owned
	CalendarName          string // Sink list override, dashboard-owned
	Color                 string
	Enabled               bool
	SyncWithoutCategories bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ListName returns the reminder sink list the course maps to.
// Priority: calendar_name > course name.
func (c Course) ListName() string {
	if c.CalendarName != "" {
		return c.CalendarName
	}
	return c.Name
}

// DisplayCode returns the short code used in reminder titles.
func (c Course) DisplayCode() string {
	if c.CourseCode != "" {
		return c.CourseCode
	}
	return c.Name
}

type Category struct {
	ID        string
	CourseID  string
	Name      string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Assignment struct {
	ID                   string
	CourseID             string
	CategoryID           string
	CategoryName         string // Denormalized topic name, refreshed on rename
	Title                string
	Description          string
	DueAt                *time.Time
	LastSeenDueAt        *time.Time // Tracked separately to detect due-date changes
	SubmissionStatus     string
	PostDeadlineChecked  bool // One-shot final submission check already performed
	IsDead               bool
	ReminderRef          string // Opaque sink object reference, kept after death for audit
	ReminderFingerprint  string
	LastCheckedAt        *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Alarm struct {
	AssignmentID string
	LeadHours    int
	ScheduledAt  time.Time
	Fired        bool
	FiredAt      *time.Time
}

type Run struct {
	ID                   int64
	Status               string
	ErrorMessage         string
	AssignmentsProcessed int
	RemindersCreated     int
	RemindersUpdated     int
	RemindersCancelled   int
	Errors               int
	StartedAt            time.Time
	CompletedAt          *time.Time
}

// FailureState is the singleton cross-run failure tracking record.
// Exactly one row exists; the id=1 constraint is enforced in the schema.
type FailureState struct {
	LastSuccess         *time.Time
	LastFailure         *time.Time
	ConsecutiveFailures int
	AlertSent           bool
	UpdatedAt           time.Time
}

// RunStats aggregates the counters written to a run's log row.
type RunStats struct {
	AssignmentsProcessed int
	RemindersCreated     int
	RemindersUpdated     int
	RemindersCancelled   int
	Errors               int
}
