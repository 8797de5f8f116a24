package database

import (
	"time"
)

type CourseRepository interface {
	UpsertCourse(course Course) error
	GetCourse(courseID string) (*Course, error)
	GetCourses() ([]Course, error)
	GetEnabledCourses() ([]Course, error)
	GetCourseCount() (int, error)
	SetCourseEnabled(courseID string, enabled bool) error
	UpdateCourseSettings(courseID, calendarName, courseCode, color string, syncWithoutCategories bool) error

	UpsertCategory(category Category) error
	GetCategory(categoryID string) (*Category, error)
	GetCategories(courseID string) ([]Category, error)
	GetEnabledCategories(courseID string) ([]Category, error)
	SetCategoryEnabled(categoryID string, enabled bool) error
}

type AssignmentRepository interface {
	GetAssignment(assignmentID string) (*Assignment, error)
	GetActiveAssignments() ([]Assignment, error)
	GetAssignmentCount() (int, error)
	InsertAssignment(assignment Assignment) error
	TouchLastChecked(assignmentID string, at time.Time) error
	MarkDead(assignmentID string) error
	SetSubmissionStatus(assignmentID, status string) error
	MarkPostDeadlineChecked(assignmentID string) error
	UpdateDueDate(assignmentID string, dueAt time.Time) error
	UpdateMetadata(assignmentID, categoryID, categoryName, title, description string) error
	SetReminderRef(assignmentID, ref string) error
	DeleteAssignmentsByCourse(courseID string) (int, error)

	GetAlarms(assignmentID string) ([]Alarm, error)
	ReplaceAlarms(assignmentID string, alarms []Alarm) error
	DeleteAlarms(assignmentID string) error
	MarkAlarmFired(assignmentID string, leadHours int, at time.Time) error
}

type RunRepository interface {
	StartRun() (int64, error)
	CompleteRun(runID int64, status, errorMessage string, stats RunStats) error
	GetRecentRuns(limit int) ([]Run, error)

	GetFailureState() (*FailureState, error)
	RecordSuccess() error
	RecordFailure() (int, error)
	MarkAlertSent() error
}
