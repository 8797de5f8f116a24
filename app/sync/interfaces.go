package sync

import (
	"context"

	"github.com/classmind/classmind/app/classroom"
	"github.com/classmind/classmind/app/reminders"
)

// CourseSource reads courses, topics, coursework and submission state from
// the upstream classroom service.
type CourseSource interface {
	Courses(ctx context.Context) ([]classroom.Course, error)
	Topics(ctx context.Context, courseID string) ([]classroom.Topic, error)
	CourseWork(ctx context.Context, courseID string) ([]classroom.CourseWork, error)
	SubmissionState(ctx context.Context, courseID, courseWorkID string) (bool, error)
}

var _ CourseSource = (*classroom.Client)(nil)

// ReminderSink manages reminder lists and reminder objects in the external
// calendar store. References returned by Create are opaque and stable.
type ReminderSink interface {
	EnsureList(ctx context.Context, name string) (string, error)
	Create(ctx context.Context, listPath string, reminder reminders.Reminder) (string, error)
	Update(ctx context.Context, listPath string, ref string, reminder reminders.Reminder) error
	Delete(ctx context.Context, listPath string, ref string) error
	FindByFingerprint(ctx context.Context, listPath string, fingerprint string) ([]string, error)
}

var _ ReminderSink = (*reminders.Client)(nil)

// Alerter delivers operator notifications about failure streaks. Delivery
// errors are logged by callers and never escalate into run failures.
type Alerter interface {
	SendFailureAlert(ctx context.Context, errorMessage string) error
	SendRecovery(ctx context.Context) error
}
