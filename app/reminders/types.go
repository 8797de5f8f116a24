package reminders

import (
	"time"
)

// DefaultLeadHours is the advance-warning ladder, in hours before the due
// instant, descending. Companion event paths are derived from it, so the
// writer and the cleanup code must agree on one definition.
var DefaultLeadHours = []int{48, 24, 6, 2}

// Alarm is a single advance warning attached to a reminder.
type Alarm struct {
	LeadHours int
	At        time.Time
}

// Reminder is the full desired state of one sink object. Update calls
// replace the remote object wholesale with this state.
type Reminder struct {
	Title  string
	Notes  string // carries the recovery fingerprint and the assignment title
	DueAt  time.Time
	Alarms []Alarm // descending lead order, already filtered to upcoming instants
}
