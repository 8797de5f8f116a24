package sync

import (
	"time"

	"github.com/classmind/classmind/app/classroom"
	"github.com/classmind/classmind/app/database"
)

// Action is the lifecycle transition chosen for one assignment during a pass.
type Action int

const (
	// ActionIgnore skips the assignment without persisting anything.
	ActionIgnore Action = iota
	// ActionCreate registers a new assignment and creates its reminder.
	ActionCreate
	// ActionKill deactivates the assignment and cancels its reminder.
	ActionKill
	// ActionReactivate rebuilds the alarm set after a due-instant change.
	ActionReactivate
	// ActionUpdateMetadata refreshes title and category without touching alarms.
	ActionUpdateMetadata
	// ActionNone records the assignment as seen, nothing else.
	ActionNone
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionCreate:
		return "create"
	case ActionKill:
		return "kill"
	case ActionReactivate:
		return "reactivate"
	case ActionUpdateMetadata:
		return "update_metadata"
	case ActionNone:
		return "none"
	default:
		return "unknown"
	}
}

// Observation is everything the classifier may look at for one assignment
// in one pass: the upstream coursework, the resolved category, and the
// submission state (fetched only for stored, active assignments).
type Observation struct {
	Work            classroom.CourseWork
	CategoryName    string
	CategoryAllowed bool
	Submitted       bool
}

// Decision is the classifier output. Reason is a short human-readable tag
// for logging. Expired marks a kill caused by a passed deadline rather
// than a submission; MarkPostDeadlineChecked asks the engine to record
// that the one-shot post-deadline check ran.
type Decision struct {
	Action                  Action
	Reason                  string
	Expired                 bool
	MarkPostDeadlineChecked bool
}

// Classify picks the lifecycle action for one assignment. Rules are ordered
// and the first match wins. Discovery-time filters apply only when no row
// exists yet: disabling a category later does not kill assignments that
// were registered while it was enabled.
//
// The function is pure; the engine performs all I/O around it.
func Classify(stored *database.Assignment, obs Observation, now time.Time) Decision {
	if obs.Work.DueAt == nil {
		return Decision{Action: ActionIgnore, Reason: "no due date"}
	}
	due := *obs.Work.DueAt

	if stored == nil {
		if !obs.CategoryAllowed {
			return Decision{Action: ActionIgnore, Reason: "category disabled"}
		}
		if !due.After(now) {
			return Decision{Action: ActionIgnore, Reason: "past deadline"}
		}
		return Decision{Action: ActionCreate, Reason: "new assignment"}
	}

	if stored.IsDead {
		return Decision{Action: ActionIgnore, Reason: "already deactivated"}
	}

	if obs.Submitted {
		return Decision{Action: ActionKill, Reason: "submitted"}
	}

	if now.After(due) {
		return Decision{
			Action:                  ActionKill,
			Reason:                  "deadline passed",
			Expired:                 true,
			MarkPostDeadlineChecked: !stored.PostDeadlineChecked,
		}
	}

	if lastSeen := lastSeenDue(stored); lastSeen == nil || !due.Equal(*lastSeen) {
		return Decision{Action: ActionReactivate, Reason: "due date changed"}
	}

	if metadataChanged(stored, obs) {
		return Decision{Action: ActionUpdateMetadata, Reason: "metadata changed"}
	}

	return Decision{Action: ActionNone, Reason: "unchanged"}
}

func lastSeenDue(stored *database.Assignment) *time.Time {
	if stored.LastSeenDueAt != nil {
		return stored.LastSeenDueAt
	}
	return stored.DueAt
}

func metadataChanged(stored *database.Assignment, obs Observation) bool {
	return stored.Title != obs.Work.Title ||
		stored.CategoryID != obs.Work.TopicID ||
		stored.CategoryName != obs.CategoryName
}
