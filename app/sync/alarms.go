package sync

import (
	"time"

	"github.com/classmind/classmind/app/reminders"
)

// DefaultLeadHours is the advance-warning ladder, in hours before the due
// instant, descending. The sink derives companion event paths from the same
// set, so there is exactly one definition.
var DefaultLeadHours = reminders.DefaultLeadHours

// AlarmTime is one computed advance warning for a due instant.
type AlarmTime struct {
	LeadHours int
	At        time.Time
}

// ComputeAlarms maps a due instant onto the lead-time ladder. One entry is
// produced per lead, in the given order, with the notification window
// applied: an instant whose local hour falls before startHour is moved to
// startHour on the same calendar day. Late-night instants pass through
// unchanged; the window only suppresses early-morning alarms, so a
// near-midnight deadline still warns near midnight.
//
// The function is pure: no I/O, no failure, same output for the same input.
func ComputeAlarms(due time.Time, leadHours []int, startHour int, loc *time.Location) []AlarmTime {
	alarms := make([]AlarmTime, 0, len(leadHours))

	for _, lead := range leadHours {
		at := due.Add(-time.Duration(lead) * time.Hour).In(loc)
		if at.Hour() < startHour {
			at = time.Date(at.Year(), at.Month(), at.Day(), startHour, 0, 0, 0, loc)
		}
		alarms = append(alarms, AlarmTime{LeadHours: lead, At: at})
	}

	return alarms
}

// Upcoming filters out alarms that have already passed relative to now.
// Used when a reminder is created after some of its warnings would have
// fired; the stored alarm set keeps the full ladder regardless.
func Upcoming(alarms []AlarmTime, now time.Time) []AlarmTime {
	upcoming := make([]AlarmTime, 0, len(alarms))
	for _, alarm := range alarms {
		if alarm.At.After(now) {
			upcoming = append(upcoming, alarm)
		}
	}
	return upcoming
}
