package reminders

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//ClassMind//Classroom Sync//EN"

// iOS renders at most two alarms per event. The closest leads stay on the
// main event; earlier leads become companion events at the alarm instant.
const maxEventAlarms = 2

// buildEvent assembles a VCALENDAR containing one VEVENT with the given
// display alarms.
func buildEvent(uid, title, notes string, start time.Time, alarms []time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, start)
	event.Props.SetText(ical.PropSummary, title)
	event.Props.SetText(ical.PropDescription, notes)
	event.Props.SetText(ical.PropStatus, "CONFIRMED")

	for _, at := range alarms {
		event.Children = append(event.Children, buildAlarm(title, at.Sub(start)))
	}

	cal.Children = append(cal.Children, event.Component)

	return cal
}

func buildAlarm(description string, offset time.Duration) *ical.Component {
	alarm := &ical.Component{
		Name:  ical.CompAlarm,
		Props: make(ical.Props),
	}
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, description)

	trigger := ical.NewProp(ical.PropTrigger)
	trigger.SetValueType(ical.ValueDuration)
	trigger.Value = formatTrigger(offset)
	alarm.Props.Set(trigger)

	return alarm
}

// formatTrigger renders a trigger offset as an ISO 8601 duration relative to
// the event start, e.g. -2h -> "-PT7200S".
func formatTrigger(offset time.Duration) string {
	seconds := int64(offset.Seconds())
	if seconds < 0 {
		return fmt.Sprintf("-PT%dS", -seconds)
	}
	return fmt.Sprintf("PT%dS", seconds)
}

// eventUID extracts the UID of the first VEVENT in a calendar object.
func eventUID(cal *ical.Calendar) string {
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if prop := child.Props.Get(ical.PropUID); prop != nil {
			return prop.Value
		}
	}
	return ""
}

// eventDescription extracts the DESCRIPTION of the first VEVENT.
func eventDescription(cal *ical.Calendar) string {
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if prop := child.Props.Get(ical.PropDescription); prop != nil {
			return prop.Value
		}
	}
	return ""
}

// slugify turns a calendar display name into a path segment.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		// A name with no ASCII letters or digits slugs to nothing, which
		// would collapse the calendar path onto the home set itself. Derive
		// a stable segment from the name instead.
		slug = uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
	}
	return slug
}
