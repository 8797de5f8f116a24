package sync

import (
	"fmt"
	"strings"
)

// Fingerprint builds the content-addressable marker embedded in reminder
// notes. It survives in the sink even when the stored reference is lost,
// so a later pass can re-associate the reminder instead of duplicating it.
func Fingerprint(assignmentID, courseID string) string {
	return fmt.Sprintf("classroom_assignment_id=%s;course_id=%s", assignmentID, courseID)
}

// FormatTitle builds the reminder title shown in the calendar app.
// The full assignment title goes into the notes; titles stay short so
// they fit on a lock-screen notification.
func FormatTitle(categoryName, courseCode string) string {
	if categoryName == "" {
		categoryName = "ASSIGNMENT"
	}
	return fmt.Sprintf("[%s] - %s", strings.ToUpper(categoryName), courseCode)
}

// FormatNotes builds the reminder notes body: the fingerprint followed by
// the assignment title.
func FormatNotes(fingerprint, assignmentTitle string) string {
	return fingerprint + "; " + assignmentTitle
}
