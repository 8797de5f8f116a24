package sync

import (
	"testing"
	"time"

	"github.com/classmind/classmind/app/classroom"
	"github.com/classmind/classmind/app/database"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func testWork(due *time.Time) classroom.CourseWork {
	return classroom.CourseWork{
		ID:       "work-1",
		CourseID: "course-1",
		TopicID:  "topic-1",
		Title:    "Problem Set 3",
		DueAt:    due,
	}
}

func testStored(due time.Time) *database.Assignment {
	return &database.Assignment{
		ID:            "work-1",
		CourseID:      "course-1",
		CategoryID:    "topic-1",
		CategoryName:  "Homework",
		Title:         "Problem Set 3",
		DueAt:         timePtr(due),
		LastSeenDueAt: timePtr(due),
	}
}

func TestClassify_NewWithoutDueDateIgnored(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	obs := Observation{Work: testWork(nil), CategoryAllowed: true}

	decision := Classify(nil, obs, now)
	if decision.Action != ActionIgnore {
		t.Errorf("Expected ignore, got %s", decision.Action)
	}
}

func TestClassify_NewWithDisabledCategoryIgnored(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(72 * time.Hour)
	obs := Observation{Work: testWork(&due), CategoryAllowed: false}

	decision := Classify(nil, obs, now)
	if decision.Action != ActionIgnore {
		t.Errorf("Expected ignore, got %s", decision.Action)
	}
}

func TestClassify_NewPastDeadlineIgnored(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	obs := Observation{Work: testWork(&due), CategoryAllowed: true}

	decision := Classify(nil, obs, now)
	if decision.Action != ActionIgnore {
		t.Errorf("Expected ignore, got %s", decision.Action)
	}
}

func TestClassify_NewAssignmentCreated(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(72 * time.Hour)
	obs := Observation{Work: testWork(&due), CategoryAllowed: true, CategoryName: "Homework"}

	decision := Classify(nil, obs, now)
	if decision.Action != ActionCreate {
		t.Errorf("Expected create, got %s", decision.Action)
	}
}

func TestClassify_DeadAssignmentUntouched(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(72 * time.Hour)
	stored := testStored(due)
	stored.IsDead = true
	obs := Observation{Work: testWork(&due), CategoryAllowed: true, CategoryName: "Homework"}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionIgnore {
		t.Errorf("Expected ignore, got %s", decision.Action)
	}
}

func TestClassify_SubmittedKilledFirst(t *testing.T) {
	// Submission wins over every other rule, including a passed deadline
	// and a due-date change observed in the same pass
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	storedDue := now.Add(-48 * time.Hour)
	newDue := now.Add(24 * time.Hour)
	stored := testStored(storedDue)
	obs := Observation{Work: testWork(&newDue), CategoryAllowed: true, Submitted: true}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionKill {
		t.Fatalf("Expected kill, got %s", decision.Action)
	}
	if decision.Expired {
		t.Error("Submission kill should not be marked as expired")
	}
}

func TestClassify_PastDeadlineKilledOnce(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	stored := testStored(due)
	obs := Observation{Work: testWork(&due), CategoryAllowed: true}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionKill {
		t.Fatalf("Expected kill, got %s", decision.Action)
	}
	if !decision.Expired {
		t.Error("Deadline kill should be marked as expired")
	}
	if !decision.MarkPostDeadlineChecked {
		t.Error("First deadline kill should request the post-deadline mark")
	}

	stored.PostDeadlineChecked = true
	decision = Classify(stored, obs, now)
	if decision.Action != ActionKill {
		t.Fatalf("Expected kill on retry, got %s", decision.Action)
	}
	if decision.MarkPostDeadlineChecked {
		t.Error("Post-deadline mark should not be requested twice")
	}
}

func TestClassify_DueDateChangeBeatsMetadataChange(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	storedDue := now.Add(48 * time.Hour)
	newDue := now.Add(96 * time.Hour)
	stored := testStored(storedDue)

	work := testWork(&newDue)
	work.Title = "Problem Set 3 (extended)"
	obs := Observation{Work: work, CategoryAllowed: true, CategoryName: "Homework"}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionReactivate {
		t.Errorf("Expected reactivate, got %s", decision.Action)
	}
}

func TestClassify_DueDateRestoredToOriginalStillReactivates(t *testing.T) {
	// Comparison is against the last seen instant, not the original one
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	original := now.Add(48 * time.Hour)
	extended := now.Add(96 * time.Hour)
	stored := testStored(original)
	stored.LastSeenDueAt = timePtr(extended)
	obs := Observation{Work: testWork(&original), CategoryAllowed: true, CategoryName: "Homework"}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionReactivate {
		t.Errorf("Expected reactivate, got %s", decision.Action)
	}
}

func TestClassify_MetadataChange(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)
	stored := testStored(due)

	work := testWork(&due)
	obs := Observation{Work: work, CategoryAllowed: true, CategoryName: "Homework Week 2"}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionUpdateMetadata {
		t.Errorf("Expected update_metadata, got %s", decision.Action)
	}
}

func TestClassify_UnchangedTouchesOnly(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)
	stored := testStored(due)
	obs := Observation{Work: testWork(&due), CategoryAllowed: true, CategoryName: "Homework"}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionNone {
		t.Errorf("Expected none, got %s", decision.Action)
	}
}

func TestClassify_CategoryDisableIsNotRetroactive(t *testing.T) {
	// Disabling a category stops new registrations; assignments that were
	// registered while it was enabled keep living
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)
	stored := testStored(due)
	obs := Observation{Work: testWork(&due), CategoryAllowed: false, CategoryName: "Homework"}

	decision := Classify(stored, obs, now)
	if decision.Action != ActionNone {
		t.Errorf("Expected none for existing assignment in disabled category, got %s", decision.Action)
	}
}
