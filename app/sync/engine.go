package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/classmind/classmind/app/cfg"
	"github.com/classmind/classmind/app/classroom"
	"github.com/classmind/classmind/app/database"
	"github.com/classmind/classmind/app/reminders"
)

// fatalError marks errors that must abort the whole pass: local store
// failures and upstream auth failures. Everything else is contained to the
// assignment (or course) that raised it.
type fatalError struct {
	err error
}

func (e fatalError) Error() string {
	return e.err.Error()
}

func (e fatalError) Unwrap() error {
	return e.err
}

func fatal(err error) error {
	return fatalError{err: err}
}

func isFatal(err error) bool {
	var f fatalError
	return errors.As(err, &f)
}

// Engine runs one reconciliation pass: discover courses and categories,
// classify every coursework item against its stored row, and converge the
// reminder sink and the store onto the upstream state. The engine keeps no
// in-memory state between passes; a crash at any point is repaired by the
// next pass.
type Engine struct {
	courses     database.CourseRepository
	assignments database.AssignmentRepository
	runs        database.RunRepository
	source      CourseSource
	sink        ReminderSink

	leadHours []int
	startHour int
	loc       *time.Location
	now       func() time.Time
}

func NewEngine(courses database.CourseRepository, assignments database.AssignmentRepository, runs database.RunRepository, source CourseSource, sink ReminderSink) *Engine {
	appCfg := cfg.Get()

	return &Engine{
		courses:     courses,
		assignments: assignments,
		runs:        runs,
		source:      source,
		sink:        sink,
		leadHours:   DefaultLeadHours,
		startHour:   appCfg.NotificationStart,
		loc:         appCfg.Location,
		now:         time.Now,
	}
}

// Run executes one full pass and records it in the run log. The run row is
// opened before any work and completed exactly once; a success that follows
// a failure streak is recorded as recovered.
func (e *Engine) Run(ctx context.Context) (database.RunStats, error) {
	var stats database.RunStats

	runID, err := e.runs.StartRun()
	if err != nil {
		return stats, fmt.Errorf("failed to start run: %w", err)
	}

	slog.Info("Sync pass started", "run_id", runID)

	passErr := e.pass(ctx, &stats)

	status := database.RunStatusSuccess
	errorMessage := ""
	if passErr != nil {
		status = database.RunStatusFailed
		errorMessage = passErr.Error()
	} else if state, serr := e.runs.GetFailureState(); serr == nil && state.ConsecutiveFailures > 0 {
		status = database.RunStatusRecovered
	}

	if err := e.runs.CompleteRun(runID, status, errorMessage, stats); err != nil {
		slog.Error("Failed to complete run record", "run_id", runID, "error", err)
		if passErr == nil {
			passErr = fmt.Errorf("failed to complete run record: %w", err)
		}
	}

	slog.Info("Sync pass finished",
		"run_id", runID,
		"status", status,
		"processed", stats.AssignmentsProcessed,
		"created", stats.RemindersCreated,
		"updated", stats.RemindersUpdated,
		"cancelled", stats.RemindersCancelled,
		"errors", stats.Errors)

	return stats, passErr
}

func (e *Engine) pass(ctx context.Context, stats *database.RunStats) error {
	if err := e.discoverCourses(ctx); err != nil {
		return err
	}

	enabled, err := e.courses.GetEnabledCourses()
	if err != nil {
		return fmt.Errorf("failed to load enabled courses: %w", err)
	}

	if len(enabled) == 0 {
		slog.Warn("No enabled courses, nothing to sync")
		return nil
	}

	for _, course := range enabled {
		if err := e.processCourse(ctx, course, stats); err != nil {
			if isFatal(err) || classroom.IsAuthError(err) {
				return err
			}
			slog.Error("Course processing failed", "course_id", course.ID, "course", course.Name, "error", err)
			stats.Errors++
		}
	}

	return nil
}

// discoverCourses refreshes the stored course and category catalog from the
// upstream roster. New rows arrive disabled; enabling is a dashboard action
// and existing toggles are never overwritten here.
func (e *Engine) discoverCourses(ctx context.Context) error {
	courses, err := e.source.Courses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	slog.Debug("Courses discovered", "count", len(courses))

	for _, course := range courses {
		err := e.courses.UpsertCourse(database.Course{
			ID:      course.ID,
			Name:    course.Name,
			Section: course.Section,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert course %s: %w", course.ID, err)
		}

		topics, err := e.source.Topics(ctx, course.ID)
		if err != nil {
			if classroom.IsAuthError(err) {
				return err
			}
			slog.Warn("Failed to list topics", "course_id", course.ID, "error", err)
			continue
		}

		for _, topic := range topics {
			err := e.courses.UpsertCategory(database.Category{
				ID:       topic.ID,
				CourseID: topic.CourseID,
				Name:     topic.Name,
			})
			if err != nil {
				return fmt.Errorf("failed to upsert category %s: %w", topic.ID, err)
			}
		}
	}

	return nil
}

func (e *Engine) processCourse(ctx context.Context, course database.Course, stats *database.RunStats) error {
	categories, err := e.courses.GetCategories(course.ID)
	if err != nil {
		return fatal(fmt.Errorf("failed to load categories for course %s: %w", course.ID, err))
	}

	allowed := make(map[string]bool, len(categories))
	names := make(map[string]string, len(categories))
	for _, category := range categories {
		names[category.ID] = category.Name
		if category.Enabled {
			allowed[category.ID] = true
		}
	}

	if len(allowed) == 0 && !course.SyncWithoutCategories {
		slog.Warn("No enabled categories, skipping course", "course_id", course.ID, "course", course.Name)
		return nil
	}

	works, err := e.source.CourseWork(ctx, course.ID)
	if err != nil {
		return fmt.Errorf("failed to list coursework: %w", err)
	}

	slog.Debug("Processing course", "course_id", course.ID, "course", course.Name, "coursework", len(works))

	for _, work := range works {
		if err := e.processAssignment(ctx, course, work, allowed, names, stats); err != nil {
			if isFatal(err) || classroom.IsAuthError(err) {
				return err
			}
			slog.Error("Assignment processing failed", "assignment_id", work.ID, "title", work.Title, "error", err)
			stats.Errors++
		}
	}

	return nil
}

func (e *Engine) processAssignment(ctx context.Context, course database.Course, work classroom.CourseWork, allowed map[string]bool, names map[string]string, stats *database.RunStats) error {
	stats.AssignmentsProcessed++

	stored, err := e.assignments.GetAssignment(work.ID)
	if err != nil {
		return fatal(fmt.Errorf("failed to load assignment: %w", err))
	}

	obs := Observation{
		Work:         work,
		CategoryName: names[work.TopicID],
	}
	// The category filter applies to categorized work only: an item with no
	// category always syncs, and the course-level override lifts the filter
	// for categorized items too.
	obs.CategoryAllowed = work.TopicID == "" || course.SyncWithoutCategories || allowed[work.TopicID]

	// One submission fetch per stored active assignment per pass. The kill
	// branch reuses this result as its authoritative post-deadline check.
	if stored != nil && !stored.IsDead {
		submitted, err := e.source.SubmissionState(ctx, course.ID, work.ID)
		if err != nil {
			return fmt.Errorf("failed to check submission state: %w", err)
		}
		obs.Submitted = submitted
	}

	now := e.now()
	decision := Classify(stored, obs, now)

	slog.Debug("Assignment classified",
		"assignment_id", work.ID,
		"action", decision.Action.String(),
		"reason", decision.Reason)

	switch decision.Action {
	case ActionCreate:
		return e.create(ctx, course, work, obs, now, stats)
	case ActionKill:
		return e.kill(ctx, course, stored, decision, obs, stats)
	case ActionReactivate:
		return e.reactivate(ctx, course, work, stored, obs, now, stats)
	case ActionUpdateMetadata:
		return e.updateMetadata(ctx, course, work, stored, obs, now, stats)
	case ActionNone:
		if err := e.assignments.TouchLastChecked(work.ID, now); err != nil {
			return fatal(fmt.Errorf("failed to touch assignment: %w", err))
		}
		return e.markElapsedAlarms(work.ID, now)
	default:
		return nil
	}
}

// create registers a new assignment. The reminder object is written to the
// sink before the row is persisted, so a crash in between leaves an orphan
// the fingerprint search re-associates on the next pass rather than a row
// pointing at nothing.
func (e *Engine) create(ctx context.Context, course database.Course, work classroom.CourseWork, obs Observation, now time.Time, stats *database.RunStats) error {
	due := *work.DueAt
	fingerprint := Fingerprint(work.ID, course.ID)
	alarms := ComputeAlarms(due, e.leadHours, e.startHour, e.loc)

	listPath, err := e.sink.EnsureList(ctx, course.ListName())
	if err != nil {
		return fmt.Errorf("failed to ensure reminder list: %w", err)
	}

	ref, recovered, err := e.ensureReminder(ctx, listPath, "", fingerprint, e.payload(course, work, obs, due, alarms, now))
	if err != nil {
		return err
	}
	if recovered {
		slog.Info("Re-associated orphaned reminder", "assignment_id", work.ID, "ref", ref)
	}

	assignment := database.Assignment{
		ID:                  work.ID,
		CourseID:            course.ID,
		CategoryID:          work.TopicID,
		CategoryName:        obs.CategoryName,
		Title:               work.Title,
		Description:         work.Description,
		DueAt:               &due,
		SubmissionStatus:    database.SubmissionStatusNotSubmitted,
		ReminderRef:         ref,
		ReminderFingerprint: fingerprint,
	}
	if err := e.assignments.InsertAssignment(assignment); err != nil {
		return fatal(fmt.Errorf("failed to insert assignment: %w", err))
	}
	if err := e.assignments.ReplaceAlarms(work.ID, dbAlarms(work.ID, alarms)); err != nil {
		return fatal(fmt.Errorf("failed to store alarms: %w", err))
	}
	if err := e.markElapsedAlarms(work.ID, now); err != nil {
		return err
	}

	stats.RemindersCreated++
	slog.Info("Reminder created", "assignment_id", work.ID, "title", work.Title, "due", due, "alarms", len(alarms))
	return nil
}

// kill deactivates an assignment. Sink deletion is best effort; the row is
// marked dead regardless so the assignment never reenters processing.
func (e *Engine) kill(ctx context.Context, course database.Course, stored *database.Assignment, decision Decision, obs Observation, stats *database.RunStats) error {
	if stored.ReminderRef != "" {
		listPath, err := e.sink.EnsureList(ctx, course.ListName())
		if err != nil {
			slog.Warn("Failed to resolve reminder list for cancellation", "assignment_id", stored.ID, "error", err)
		} else if err := e.sink.Delete(ctx, listPath, stored.ReminderRef); err != nil {
			slog.Warn("Failed to delete reminder", "assignment_id", stored.ID, "ref", stored.ReminderRef, "error", err)
		}
	}

	if decision.MarkPostDeadlineChecked {
		if err := e.assignments.MarkPostDeadlineChecked(stored.ID); err != nil {
			return fatal(fmt.Errorf("failed to mark post-deadline check: %w", err))
		}
	}
	if obs.Submitted {
		if err := e.assignments.SetSubmissionStatus(stored.ID, database.SubmissionStatusSubmitted); err != nil {
			return fatal(fmt.Errorf("failed to set submission status: %w", err))
		}
	}
	if err := e.assignments.DeleteAlarms(stored.ID); err != nil {
		return fatal(fmt.Errorf("failed to delete alarms: %w", err))
	}
	if err := e.assignments.MarkDead(stored.ID); err != nil {
		return fatal(fmt.Errorf("failed to deactivate assignment: %w", err))
	}

	stats.RemindersCancelled++
	slog.Info("Assignment deactivated", "assignment_id", stored.ID, "title", stored.Title, "reason", decision.Reason)
	return nil
}

// reactivate handles a due-instant change: the sink object is rewritten in
// place under its existing reference and the stored alarm set is rebuilt
// from scratch against the new instant.
func (e *Engine) reactivate(ctx context.Context, course database.Course, work classroom.CourseWork, stored *database.Assignment, obs Observation, now time.Time, stats *database.RunStats) error {
	due := *work.DueAt
	alarms := ComputeAlarms(due, e.leadHours, e.startHour, e.loc)

	listPath, err := e.sink.EnsureList(ctx, course.ListName())
	if err != nil {
		return fmt.Errorf("failed to ensure reminder list: %w", err)
	}

	ref, _, err := e.ensureReminder(ctx, listPath, stored.ReminderRef, e.fingerprintFor(stored, course), e.payload(course, work, obs, due, alarms, now))
	if err != nil {
		return err
	}
	if ref != stored.ReminderRef {
		if err := e.assignments.SetReminderRef(stored.ID, ref); err != nil {
			return fatal(fmt.Errorf("failed to store reminder ref: %w", err))
		}
	}

	if err := e.assignments.UpdateDueDate(stored.ID, due); err != nil {
		return fatal(fmt.Errorf("failed to update due date: %w", err))
	}
	if err := e.assignments.UpdateMetadata(stored.ID, work.TopicID, obs.CategoryName, work.Title, work.Description); err != nil {
		return fatal(fmt.Errorf("failed to update metadata: %w", err))
	}
	if err := e.assignments.ReplaceAlarms(stored.ID, dbAlarms(stored.ID, alarms)); err != nil {
		return fatal(fmt.Errorf("failed to store alarms: %w", err))
	}
	if err := e.markElapsedAlarms(stored.ID, now); err != nil {
		return err
	}

	stats.RemindersUpdated++
	slog.Info("Due date changed, alarms rebuilt",
		"assignment_id", stored.ID,
		"title", work.Title,
		"due", due,
		"previous", stored.LastSeenDueAt)
	return nil
}

// updateMetadata refreshes the reminder and the row after a title or
// category change. Alarms are untouched: the due instant did not move.
func (e *Engine) updateMetadata(ctx context.Context, course database.Course, work classroom.CourseWork, stored *database.Assignment, obs Observation, now time.Time, stats *database.RunStats) error {
	due := *work.DueAt
	alarms := ComputeAlarms(due, e.leadHours, e.startHour, e.loc)

	listPath, err := e.sink.EnsureList(ctx, course.ListName())
	if err != nil {
		return fmt.Errorf("failed to ensure reminder list: %w", err)
	}

	ref, _, err := e.ensureReminder(ctx, listPath, stored.ReminderRef, e.fingerprintFor(stored, course), e.payload(course, work, obs, due, alarms, now))
	if err != nil {
		return err
	}
	if ref != stored.ReminderRef {
		if err := e.assignments.SetReminderRef(stored.ID, ref); err != nil {
			return fatal(fmt.Errorf("failed to store reminder ref: %w", err))
		}
	}

	if err := e.assignments.UpdateMetadata(stored.ID, work.TopicID, obs.CategoryName, work.Title, work.Description); err != nil {
		return fatal(fmt.Errorf("failed to update metadata: %w", err))
	}
	if err := e.assignments.TouchLastChecked(stored.ID, now); err != nil {
		return fatal(fmt.Errorf("failed to touch assignment: %w", err))
	}
	if err := e.markElapsedAlarms(stored.ID, now); err != nil {
		return err
	}

	stats.RemindersUpdated++
	slog.Info("Assignment metadata updated", "assignment_id", stored.ID, "title", work.Title)
	return nil
}

func (e *Engine) payload(course database.Course, work classroom.CourseWork, obs Observation, due time.Time, alarms []AlarmTime, now time.Time) reminders.Reminder {
	fingerprint := Fingerprint(work.ID, course.ID)

	reminder := reminders.Reminder{
		Title: FormatTitle(obs.CategoryName, course.DisplayCode()),
		Notes: FormatNotes(fingerprint, work.Title),
		DueAt: due,
	}
	for _, alarm := range Upcoming(alarms, now) {
		reminder.Alarms = append(reminder.Alarms, reminders.Alarm{LeadHours: alarm.LeadHours, At: alarm.At})
	}

	return reminder
}

func (e *Engine) fingerprintFor(stored *database.Assignment, course database.Course) string {
	if stored.ReminderFingerprint != "" {
		return stored.ReminderFingerprint
	}
	return Fingerprint(stored.ID, course.ID)
}

// markElapsedAlarms records which stored alarms have passed their instant.
// The sink delivers the actual notifications; this is bookkeeping for the
// run log and dashboard.
func (e *Engine) markElapsedAlarms(assignmentID string, now time.Time) error {
	alarms, err := e.assignments.GetAlarms(assignmentID)
	if err != nil {
		return fatal(fmt.Errorf("failed to load alarms: %w", err))
	}

	for _, alarm := range alarms {
		if alarm.Fired || alarm.ScheduledAt.After(now) {
			continue
		}
		if err := e.assignments.MarkAlarmFired(assignmentID, alarm.LeadHours, alarm.ScheduledAt); err != nil {
			return fatal(fmt.Errorf("failed to mark alarm fired: %w", err))
		}
	}

	return nil
}

func dbAlarms(assignmentID string, alarms []AlarmTime) []database.Alarm {
	out := make([]database.Alarm, 0, len(alarms))
	for _, alarm := range alarms {
		out = append(out, database.Alarm{
			AssignmentID: assignmentID,
			LeadHours:    alarm.LeadHours,
			ScheduledAt:  alarm.At,
		})
	}
	return out
}
