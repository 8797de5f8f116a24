package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/classmind/classmind/app/classroom"
	"github.com/classmind/classmind/app/database"
	"github.com/classmind/classmind/app/reminders"
)

// mockCourseRepo implements database.CourseRepository in memory.
type mockCourseRepo struct {
	courses    map[string]*database.Course
	categories map[string]*database.Category
}

var _ database.CourseRepository = (*mockCourseRepo)(nil)

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{
		courses:    make(map[string]*database.Course),
		categories: make(map[string]*database.Category),
	}
}

func (m *mockCourseRepo) UpsertCourse(course database.Course) error {
	if existing, ok := m.courses[course.ID]; ok {
		existing.Name = course.Name
		existing.Section = course.Section
		return nil
	}
	c := course
	m.courses[course.ID] = &c
	return nil
}

func (m *mockCourseRepo) GetCourse(courseID string) (*database.Course, error) {
	return m.courses[courseID], nil
}

func (m *mockCourseRepo) GetCourses() ([]database.Course, error) {
	out := make([]database.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCourseRepo) GetEnabledCourses() ([]database.Course, error) {
	all, _ := m.GetCourses()
	out := make([]database.Course, 0, len(all))
	for _, c := range all {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) GetCourseCount() (int, error) {
	return len(m.courses), nil
}

func (m *mockCourseRepo) SetCourseEnabled(courseID string, enabled bool) error {
	if c, ok := m.courses[courseID]; ok {
		c.Enabled = enabled
	}
	return nil
}

func (m *mockCourseRepo) UpdateCourseSettings(courseID, calendarName, courseCode, color string, syncWithoutCategories bool) error {
	if c, ok := m.courses[courseID]; ok {
		c.CalendarName = calendarName
		c.CourseCode = courseCode
		c.Color = color
		c.SyncWithoutCategories = syncWithoutCategories
	}
	return nil
}

func (m *mockCourseRepo) UpsertCategory(category database.Category) error {
	if existing, ok := m.categories[category.ID]; ok {
		existing.Name = category.Name
		return nil
	}
	c := category
	m.categories[category.ID] = &c
	return nil
}

func (m *mockCourseRepo) GetCategory(categoryID string) (*database.Category, error) {
	return m.categories[categoryID], nil
}

func (m *mockCourseRepo) GetCategories(courseID string) ([]database.Category, error) {
	out := make([]database.Category, 0)
	for _, c := range m.categories {
		if c.CourseID == courseID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCourseRepo) GetEnabledCategories(courseID string) ([]database.Category, error) {
	all, _ := m.GetCategories(courseID)
	out := make([]database.Category, 0, len(all))
	for _, c := range all {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) SetCategoryEnabled(categoryID string, enabled bool) error {
	if c, ok := m.categories[categoryID]; ok {
		c.Enabled = enabled
	}
	return nil
}

// mockAssignmentRepo implements database.AssignmentRepository in memory.
type mockAssignmentRepo struct {
	assignments map[string]*database.Assignment
	alarms      map[string][]database.Alarm
	insertErr   error
	touched     []string
}

var _ database.AssignmentRepository = (*mockAssignmentRepo)(nil)

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{
		assignments: make(map[string]*database.Assignment),
		alarms:      make(map[string][]database.Alarm),
	}
}

func (m *mockAssignmentRepo) GetAssignment(assignmentID string) (*database.Assignment, error) {
	a, ok := m.assignments[assignmentID]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *mockAssignmentRepo) GetActiveAssignments() ([]database.Assignment, error) {
	out := make([]database.Assignment, 0)
	for _, a := range m.assignments {
		if !a.IsDead {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAssignmentRepo) GetAssignmentCount() (int, error) {
	return len(m.assignments), nil
}

func (m *mockAssignmentRepo) InsertAssignment(assignment database.Assignment) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	a := assignment
	if a.LastSeenDueAt == nil {
		a.LastSeenDueAt = a.DueAt
	}
	m.assignments[a.ID] = &a
	return nil
}

func (m *mockAssignmentRepo) TouchLastChecked(assignmentID string, at time.Time) error {
	m.touched = append(m.touched, assignmentID)
	if a, ok := m.assignments[assignmentID]; ok {
		a.LastCheckedAt = &at
	}
	return nil
}

func (m *mockAssignmentRepo) MarkDead(assignmentID string) error {
	if a, ok := m.assignments[assignmentID]; ok {
		a.IsDead = true
	}
	return nil
}

func (m *mockAssignmentRepo) SetSubmissionStatus(assignmentID, status string) error {
	if a, ok := m.assignments[assignmentID]; ok {
		a.SubmissionStatus = status
	}
	return nil
}

func (m *mockAssignmentRepo) MarkPostDeadlineChecked(assignmentID string) error {
	if a, ok := m.assignments[assignmentID]; ok {
		a.PostDeadlineChecked = true
	}
	return nil
}

func (m *mockAssignmentRepo) UpdateDueDate(assignmentID string, dueAt time.Time) error {
	if a, ok := m.assignments[assignmentID]; ok {
		a.DueAt = &dueAt
		a.LastSeenDueAt = &dueAt
		a.PostDeadlineChecked = false
	}
	return nil
}

func (m *mockAssignmentRepo) UpdateMetadata(assignmentID, categoryID, categoryName, title, description string) error {
	if a, ok := m.assignments[assignmentID]; ok {
		a.CategoryID = categoryID
		a.CategoryName = categoryName
		a.Title = title
		a.Description = description
	}
	return nil
}

func (m *mockAssignmentRepo) SetReminderRef(assignmentID, ref string) error {
	if a, ok := m.assignments[assignmentID]; ok {
		a.ReminderRef = ref
	}
	return nil
}

func (m *mockAssignmentRepo) DeleteAssignmentsByCourse(courseID string) (int, error) {
	deleted := 0
	for id, a := range m.assignments {
		if a.CourseID == courseID {
			delete(m.assignments, id)
			delete(m.alarms, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockAssignmentRepo) GetAlarms(assignmentID string) ([]database.Alarm, error) {
	return m.alarms[assignmentID], nil
}

func (m *mockAssignmentRepo) ReplaceAlarms(assignmentID string, alarms []database.Alarm) error {
	m.alarms[assignmentID] = alarms
	return nil
}

func (m *mockAssignmentRepo) DeleteAlarms(assignmentID string) error {
	delete(m.alarms, assignmentID)
	return nil
}

func (m *mockAssignmentRepo) MarkAlarmFired(assignmentID string, leadHours int, at time.Time) error {
	for i := range m.alarms[assignmentID] {
		if m.alarms[assignmentID][i].LeadHours == leadHours {
			m.alarms[assignmentID][i].Fired = true
			m.alarms[assignmentID][i].FiredAt = &at
		}
	}
	return nil
}

// mockRunRepo implements database.RunRepository in memory.
type mockRunRepo struct {
	nextID       int64
	completed    []database.Run
	state        database.FailureState
	successCalls int
	failureCalls int
	stateErr     error
}

var _ database.RunRepository = (*mockRunRepo)(nil)

func (m *mockRunRepo) StartRun() (int64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockRunRepo) CompleteRun(runID int64, status, errorMessage string, stats database.RunStats) error {
	m.completed = append(m.completed, database.Run{
		ID:                   runID,
		Status:               status,
		ErrorMessage:         errorMessage,
		AssignmentsProcessed: stats.AssignmentsProcessed,
		RemindersCreated:     stats.RemindersCreated,
		RemindersUpdated:     stats.RemindersUpdated,
		RemindersCancelled:   stats.RemindersCancelled,
		Errors:               stats.Errors,
	})
	return nil
}

func (m *mockRunRepo) GetRecentRuns(limit int) ([]database.Run, error) {
	if len(m.completed) < limit {
		limit = len(m.completed)
	}
	out := make([]database.Run, 0, limit)
	for i := len(m.completed) - 1; i >= len(m.completed)-limit; i-- {
		out = append(out, m.completed[i])
	}
	return out, nil
}

func (m *mockRunRepo) GetFailureState() (*database.FailureState, error) {
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	state := m.state
	return &state, nil
}

func (m *mockRunRepo) RecordSuccess() error {
	m.successCalls++
	m.state.ConsecutiveFailures = 0
	m.state.AlertSent = false
	return nil
}

func (m *mockRunRepo) RecordFailure() (int, error) {
	m.failureCalls++
	m.state.ConsecutiveFailures++
	return m.state.ConsecutiveFailures, nil
}

func (m *mockRunRepo) MarkAlertSent() error {
	m.state.AlertSent = true
	return nil
}

// mockSource implements CourseSource.
type mockSource struct {
	courses         []classroom.Course
	topics          map[string][]classroom.Topic
	works           map[string][]classroom.CourseWork
	submissions     map[string]bool
	submissionErr   map[string]error
	submissionCalls map[string]int
}

var _ CourseSource = (*mockSource)(nil)

func newMockSource() *mockSource {
	return &mockSource{
		topics:          make(map[string][]classroom.Topic),
		works:           make(map[string][]classroom.CourseWork),
		submissions:     make(map[string]bool),
		submissionErr:   make(map[string]error),
		submissionCalls: make(map[string]int),
	}
}

func (m *mockSource) Courses(ctx context.Context) ([]classroom.Course, error) {
	return m.courses, nil
}

func (m *mockSource) Topics(ctx context.Context, courseID string) ([]classroom.Topic, error) {
	return m.topics[courseID], nil
}

func (m *mockSource) CourseWork(ctx context.Context, courseID string) ([]classroom.CourseWork, error) {
	return m.works[courseID], nil
}

func (m *mockSource) SubmissionState(ctx context.Context, courseID, courseWorkID string) (bool, error) {
	m.submissionCalls[courseWorkID]++
	if err := m.submissionErr[courseWorkID]; err != nil {
		return false, err
	}
	return m.submissions[courseWorkID], nil
}

// mockSink implements ReminderSink with an in-memory object store.
type mockSink struct {
	objects map[string]reminders.Reminder
	creates int
	updates int
	deletes int
	nextID  int
}

var _ ReminderSink = (*mockSink)(nil)

func newMockSink() *mockSink {
	return &mockSink{objects: make(map[string]reminders.Reminder)}
}

func (m *mockSink) EnsureList(ctx context.Context, name string) (string, error) {
	return "/calendars/" + name + "/", nil
}

func (m *mockSink) Create(ctx context.Context, listPath string, reminder reminders.Reminder) (string, error) {
	m.creates++
	m.nextID++
	ref := fmt.Sprintf("%sobj-%d.ics", listPath, m.nextID)
	m.objects[ref] = reminder
	return ref, nil
}

func (m *mockSink) Update(ctx context.Context, listPath string, ref string, reminder reminders.Reminder) error {
	m.updates++
	m.objects[ref] = reminder
	return nil
}

func (m *mockSink) Delete(ctx context.Context, listPath string, ref string) error {
	m.deletes++
	delete(m.objects, ref)
	return nil
}

func (m *mockSink) FindByFingerprint(ctx context.Context, listPath string, fingerprint string) ([]string, error) {
	refs := make([]string, 0)
	for ref, reminder := range m.objects {
		if strings.HasPrefix(ref, listPath) && strings.Contains(reminder.Notes, fingerprint) {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs, nil
}

// mockAlerter records alert deliveries.
type mockAlerter struct {
	failureAlerts []string
	recoveries    int
	sendErr       error
}

var _ Alerter = (*mockAlerter)(nil)

func (m *mockAlerter) SendFailureAlert(ctx context.Context, errorMessage string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.failureAlerts = append(m.failureAlerts, errorMessage)
	return nil
}

func (m *mockAlerter) SendRecovery(ctx context.Context) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.recoveries++
	return nil
}
