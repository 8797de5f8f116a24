package classroom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	classroomsvc "google.golang.org/api/classroom/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client wraps the Google Classroom API for read-only course-work access.
type Client struct {
	svc *classroomsvc.Service
	loc *time.Location
}

// NewClient builds a Classroom client authenticated with an OAuth refresh
// token. No interactive flow: the token must already be provisioned.
func NewClient(ctx context.Context, clientID, clientSecret, refreshToken string, loc *time.Location) (*Client, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			classroomsvc.ClassroomCoursesReadonlyScope,
			classroomsvc.ClassroomCourseworkMeScope,
			classroomsvc.ClassroomStudentSubmissionsMeReadonlyScope,
			classroomsvc.ClassroomTopicsReadonlyScope,
		},
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := classroomsvc.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create classroom service: %w", err)
	}

	return &Client{svc: svc, loc: loc}, nil
}

// Courses returns all active courses, following pagination.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	pageToken := ""

	for {
		call := c.svc.Courses.List().CourseStates("ACTIVE").Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}

		for _, course := range resp.Courses {
			courses = append(courses, Course{
				ID:      course.Id,
				Name:    course.Name,
				Section: course.Section,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return courses, nil
}

// Topics returns the topics (categories) of a course. Missing topic support
// on a course is not an error: the list is simply empty.
func (c *Client) Topics(ctx context.Context, courseID string) ([]Topic, error) {
	var topics []Topic
	pageToken := ""

	for {
		call := c.svc.Courses.Topics.List(courseID).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list topics for course %s: %w", courseID, err)
		}

		for _, topic := range resp.Topic {
			topics = append(topics, Topic{
				ID:       topic.TopicId,
				CourseID: courseID,
				Name:     topic.Name,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return topics, nil
}

// CourseWork returns the coursework items of a course with normalized due
// instants.
func (c *Client) CourseWork(ctx context.Context, courseID string) ([]CourseWork, error) {
	var works []CourseWork
	pageToken := ""

	for {
		call := c.svc.Courses.CourseWork.List(courseID).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list coursework for course %s: %w", courseID, err)
		}

		for _, work := range resp.CourseWork {
			works = append(works, CourseWork{
				ID:          work.Id,
				CourseID:    courseID,
				TopicID:     work.TopicId,
				Title:       work.Title,
				Description: work.Description,
				DueAt:       c.normalizeDue(work.DueDate, work.DueTime),
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return works, nil
}

// SubmissionState reports whether the student has submitted the coursework.
// TURNED_IN and RETURNED count as submitted; every other state (NEW, CREATED,
// RECLAIMED_BY_STUDENT) does not.
func (c *Client) SubmissionState(ctx context.Context, courseID, courseWorkID string) (bool, error) {
	resp, err := c.svc.Courses.CourseWork.StudentSubmissions.
		List(courseID, courseWorkID).UserId("me").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to fetch submission for %s: %w", courseWorkID, err)
	}

	if len(resp.StudentSubmissions) == 0 {
		slog.Debug("No submission record found", "course_work", courseWorkID)
		return false, nil
	}

	switch resp.StudentSubmissions[0].State {
	case "TURNED_IN", "RETURNED":
		return true, nil
	default:
		return false, nil
	}
}

// normalizeDue converts Classroom's split dueDate/dueTime into a single
// instant in the configured timezone. The raw values are interpreted as UTC.
// A missing dueTime means end of day. Classroom reports end-of-day deadlines
// as 12:59 UTC; those map to 23:59 local on the same local day.
func (c *Client) normalizeDue(date *classroomsvc.Date, tod *classroomsvc.TimeOfDay) *time.Time {
	if date == nil || date.Year == 0 {
		return nil
	}

	hour, minute := int64(23), int64(59)
	if tod != nil {
		hour, minute = tod.Hours, tod.Minutes
	}

	utc := time.Date(int(date.Year), time.Month(date.Month), int(date.Day),
		int(hour), int(minute), 0, 0, time.UTC)
	local := utc.In(c.loc)

	if hour == 12 && minute == 59 {
		local = time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 0, 0, c.loc)
	}

	return &local
}

// IsAuthError reports whether err is an authentication or authorization
// failure from the Google API. These are fatal to a pass.
func IsAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}
	return false
}
