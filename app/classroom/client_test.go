package classroom

import (
	"errors"
	"net/http"
	"testing"
	"time"

	classroomsvc "google.golang.org/api/classroom/v1"
	"google.golang.org/api/googleapi"
)

var kolkata = time.FixedZone("IST", 5*3600+30*60)

func TestNormalizeDue_NoDate(t *testing.T) {
	c := &Client{loc: kolkata}

	if got := c.normalizeDue(nil, nil); got != nil {
		t.Errorf("Expected nil for missing date, got %v", got)
	}
	if got := c.normalizeDue(&classroomsvc.Date{}, nil); got != nil {
		t.Errorf("Expected nil for zero date, got %v", got)
	}
}

func TestNormalizeDue_ExplicitTime(t *testing.T) {
	c := &Client{loc: kolkata}

	date := &classroomsvc.Date{Year: 2026, Month: 2, Day: 10}
	tod := &classroomsvc.TimeOfDay{Hours: 9, Minutes: 30}

	got := c.normalizeDue(date, tod)
	if got == nil {
		t.Fatal("Expected a due instant")
	}

	// 09:30 UTC is 15:00 IST on the same day
	want := time.Date(2026, 2, 10, 15, 0, 0, 0, kolkata)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizeDue_MissingTimeMeansEndOfDay(t *testing.T) {
	c := &Client{loc: kolkata}

	date := &classroomsvc.Date{Year: 2026, Month: 2, Day: 10}

	got := c.normalizeDue(date, nil)
	if got == nil {
		t.Fatal("Expected a due instant")
	}
	if got.Hour() != 23 || got.Minute() != 59 {
		t.Errorf("Expected 23:59 local, got %02d:%02d", got.Hour(), got.Minute())
	}
}

func TestNormalizeDue_EndOfDaySentinel(t *testing.T) {
	c := &Client{loc: kolkata}

	// Classroom encodes end-of-day deadlines as 12:59 UTC
	date := &classroomsvc.Date{Year: 2026, Month: 2, Day: 10}
	tod := &classroomsvc.TimeOfDay{Hours: 12, Minutes: 59}

	got := c.normalizeDue(date, tod)
	if got == nil {
		t.Fatal("Expected a due instant")
	}

	want := time.Date(2026, 2, 10, 23, 59, 0, 0, kolkata)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestIsAuthError(t *testing.T) {
	if !IsAuthError(&googleapi.Error{Code: http.StatusUnauthorized}) {
		t.Error("401 should be an auth error")
	}
	if !IsAuthError(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Error("403 should be an auth error")
	}
	if IsAuthError(&googleapi.Error{Code: http.StatusTooManyRequests}) {
		t.Error("429 should not be an auth error")
	}
	if IsAuthError(errors.New("plain error")) {
		t.Error("Non-API errors should not be auth errors")
	}
}
