package classroom

import (
	"time"
)

type Course struct {
	ID      string
	Name    string
	Section string
}

type Topic struct {
	ID       string
	CourseID string
	Name     string
}

type CourseWork struct {
	ID          string
	CourseID    string
	TopicID     string
	Title       string
	Description string
	DueAt       *time.Time // nil when the assignment has no due date
}
