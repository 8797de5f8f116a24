package api

import (
	"github.com/classmind/classmind/app/database"
	"github.com/classmind/classmind/app/tasks"
)

type SchedulerInterface interface {
	TriggerSync() bool
}

var _ SchedulerInterface = (*tasks.Scheduler)(nil)

type Handler struct {
	courseRepo     database.CourseRepository
	assignmentRepo database.AssignmentRepository
	runRepo        database.RunRepository
	scheduler      SchedulerInterface
}
