package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classmind/classmind/app/database"
)

func NewHandler(courseRepo database.CourseRepository, assignmentRepo database.AssignmentRepository,
	runRepo database.RunRepository, scheduler SchedulerInterface) *Handler {
	return &Handler{
		courseRepo:     courseRepo,
		assignmentRepo: assignmentRepo,
		runRepo:        runRepo,
		scheduler:      scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if courseCount, err := h.courseRepo.GetCourseCount(); err == nil {
		health["courses"] = courseCount
	}
	if assignmentCount, err := h.assignmentRepo.GetAssignmentCount(); err == nil {
		health["assignments"] = assignmentCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if courseCount, err := h.courseRepo.GetCourseCount(); err == nil {
		stats["courses"] = courseCount
	}
	if assignmentCount, err := h.assignmentRepo.GetAssignmentCount(); err == nil {
		stats["assignments"] = assignmentCount
	}

	if state, err := h.runRepo.GetFailureState(); err == nil {
		stats["last_success"] = state.LastSuccess
		stats["last_failure"] = state.LastFailure
		stats["consecutive_failures"] = state.ConsecutiveFailures
	}

	if runs, err := h.runRepo.GetRecentRuns(1); err == nil && len(runs) > 0 {
		stats["last_run_status"] = runs[0].Status
		stats["last_run_started_at"] = runs[0].StartedAt
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListCourses(c *gin.Context) {
	courses, err := h.courseRepo.GetCourses()
	if err != nil {
		slog.Error("Database error", "operation", "list_courses", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list courses"})
		return
	}

	out := make([]map[string]interface{}, 0, len(courses))
	for _, course := range courses {
		out = append(out, map[string]interface{}{
			"id":                      course.ID,
			"name":                    course.Name,
			"section":                 course.Section,
			"course_code":             course.CourseCode,
			"calendar_name":           course.CalendarName,
			"color":                   course.Color,
			"enabled":                 course.Enabled,
			"sync_without_categories": course.SyncWithoutCategories,
			"updated_at":              course.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"courses": out, "count": len(out)})
}

func (h *Handler) EnableCourse(c *gin.Context) {
	h.setCourseEnabled(c, true)
}

func (h *Handler) DisableCourse(c *gin.Context) {
	h.setCourseEnabled(c, false)
}

func (h *Handler) setCourseEnabled(c *gin.Context, enabled bool) {
	courseID := c.Param("id")

	course, err := h.courseRepo.GetCourse(courseID)
	if err != nil {
		slog.Error("Database error", "operation", "get_course", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	if err := h.courseRepo.SetCourseEnabled(courseID, enabled); err != nil {
		slog.Error("Database error", "operation", "set_course_enabled", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update course"})
		return
	}

	slog.Info("Course toggled", "course_id", courseID, "course", course.Name, "enabled", enabled)
	c.JSON(http.StatusOK, gin.H{"id": courseID, "enabled": enabled})
}

type courseSettingsRequest struct {
	CalendarName          string `json:"calendar_name"`
	CourseCode            string `json:"course_code"`
	Color                 string `json:"color"`
	SyncWithoutCategories bool   `json:"sync_without_categories"`
}

func (h *Handler) UpdateCourseSettings(c *gin.Context) {
	courseID := c.Param("id")

	var req courseSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	course, err := h.courseRepo.GetCourse(courseID)
	if err != nil {
		slog.Error("Database error", "operation", "get_course", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	err = h.courseRepo.UpdateCourseSettings(courseID, req.CalendarName, req.CourseCode, req.Color, req.SyncWithoutCategories)
	if err != nil {
		slog.Error("Database error", "operation", "update_course_settings", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update course settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": courseID, "updated": true})
}

func (h *Handler) PurgeCourseAssignments(c *gin.Context) {
	courseID := c.Param("id")

	course, err := h.courseRepo.GetCourse(courseID)
	if err != nil {
		slog.Error("Database error", "operation", "get_course", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	deleted, err := h.assignmentRepo.DeleteAssignmentsByCourse(courseID)
	if err != nil {
		slog.Error("Database error", "operation", "purge_assignments", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to purge assignments"})
		return
	}

	slog.Info("Course assignments purged", "course_id", courseID, "course", course.Name, "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"id": courseID, "deleted": deleted})
}

func (h *Handler) ListCategories(c *gin.Context) {
	courseID := c.Param("id")

	categories, err := h.courseRepo.GetCategories(courseID)
	if err != nil {
		slog.Error("Database error", "operation", "list_categories", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}

	out := make([]map[string]interface{}, 0, len(categories))
	for _, category := range categories {
		out = append(out, map[string]interface{}{
			"id":      category.ID,
			"name":    category.Name,
			"enabled": category.Enabled,
		})
	}

	c.JSON(http.StatusOK, gin.H{"course_id": courseID, "categories": out, "count": len(out)})
}

func (h *Handler) EnableCategory(c *gin.Context) {
	h.setCategoryEnabled(c, true)
}

func (h *Handler) DisableCategory(c *gin.Context) {
	h.setCategoryEnabled(c, false)
}

func (h *Handler) setCategoryEnabled(c *gin.Context, enabled bool) {
	categoryID := c.Param("id")

	category, err := h.courseRepo.GetCategory(categoryID)
	if err != nil {
		slog.Error("Database error", "operation", "get_category", "category_id", categoryID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load category"})
		return
	}
	if category == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	if err := h.courseRepo.SetCategoryEnabled(categoryID, enabled); err != nil {
		slog.Error("Database error", "operation", "set_category_enabled", "category_id", categoryID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update category"})
		return
	}

	slog.Info("Category toggled", "category_id", categoryID, "category", category.Name, "enabled", enabled)
	c.JSON(http.StatusOK, gin.H{"id": categoryID, "enabled": enabled})
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	runs, err := h.runRepo.GetRecentRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	out := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		out = append(out, map[string]interface{}{
			"id":                    run.ID,
			"status":                run.Status,
			"error_message":         run.ErrorMessage,
			"assignments_processed": run.AssignmentsProcessed,
			"reminders_created":     run.RemindersCreated,
			"reminders_updated":     run.RemindersUpdated,
			"reminders_cancelled":   run.RemindersCancelled,
			"errors":                run.Errors,
			"started_at":            run.StartedAt,
			"completed_at":          run.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"runs": out, "count": len(out)})
}

func (h *Handler) TriggerSync(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler is not running"})
		return
	}

	if !h.scheduler.TriggerSync() {
		c.JSON(http.StatusConflict, gin.H{"error": "a sync is already pending"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"triggered": true})
}
