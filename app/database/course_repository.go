package database

import (
	"database/sql"
	"fmt"
)

var _ CourseRepository = (*courseRepository)(nil)

// courseRepository handles database operations for courses and categories
type courseRepository struct {
	db *DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *DB) CourseRepository {
	return &courseRepository{db: db}
}

// UpsertCourse inserts a discovered course or refreshes its upstream fields.
// Dashboard-owned columns (enabled, course_code, calendar_name, color,
// sync_without_categories) are never touched on conflict.
func (r *courseRepository) UpsertCourse(course Course) error {
	_, err := r.db.Exec(`
		INSERT INTO courses (id, name, section)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			section = EXCLUDED.section,
			updated_at = NOW()
	`, course.ID, course.Name, course.Section)

	if err != nil {
		return fmt.Errorf("failed to upsert course: %w", err)
	}

	return nil
}

const courseColumns = `id, name, section, course_code, calendar_name, color,
	enabled, sync_without_categories, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.Section, &c.CourseCode, &c.CalendarName,
		&c.Color, &c.Enabled, &c.SyncWithoutCategories, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCourse returns a course by ID, or nil if it does not exist
func (r *courseRepository) GetCourse(courseID string) (*Course, error) {
	course, err := scanCourse(r.db.QueryRow(`
		SELECT `+courseColumns+` FROM courses WHERE id = $1
	`, courseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return course, nil
}

// GetCourses returns all known courses
func (r *courseRepository) GetCourses() ([]Course, error) {
	return r.queryCourses(`SELECT ` + courseColumns + ` FROM courses ORDER BY name`)
}

// GetEnabledCourses returns courses the user has enabled for syncing
func (r *courseRepository) GetEnabledCourses() ([]Course, error) {
	return r.queryCourses(`SELECT ` + courseColumns + ` FROM courses WHERE enabled = TRUE ORDER BY name`)
}

func (r *courseRepository) queryCourses(query string, args ...any) ([]Course, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		courses = append(courses, *course)
	}

	return courses, rows.Err()
}

func (r *courseRepository) GetCourseCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

func (r *courseRepository) SetCourseEnabled(courseID string, enabled bool) error {
	_, err := r.db.Exec(`
		UPDATE courses SET enabled = $2, updated_at = NOW() WHERE id = $1
	`, courseID, enabled)

	if err != nil {
		return fmt.Errorf("failed to set course enabled: %w", err)
	}

	return nil
}

// UpdateCourseSettings updates the dashboard-owned display fields of a course
func (r *courseRepository) UpdateCourseSettings(courseID, calendarName, courseCode, color string, syncWithoutCategories bool) error {
	_, err := r.db.Exec(`
		UPDATE courses
		SET calendar_name = $2, course_code = $3, color = $4,
			sync_without_categories = $5, updated_at = NOW()
		WHERE id = $1
	`, courseID, calendarName, courseCode, color, syncWithoutCategories)

	if err != nil {
		return fmt.Errorf("failed to update course settings: %w", err)
	}

	return nil
}

// UpsertCategory inserts a discovered topic or refreshes its name.
// The enabled flag is dashboard-owned and preserved on conflict.
func (r *courseRepository) UpsertCategory(category Category) error {
	_, err := r.db.Exec(`
		INSERT INTO categories (id, course_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = NOW()
	`, category.ID, category.CourseID, category.Name)

	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}

	return nil
}

// GetCategory returns a category by ID, or nil if it does not exist
func (r *courseRepository) GetCategory(categoryID string) (*Category, error) {
	var c Category
	err := r.db.QueryRow(`
		SELECT id, course_id, name, enabled, created_at, updated_at
		FROM categories WHERE id = $1
	`, categoryID).Scan(&c.ID, &c.CourseID, &c.Name, &c.Enabled, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}

func (r *courseRepository) GetCategories(courseID string) ([]Category, error) {
	return r.queryCategories(`
		SELECT id, course_id, name, enabled, created_at, updated_at
		FROM categories WHERE course_id = $1 ORDER BY name
	`, courseID)
}

func (r *courseRepository) GetEnabledCategories(courseID string) ([]Category, error) {
	return r.queryCategories(`
		SELECT id, course_id, name, enabled, created_at, updated_at
		FROM categories WHERE course_id = $1 AND enabled = TRUE ORDER BY name
	`, courseID)
}

func (r *courseRepository) queryCategories(query string, args ...any) ([]Category, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.CourseID, &c.Name, &c.Enabled, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (r *courseRepository) SetCategoryEnabled(categoryID string, enabled bool) error {
	_, err := r.db.Exec(`
		UPDATE categories SET enabled = $2, updated_at = NOW() WHERE id = $1
	`, categoryID, enabled)

	if err != nil {
		return fmt.Errorf("failed to set category enabled: %w", err)
	}

	return nil
}
