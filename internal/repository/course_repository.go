package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const courseColumns = `id, code, name, description, credits, capacity, instructor_id, academic_period, active, created_at, updated_at`

// CourseRepository persists course offerings.
type CourseRepository struct {
	db *sqlx.DB
}

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered and paginated.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var where conditions
	if filter.Search != "" {
		where.add("(LOWER(code) LIKE $%[1]d OR LOWER(name) LIKE $%[1]d)", likePattern(filter.Search))
	}
	if filter.AcademicPeriod != "" {
		where.add("academic_period = $%d", filter.AcademicPeriod)
	}
	if filter.InstructorID != "" {
		where.add("instructor_id = $%d", filter.InstructorID)
	}
	if filter.Active != nil {
		where.add("active = $%d", *filter.Active)
	}

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"code":       "code",
		"name":       "name",
		"credits":    "credits",
		"created_at": "created_at",
	}, "code", "ASC")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM courses%s ORDER BY %s LIMIT %d OFFSET %d", courseColumns, where.where(), order, limit, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// ExistsByCode checks the course code is free.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	found, err := exists(ctx, r.db, "courses", "UPPER(code) = UPPER($1)", excludeID, code)
	if err != nil {
		return false, fmt.Errorf("check course code: %w", err)
	}
	return found, nil
}

// CountActive returns the number of active courses.
func (r *CourseRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count active courses: %w", err)
	}
	return total, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, name, description, credits, capacity, instructor_id, academic_period, active, created_at, updated_at) VALUES (:id, :code, :name, :description, :credits, :capacity, :instructor_id, :academic_period, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return writeError("create course", err)
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, description = :description, credits = :credits, capacity = :capacity, instructor_id = :instructor_id, academic_period = :academic_period, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return writeError("update course", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return affectedOrNotFound(res)
}
