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

const enrollmentColumns = `id, student_id, course_id, status, enrolled_at, updated_at`

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_id, e.status, e.enrolled_at, e.updated_at,
       s.full_name AS student_name, s.student_number, c.code AS course_code, c.name AS course_name, c.credits
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN courses c ON c.id = e.course_id`

// EnrollmentRepository manages student course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollment details using filters.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var where conditions
	if filter.StudentID != "" {
		where.add("e.student_id = $%d", filter.StudentID)
	}
	if filter.CourseID != "" {
		where.add("e.course_id = $%d", filter.CourseID)
	}
	if filter.Status != "" {
		where.add("e.status = $%d", filter.Status)
	}

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "s.full_name",
		"course_code":  "c.code",
		"status":       "e.status",
	}, "e.enrolled_at", "DESC")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", enrollmentDetailSelect, where.where(), order, limit, offset)
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments e"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return items, total, nil
}

// ListByStudent returns every enrollment of a student with the given statuses, ordered by course code.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, statuses ...models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.student_id = ?`
	args := []interface{}{studentID}
	if len(statuses) > 0 {
		query += ` AND e.status IN (?)`
		args = append(args, statuses)
	}
	query += ` ORDER BY c.code ASC`
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build student enrollments query: %w", err)
	}
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return items, nil
}

// FindByID returns a single enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// Enroll places a student in a course, choosing ENROLLED while the course has
// free seats and WAITLISTED otherwise. The course row is locked for the
// decision. A DROPPED row for the same pair is reactivated in place; any
// other existing row is copied into enrollment and models.ErrDuplicate is
// returned.
func (r *EnrollmentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	capacity, err := lockCourse(ctx, tx, enrollment.CourseID)
	if err != nil {
		return err
	}

	const current = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE`
	var existing models.Enrollment
	err = tx.GetContext(ctx, &existing, current, enrollment.StudentID, enrollment.CourseID)
	switch {
	case err == nil && existing.Status != models.EnrollmentStatusDropped:
		*enrollment = existing
		return models.ErrDuplicate
	case err == nil:
		*enrollment = existing
	case errors.Is(err, sql.ErrNoRows):
		if enrollment.ID == "" {
			enrollment.ID = uuid.NewString()
		}
	default:
		return fmt.Errorf("find existing enrollment: %w", err)
	}

	enrolled, err := countEnrolled(ctx, tx, enrollment.CourseID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	enrollment.EnrolledAt = now
	enrollment.UpdatedAt = now
	enrollment.Status = models.EnrollmentStatusWaitlisted
	if enrolled < capacity {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}

	if existing.ID != "" {
		const reactivate = `UPDATE enrollments SET status = $2, enrolled_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
		res, err := tx.ExecContext(ctx, reactivate, enrollment.ID, enrollment.Status, now, models.EnrollmentStatusDropped)
		if err != nil {
			return fmt.Errorf("reactivate enrollment: %w", err)
		}
		if err := affectedOrStale(res); err != nil {
			return err
		}
	} else {
		const insert = `INSERT INTO enrollments (id, student_id, course_id, status, enrolled_at, updated_at) VALUES (:id, :student_id, :course_id, :status, :enrolled_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
			if isUniqueViolation(err) {
				enrollment.ID = ""
			}
			return writeError("insert enrollment", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// UpdateStatus moves an enrollment from one status to another. It returns
// models.ErrStaleStatus when the row is no longer in from.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, to, time.Now().UTC(), from)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return affectedOrStale(res)
}

// Activate moves a WAITLISTED enrollment to ENROLLED when the course still
// has a free seat, returning models.ErrCourseFull otherwise.
func (r *EnrollmentRepository) Activate(ctx context.Context, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	capacity, err := lockCourse(ctx, tx, enrollment.CourseID)
	if err != nil {
		return err
	}
	enrolled, err := countEnrolled(ctx, tx, enrollment.CourseID)
	if err != nil {
		return err
	}
	if enrolled >= capacity {
		return models.ErrCourseFull
	}

	now := time.Now().UTC()
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := tx.ExecContext(ctx, query, enrollment.ID, models.EnrollmentStatusEnrolled, now, models.EnrollmentStatusWaitlisted)
	if err != nil {
		return fmt.Errorf("activate enrollment: %w", err)
	}
	if err := affectedOrStale(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activation: %w", err)
	}
	enrollment.Status = models.EnrollmentStatusEnrolled
	enrollment.UpdatedAt = now
	return nil
}

// PromoteNextWaitlisted enrolls the oldest waitlisted student when a seat is
// free. It returns nil without error when nobody was promoted.
func (r *EnrollmentRepository) PromoteNextWaitlisted(ctx context.Context, courseID string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promotion: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	capacity, err := lockCourse(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled, err := countEnrolled(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled >= capacity {
		return nil, nil
	}

	const next = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 AND status = $2 ORDER BY enrolled_at ASC LIMIT 1 FOR UPDATE`
	var candidate models.Enrollment
	if err := tx.GetContext(ctx, &candidate, next, courseID, models.EnrollmentStatusWaitlisted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find waitlisted enrollment: %w", err)
	}

	candidate.Status = models.EnrollmentStatusEnrolled
	candidate.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`, candidate.ID, candidate.Status, candidate.UpdatedAt); err != nil {
		return nil, fmt.Errorf("promote enrollment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit promotion: %w", err)
	}
	return &candidate, nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return affectedOrNotFound(res)
}

func lockCourse(ctx context.Context, tx *sqlx.Tx, courseID string) (int, error) {
	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM courses WHERE id = $1 FOR UPDATE`, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("lock course: %w", err)
	}
	return capacity, nil
}

func countEnrolled(ctx context.Context, tx *sqlx.Tx, courseID string) (int, error) {
	var enrolled int
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	if err := tx.GetContext(ctx, &enrolled, query, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return enrolled, nil
}
