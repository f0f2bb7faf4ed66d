package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const sessionDetailSelect = `SELECT cs.id, cs.course_id, cs.instructor_id, cs.day_of_week, cs.start_time, cs.end_time, cs.room, cs.session_type, cs.created_at, cs.updated_at,
       c.code AS course_code, c.name AS course_name, i.full_name AS instructor_name
FROM class_sessions cs
JOIN courses c ON c.id = cs.course_id
LEFT JOIN instructors i ON i.id = cs.instructor_id`

const sessionWeekOrder = `CASE cs.day_of_week WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3 WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6 ELSE 7 END, cs.start_time ASC`

// ClassSessionRepository persists weekly timetable slots.
type ClassSessionRepository struct {
	db *sqlx.DB
}

func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

// List returns timetable entries ordered by weekday then start time.
func (r *ClassSessionRepository) List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, int, error) {
	var where conditions
	if filter.CourseID != "" {
		where.add("cs.course_id = $%d", filter.CourseID)
	}
	if filter.InstructorID != "" {
		where.add("cs.instructor_id = $%d", filter.InstructorID)
	}
	if filter.DayOfWeek != "" {
		where.add("cs.day_of_week = $%d", filter.DayOfWeek)
	}
	if filter.Room != "" {
		where.add("LOWER(cs.room) = LOWER($%d)", filter.Room)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", sessionDetailSelect, where.where(), sessionWeekOrder, limit, offset)
	var sessions []models.ClassSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list class sessions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM class_sessions cs"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count class sessions: %w", err)
	}
	return sessions, total, nil
}

// ListByCourses returns every session of the given courses.
func (r *ClassSessionRepository) ListByCourses(ctx context.Context, courseIDs []string) ([]models.ClassSessionDetail, error) {
	if len(courseIDs) == 0 {
		return []models.ClassSessionDetail{}, nil
	}
	query := sessionDetailSelect + ` WHERE cs.course_id = ANY($1) ORDER BY ` + sessionWeekOrder
	var sessions []models.ClassSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list sessions by courses: %w", err)
	}
	return sessions, nil
}

// FindByID returns one session.
func (r *ClassSessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSessionDetail, error) {
	query := sessionDetailSelect + ` WHERE cs.id = $1`
	var session models.ClassSessionDetail
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class session: %w", err)
	}
	return &session, nil
}

// FindOverlapping returns sessions on the same day whose time range overlaps
// and which share the room or the instructor.
func (r *ClassSessionRepository) FindOverlapping(ctx context.Context, session *models.ClassSession) ([]models.ClassSession, error) {
	const query = `SELECT id, course_id, instructor_id, day_of_week, start_time, end_time, room, session_type, created_at, updated_at
FROM class_sessions
WHERE day_of_week = $1 AND start_time < $2 AND end_time > $3 AND id::text <> $4
  AND (LOWER(room) = LOWER($5) OR ($6::text IS NOT NULL AND instructor_id::text = $6))`
	var overlapping []models.ClassSession
	if err := r.db.SelectContext(ctx, &overlapping, query,
		session.DayOfWeek, session.EndTime, session.StartTime, session.ID, session.Room, session.InstructorID); err != nil {
		return nil, fmt.Errorf("find overlapping sessions: %w", err)
	}
	return overlapping, nil
}

// Create inserts a session.
func (r *ClassSessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	const query = `INSERT INTO class_sessions (id, course_id, instructor_id, day_of_week, start_time, end_time, room, session_type, created_at, updated_at) VALUES (:id, :course_id, :instructor_id, :day_of_week, :start_time, :end_time, :room, :session_type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create class session: %w", err)
	}
	return nil
}

// Update modifies a session.
func (r *ClassSessionRepository) Update(ctx context.Context, session *models.ClassSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_sessions SET course_id = :course_id, instructor_id = :instructor_id, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, room = :room, session_type = :session_type, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update class session: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes a session.
func (r *ClassSessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class session: %w", err)
	}
	return affectedOrNotFound(res)
}
