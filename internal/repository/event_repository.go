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

const eventColumns = `id, title, description, event_type, start_at, end_at, location, course_id, created_by, created_at, updated_at`

// EventRepository persists the academic calendar.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events overlapping the requested window ordered by start.
// CourseIDs keeps portal wide events (no course) alongside the listed courses.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.AcademicEvent, int, error) {
	var where conditions
	if filter.From != nil {
		where.add("end_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.add("start_at < $%d", *filter.To)
	}
	if filter.EventType != "" {
		where.add("event_type = $%d", filter.EventType)
	}
	if filter.CourseID != "" {
		where.add("course_id = $%d", filter.CourseID)
	}
	if filter.CourseIDs != nil {
		where.add("(course_id IS NULL OR course_id = ANY($%d))", pq.Array(filter.CourseIDs))
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM academic_events%s ORDER BY start_at ASC LIMIT %d OFFSET %d", eventColumns, where.where(), limit, offset)
	var events []models.AcademicEvent
	if err := r.db.SelectContext(ctx, &events, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM academic_events"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID returns an event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.AcademicEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM academic_events WHERE id = $1`
	var event models.AcademicEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, event *models.AcademicEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	const query = `INSERT INTO academic_events (id, title, description, event_type, start_at, end_at, location, course_id, created_by, created_at, updated_at) VALUES (:id, :title, :description, :event_type, :start_at, :end_at, :location, :course_id, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an event.
func (r *EventRepository) Update(ctx context.Context, event *models.AcademicEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_events SET title = :title, description = :description, event_type = :event_type, start_at = :start_at, end_at = :end_at, location = :location, course_id = :course_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM academic_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return affectedOrNotFound(res)
}
