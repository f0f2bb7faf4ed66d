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

const inscriptionDetailSelect = `SELECT i.id, i.student_id, i.course_id, i.academic_period, i.status, i.notes, i.decided_by, i.decided_at, i.created_at, i.updated_at,
       s.full_name AS student_name, c.code AS course_code, c.name AS course_name
FROM inscriptions i
JOIN students s ON s.id = i.student_id
JOIN courses c ON c.id = i.course_id`

// InscriptionRepository persists course registration requests.
type InscriptionRepository struct {
	db *sqlx.DB
}

func NewInscriptionRepository(db *sqlx.DB) *InscriptionRepository {
	return &InscriptionRepository{db: db}
}

// List returns inscriptions newest first.
func (r *InscriptionRepository) List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, int, error) {
	var where conditions
	if filter.StudentID != "" {
		where.add("i.student_id = $%d", filter.StudentID)
	}
	if filter.CourseID != "" {
		where.add("i.course_id = $%d", filter.CourseID)
	}
	if filter.AcademicPeriod != "" {
		where.add("i.academic_period = $%d", filter.AcademicPeriod)
	}
	if filter.Status != "" {
		where.add("i.status = $%d", filter.Status)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY i.created_at DESC LIMIT %d OFFSET %d", inscriptionDetailSelect, where.where(), limit, offset)
	var items []models.InscriptionDetail
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list inscriptions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM inscriptions i"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count inscriptions: %w", err)
	}
	return items, total, nil
}

// FindByID returns one inscription.
func (r *InscriptionRepository) FindByID(ctx context.Context, id string) (*models.Inscription, error) {
	const query = `SELECT id, student_id, course_id, academic_period, status, notes, decided_by, decided_at, created_at, updated_at FROM inscriptions WHERE id = $1`
	var inscription models.Inscription
	if err := r.db.GetContext(ctx, &inscription, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find inscription: %w", err)
	}
	return &inscription, nil
}

// ExistsActive reports a non-cancelled inscription for the same student, course and period.
func (r *InscriptionRepository) ExistsActive(ctx context.Context, studentID, courseID, period string) (bool, error) {
	found, err := exists(ctx, r.db, "inscriptions", "student_id = $1 AND course_id = $2 AND academic_period = $3 AND status <> 'CANCELLED'", "", studentID, courseID, period)
	if err != nil {
		return false, fmt.Errorf("check inscription: %w", err)
	}
	return found, nil
}

// CountByStatus counts inscriptions in a status.
func (r *InscriptionRepository) CountByStatus(ctx context.Context, status models.InscriptionStatus) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM inscriptions WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count inscriptions: %w", err)
	}
	return total, nil
}

// Create inserts an inscription.
func (r *InscriptionRepository) Create(ctx context.Context, inscription *models.Inscription) error {
	if inscription.ID == "" {
		inscription.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inscription.CreatedAt = now
	inscription.UpdatedAt = now

	const query = `INSERT INTO inscriptions (id, student_id, course_id, academic_period, status, notes, decided_by, decided_at, created_at, updated_at) VALUES (:id, :student_id, :course_id, :academic_period, :status, :notes, :decided_by, :decided_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inscription); err != nil {
		return writeError("create inscription", err)
	}
	return nil
}

// UpdateStatus persists a status change only while the row is still in from.
// It returns sql.ErrNoRows when another request changed the status first.
func (r *InscriptionRepository) UpdateStatus(ctx context.Context, inscription *models.Inscription, from models.InscriptionStatus) error {
	inscription.UpdatedAt = time.Now().UTC()
	const query = `UPDATE inscriptions SET status = $2, notes = $3, decided_by = $4, decided_at = $5, updated_at = $6 WHERE id = $1 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, inscription.ID, inscription.Status, inscription.Notes, inscription.DecidedBy, inscription.DecidedAt, inscription.UpdatedAt, from)
	if err != nil {
		return fmt.Errorf("update inscription status: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes an inscription.
func (r *InscriptionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inscription: %w", err)
	}
	return affectedOrNotFound(res)
}
