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

const instructorColumns = `id, user_id, employee_number, full_name, email, department, active, created_at, updated_at`

// InstructorRepository handles persistence of teaching staff.
type InstructorRepository struct {
	db *sqlx.DB
}

func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructors filtered and paginated.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	var where conditions
	if filter.Search != "" {
		where.add("(LOWER(full_name) LIKE $%[1]d OR LOWER(email) LIKE $%[1]d OR LOWER(employee_number) LIKE $%[1]d)", likePattern(filter.Search))
	}
	if filter.Department != "" {
		where.add("department = $%d", filter.Department)
	}
	if filter.Active != nil {
		where.add("active = $%d", *filter.Active)
	}

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"full_name":       "full_name",
		"employee_number": "employee_number",
		"department":      "department",
		"created_at":      "created_at",
	}, "full_name", "ASC")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM instructors%s ORDER BY %s LIMIT %d OFFSET %d", instructorColumns, where.where(), order, limit, offset)
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM instructors"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}
	return instructors, total, nil
}

// FindByID returns an instructor.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE id = $1 LIMIT 1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find instructor: %w", err)
	}
	return &instructor, nil
}

// ExistsByEmployeeNumber checks uniqueness of the staff number.
func (r *InstructorRepository) ExistsByEmployeeNumber(ctx context.Context, number, excludeID string) (bool, error) {
	found, err := exists(ctx, r.db, "instructors", "employee_number = $1", excludeID, number)
	if err != nil {
		return false, fmt.Errorf("check employee number: %w", err)
	}
	return found, nil
}

// CountActive returns the number of active instructors.
func (r *InstructorRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM instructors WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count active instructors: %w", err)
	}
	return total, nil
}

// Create inserts an instructor.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	instructor.CreatedAt = now
	instructor.UpdatedAt = now

	const query = `INSERT INTO instructors (id, user_id, employee_number, full_name, email, department, active, created_at, updated_at) VALUES (:id, :user_id, :employee_number, :full_name, :email, :department, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return writeError("create instructor", err)
	}
	return nil
}

// Update modifies an instructor.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	instructor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE instructors SET user_id = :user_id, employee_number = :employee_number, full_name = :full_name, email = :email, department = :department, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, instructor)
	if err != nil {
		return writeError("update instructor", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes an instructor row.
func (r *InstructorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM instructors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete instructor: %w", err)
	}
	return affectedOrNotFound(res)
}
