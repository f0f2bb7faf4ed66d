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

const studentColumns = `id, user_id, student_number, full_name, email, program, semester, active, created_at, updated_at`

// StudentRepository handles persistence of student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered and paginated.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var where conditions
	if filter.Search != "" {
		where.add("(LOWER(full_name) LIKE $%[1]d OR LOWER(student_number) LIKE $%[1]d OR LOWER(email) LIKE $%[1]d)", likePattern(filter.Search))
	}
	if filter.Program != "" {
		where.add("program = $%d", filter.Program)
	}
	if filter.Active != nil {
		where.add("active = $%d", *filter.Active)
	}

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"full_name":      "full_name",
		"student_number": "student_number",
		"program":        "program",
		"semester":       "semester",
		"created_at":     "created_at",
	}, "full_name", "ASC")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY %s LIMIT %d OFFSET %d", studentColumns, where.where(), order, limit, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "id", id)
}

// FindByUserID returns the student profile linked to a login account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	return r.findOne(ctx, "user_id", userID)
}

func (r *StudentRepository) findOne(ctx context.Context, column, value string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s = $1 LIMIT 1", studentColumns, column)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by %s: %w", column, err)
	}
	return &student, nil
}

// ExistsByStudentNumber checks uniqueness of the student number.
func (r *StudentRepository) ExistsByStudentNumber(ctx context.Context, number, excludeID string) (bool, error) {
	found, err := exists(ctx, r.db, "students", "student_number = $1", excludeID, number)
	if err != nil {
		return false, fmt.Errorf("check student number: %w", err)
	}
	return found, nil
}

// CountActive returns the number of active students.
func (r *StudentRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return total, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, user_id, student_number, full_name, email, program, semester, active, created_at, updated_at) VALUES (:id, :user_id, :student_number, :full_name, :email, :program, :semester, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return writeError("create student", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET user_id = :user_id, student_number = :student_number, full_name = :full_name, email = :email, program = :program, semester = :semester, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return writeError("update student", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return affectedOrNotFound(res)
}
