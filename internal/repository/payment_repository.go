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

const paymentColumns = `id, student_id, concept, amount_cents, currency, status, due_date, paid_at, reference, created_at, updated_at`

// PaymentRepository persists student charges.
type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments ordered by due date.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	var where conditions
	if filter.StudentID != "" {
		where.add("student_id = $%d", filter.StudentID)
	}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM payments%s ORDER BY due_date ASC, created_at ASC LIMIT %d OFFSET %d", paymentColumns, where.where(), limit, offset)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payments"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// Outstanding sums pending and overdue charges, optionally for one student.
func (r *PaymentRepository) Outstanding(ctx context.Context, studentID string) (models.PaymentSummary, error) {
	query := `SELECT COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS total_cents FROM payments WHERE status IN ('PENDING', 'OVERDUE')`
	args := []interface{}{}
	if studentID != "" {
		query += ` AND student_id = $1`
		args = append(args, studentID)
	}
	var summary models.PaymentSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return models.PaymentSummary{}, fmt.Errorf("sum outstanding payments: %w", err)
	}
	return summary, nil
}

// CountByStatus counts payments in a status.
func (r *PaymentRepository) CountByStatus(ctx context.Context, status models.PaymentStatus) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payments WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return total, nil
}

// FindByID returns a payment.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	const query = `INSERT INTO payments (id, student_id, concept, amount_cents, currency, status, due_date, paid_at, reference, created_at, updated_at) VALUES (:id, :student_id, :concept, :amount_cents, :currency, :status, :due_date, :paid_at, :reference, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Update saves every mutable field.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET concept = :concept, amount_cents = :amount_cents, currency = :currency, status = :status, due_date = :due_date, paid_at = :paid_at, reference = :reference, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, payment)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return affectedOrNotFound(res)
}

// MarkPaid records a settlement while the charge is still PENDING or OVERDUE.
// It returns models.ErrStaleStatus when the charge was settled or cancelled first.
func (r *PaymentRepository) MarkPaid(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET status = :status, paid_at = :paid_at, reference = :reference, updated_at = :updated_at WHERE id = :id AND status IN ('PENDING', 'OVERDUE')`
	res, err := r.db.NamedExecContext(ctx, query, payment)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return affectedOrStale(res)
}

// MarkOverdue flips pending charges due before cutoff to OVERDUE and returns them.
func (r *PaymentRepository) MarkOverdue(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	query := `UPDATE payments SET status = 'OVERDUE', updated_at = $2 WHERE status = 'PENDING' AND due_date < $1 RETURNING ` + paymentColumns
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, cutoff, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("mark overdue payments: %w", err)
	}
	return payments, nil
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return affectedOrNotFound(res)
}
