package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

var paymentRowColumns = []string{"id", "student_id", "concept", "amount_cents", "currency", "status", "due_date", "paid_at", "reference", "created_at", "updated_at"}

func TestPaymentRepositoryMarkOverdue(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := cutoff.AddDate(0, 0, -3)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE payments SET status = 'OVERDUE', updated_at = $2 WHERE status = 'PENDING' AND due_date < $1 RETURNING")).
		WithArgs(cutoff, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(paymentRowColumns).
			AddRow("p1", "s1", "Tuition", int64(150000), "USD", "OVERDUE", due, nil, nil, due, cutoff))

	payments, err := repo.MarkOverdue(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusOverdue, payments[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryOutstandingForStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ('PENDING', 'OVERDUE') AND student_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "total_cents"}).AddRow(2, int64(30000)))

	summary, err := repo.Outstanding(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, int64(30000), summary.TotalCents)
}

func TestPaymentRepositoryMarkPaidOnlyOutstanding(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`WHERE id = \S+ AND status IN \('PENDING', 'OVERDUE'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	paidAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	err := repo.MarkPaid(context.Background(), &models.Payment{ID: "p1", Status: models.PaymentStatusPaid, PaidAt: &paidAt})
	assert.ErrorIs(t, err, models.ErrStaleStatus)

	mock.ExpectExec("UPDATE payments SET status = .+, paid_at = ").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkPaid(context.Background(), &models.Payment{ID: "p2", Status: models.PaymentStatusPaid, PaidAt: &paidAt}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
