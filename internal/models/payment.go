package models

import "time"

// PaymentStatus is the lifecycle of a charge.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusOverdue   PaymentStatus = "OVERDUE"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Outstanding is true while the charge still has to be paid.
func (s PaymentStatus) Outstanding() bool {
	return s == PaymentStatusPending || s == PaymentStatusOverdue
}

// Payment is a charge billed to a student.
type Payment struct {
	ID          string        `db:"id" json:"id"`
	StudentID   string        `db:"student_id" json:"student_id"`
	Concept     string        `db:"concept" json:"concept"`
	AmountCents int64         `db:"amount_cents" json:"amount_cents"`
	Currency    string        `db:"currency" json:"currency"`
	Status      PaymentStatus `db:"status" json:"status"`
	DueDate     time.Time     `db:"due_date" json:"due_date"`
	PaidAt      *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	Reference   *string       `db:"reference" json:"reference,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentFilter lists payments.
type PaymentFilter struct {
	StudentID string
	Status    PaymentStatus
	Page      int
	PageSize  int
}

// PaymentSummary aggregates outstanding charges.
type PaymentSummary struct {
	Count      int   `db:"count" json:"count"`
	TotalCents int64 `db:"total_cents" json:"total_cents"`
}
