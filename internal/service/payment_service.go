package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	Outstanding(ctx context.Context, studentID string) (models.PaymentSummary, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	MarkPaid(ctx context.Context, payment *models.Payment) error
	MarkOverdue(ctx context.Context, cutoff time.Time) ([]models.Payment, error)
	Delete(ctx context.Context, id string) error
}

// CreatePaymentRequest bills a student.
type CreatePaymentRequest struct {
	StudentID   string    `json:"student_id" validate:"required,uuid"`
	Concept     string    `json:"concept" validate:"required,max=200"`
	AmountCents int64     `json:"amount_cents" validate:"gt=0"`
	Currency    string    `json:"currency" validate:"required,len=3,alpha"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// UpdatePaymentRequest edits a charge.
type UpdatePaymentRequest struct {
	Concept     string               `json:"concept" validate:"required,max=200"`
	AmountCents int64                `json:"amount_cents" validate:"gt=0"`
	DueDate     time.Time            `json:"due_date" validate:"required"`
	Status      models.PaymentStatus `json:"status" validate:"omitempty,oneof=PENDING PAID OVERDUE CANCELLED"`
}

// PayRequest records a settlement.
type PayRequest struct {
	Reference string `json:"reference" validate:"omitempty,max=128"`
}

// PaymentService manages student charges.
type PaymentService struct {
	repo      paymentRepository
	students  studentDirectory
	cache     *CacheService
	notify    studentNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, students studentDirectory, notifications notifier, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:      repo,
		students:  students,
		cache:     cache,
		notify:    studentNotifier{students: students, notifier: notifications, logger: logger},
		validator: ensureValidator(validate),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns payments and the outstanding summary for the same student scope.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, models.PaymentSummary, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, models.PaymentSummary{}, appErrors.Internal(err, "failed to list payments")
	}
	summary, err := s.repo.Outstanding(ctx, filter.StudentID)
	if err != nil {
		return nil, nil, models.PaymentSummary{}, appErrors.Internal(err, "failed to sum outstanding payments")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), summary, nil
}

// ListMine scopes List to the student linked to userID.
func (s *PaymentService) ListMine(ctx context.Context, userID string, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, models.PaymentSummary, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, models.PaymentSummary{}, lookupError(err, "no student record is linked to this account", "failed to load student")
	}
	filter.StudentID = student.ID
	return s.List(ctx, filter)
}

// Get returns a payment by id.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment not found", "failed to load payment")
	}
	return payment, nil
}

// Create bills a student with a PENDING charge.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid payment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	payment := &models.Payment{
		StudentID:   req.StudentID,
		Concept:     strings.TrimSpace(req.Concept),
		AmountCents: req.AmountCents,
		Currency:    strings.ToUpper(req.Currency),
		Status:      models.PaymentStatusPending,
		DueDate:     req.DueDate.UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Internal(err, "failed to create payment")
	}
	s.invalidate(ctx)
	s.notify.notify(ctx, payment.StudentID, Note{
		Title:    "New charge: " + payment.Concept,
		Message:  fmt.Sprintf("A charge of %s is due on %s.", formatAmount(payment.AmountCents, payment.Currency), payment.DueDate.Format("2006-01-02")),
		Category: models.NotificationCategoryPayment,
	})
	return payment, nil
}

// Update edits concept, amount, due date and optionally status.
func (s *PaymentService) Update(ctx context.Context, id string, req UpdatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid payment payload")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment not found", "failed to load payment")
	}
	payment.Concept = strings.TrimSpace(req.Concept)
	payment.AmountCents = req.AmountCents
	payment.DueDate = req.DueDate.UTC()
	if req.Status != "" && req.Status != payment.Status {
		payment.Status = req.Status
		if req.Status == models.PaymentStatusPaid {
			paidAt := s.now()
			payment.PaidAt = &paidAt
		} else {
			payment.PaidAt = nil
		}
	}
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, lookupError(err, "payment not found", "failed to update payment")
	}
	s.invalidate(ctx)
	return payment, nil
}

// Pay settles an outstanding charge. Students may only pay their own charges;
// other charges are reported as missing.
func (s *PaymentService) Pay(ctx context.Context, id string, req PayRequest, userID string, admin bool) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid payment payload")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment not found", "failed to load payment")
	}
	if !admin {
		student, err := s.students.FindByUserID(ctx, userID)
		if err != nil {
			return nil, lookupError(err, "payment not found", "failed to load student")
		}
		if student.ID != payment.StudentID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
	}
	if !payment.Status.Outstanding() {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("payment is already %s", payment.Status))
	}

	paidAt := s.now()
	payment.Status = models.PaymentStatusPaid
	payment.PaidAt = &paidAt
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		payment.Reference = &ref
	}
	if err := s.repo.MarkPaid(ctx, payment); err != nil {
		return nil, writeFailure(err, "payment not found", "payment was settled concurrently", "failed to record payment")
	}
	s.invalidate(ctx)
	return payment, nil
}

// Delete removes a charge.
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "payment not found", "failed to delete payment")
	}
	s.invalidate(ctx)
	return nil
}

// SweepOverdue marks pending charges past their due date as OVERDUE and
// notifies the students concerned. It returns how many charges changed.
func (s *PaymentService) SweepOverdue(ctx context.Context) (int, error) {
	overdue, err := s.repo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to mark overdue payments")
	}
	if len(overdue) == 0 {
		return 0, nil
	}
	s.invalidate(ctx)
	for _, payment := range overdue {
		s.notify.notify(ctx, payment.StudentID, Note{
			Title:    "Payment overdue: " + payment.Concept,
			Message:  fmt.Sprintf("The charge of %s was due on %s.", formatAmount(payment.AmountCents, payment.Currency), payment.DueDate.Format("2006-01-02")),
			Category: models.NotificationCategoryPayment,
			Email:    true,
		})
	}
	s.logger.Info("overdue payments swept", zap.Int("count", len(overdue)))
	return len(overdue), nil
}

func (s *PaymentService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cachePrefixDashboard+"*")
}

func formatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
