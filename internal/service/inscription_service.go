package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type inscriptionRepository interface {
	List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Inscription, error)
	ExistsActive(ctx context.Context, studentID, courseID, period string) (bool, error)
	Create(ctx context.Context, inscription *models.Inscription) error
	UpdateStatus(ctx context.Context, inscription *models.Inscription, from models.InscriptionStatus) error
	Delete(ctx context.Context, id string) error
}

type enroller interface {
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

// CreateInscriptionRequest is submitted by a student.
type CreateInscriptionRequest struct {
	CourseID       string  `json:"course_id" validate:"required,uuid"`
	AcademicPeriod string  `json:"academic_period" validate:"omitempty,max=32"`
	Notes          *string `json:"notes" validate:"omitempty,max=1000"`
}

// DecideInscriptionRequest approves or rejects a pending inscription.
type DecideInscriptionRequest struct {
	Status models.InscriptionStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Notes  *string                  `json:"notes" validate:"omitempty,max=1000"`
}

// InscriptionResult pairs a decided inscription with the enrollment it produced.
type InscriptionResult struct {
	Inscription *models.Inscription `json:"inscription"`
	Enrollment  *models.Enrollment  `json:"enrollment,omitempty"`
}

// InscriptionService handles course registration requests.
type InscriptionService struct {
	repo      inscriptionRepository
	courses   courseLookup
	students  studentDirectory
	enroller  enroller
	notify    studentNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewInscriptionService constructs the inscription service.
func NewInscriptionService(repo inscriptionRepository, courses courseLookup, students studentDirectory, enroller enroller, notifications notifier, validate *validator.Validate, logger *zap.Logger) *InscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InscriptionService{
		repo:      repo,
		courses:   courses,
		students:  students,
		enroller:  enroller,
		notify:    studentNotifier{students: students, notifier: notifications, logger: logger},
		validator: ensureValidator(validate),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns inscriptions matching filter.
func (s *InscriptionService) List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list inscriptions")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ListMine scopes filter to the student linked to userID.
func (s *InscriptionService) ListMine(ctx context.Context, userID string, filter models.InscriptionFilter) ([]models.InscriptionDetail, *models.Pagination, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, lookupError(err, "no student record is linked to this account", "failed to load student")
	}
	filter.StudentID = student.ID
	return s.List(ctx, filter)
}

// Create files a PENDING inscription for the calling student. The course
// period is used when the payload omits one.
func (s *InscriptionService) Create(ctx context.Context, userID string, req CreateInscriptionRequest) (*models.Inscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid inscription payload")
	}
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "no student record is linked to this account", "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not open for inscription")
	}
	period := strings.TrimSpace(req.AcademicPeriod)
	if period == "" {
		period = course.AcademicPeriod
	}

	exists, err := s.repo.ExistsActive(ctx, student.ID, course.ID, period)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check inscriptions")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an inscription for this course and period already exists")
	}

	inscription := &models.Inscription{
		StudentID:      student.ID,
		CourseID:       course.ID,
		AcademicPeriod: period,
		Status:         models.InscriptionStatusPending,
		Notes:          normalizeOptional(req.Notes),
	}
	if err := s.repo.Create(ctx, inscription); err != nil {
		return nil, writeFailure(err, "course not found", "an inscription for this course and period already exists", "failed to create inscription")
	}
	return inscription, nil
}

// Decide approves or rejects a PENDING inscription. Approval enrolls the
// student, accepting an enrollment that is already ENROLLED or WAITLISTED;
// any other enrollment failure reverts the decision. The student is
// notified of the outcome.
func (s *InscriptionService) Decide(ctx context.Context, id string, req DecideInscriptionRequest, actorID string) (*InscriptionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid inscription decision")
	}
	inscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "inscription not found", "failed to load inscription")
	}
	if inscription.Status != models.InscriptionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("inscription is already %s", inscription.Status))
	}

	decidedAt := s.now()
	inscription.Status = req.Status
	if notes := normalizeOptional(req.Notes); notes != nil {
		inscription.Notes = notes
	}
	inscription.DecidedBy = &actorID
	inscription.DecidedAt = &decidedAt
	if err := s.repo.UpdateStatus(ctx, inscription, models.InscriptionStatusPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "inscription was decided concurrently")
		}
		return nil, appErrors.Internal(err, "failed to update inscription")
	}

	result := &InscriptionResult{Inscription: inscription}
	if req.Status == models.InscriptionStatusApproved {
		enrollment, err := s.enroller.Enroll(ctx, inscription.StudentID, inscription.CourseID)
		switch {
		case err == nil:
			result.Enrollment = enrollment
		case enrollment != nil && enrollment.Status.Active():
			s.logger.Info("approved inscription for an existing enrollment", zap.String("inscription_id", id))
			result.Enrollment = enrollment
		default:
			s.revert(ctx, inscription)
			return nil, err
		}
	}

	s.notify.notify(ctx, inscription.StudentID, decisionNote(inscription, result.Enrollment))
	return result, nil
}

// Cancel lets the owning student withdraw a PENDING inscription.
func (s *InscriptionService) Cancel(ctx context.Context, id, userID string) (*models.Inscription, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "no student record is linked to this account", "failed to load student")
	}
	inscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "inscription not found", "failed to load inscription")
	}
	if inscription.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "inscription not found")
	}
	if inscription.Status != models.InscriptionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only pending inscriptions can be cancelled")
	}
	inscription.Status = models.InscriptionStatusCancelled
	if err := s.repo.UpdateStatus(ctx, inscription, models.InscriptionStatusPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "inscription was decided concurrently")
		}
		return nil, appErrors.Internal(err, "failed to cancel inscription")
	}
	return inscription, nil
}

// Delete removes an inscription outright.
func (s *InscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "inscription not found", "failed to delete inscription")
	}
	return nil
}

func (s *InscriptionService) revert(ctx context.Context, inscription *models.Inscription) {
	from := inscription.Status
	inscription.Status = models.InscriptionStatusPending
	inscription.DecidedBy = nil
	inscription.DecidedAt = nil
	if err := s.repo.UpdateStatus(ctx, inscription, from); err != nil {
		s.logger.Error("failed to revert inscription after enrollment error", zap.String("inscription_id", inscription.ID), zap.Error(err))
	}
}

func decisionNote(inscription *models.Inscription, enrollment *models.Enrollment) Note {
	note := Note{
		Category: models.NotificationCategoryInscription,
		Email:    true,
	}
	switch {
	case inscription.Status == models.InscriptionStatusRejected:
		note.Title = "Inscription rejected"
		note.Message = fmt.Sprintf("Your inscription for period %s was rejected.", inscription.AcademicPeriod)
	case enrollment != nil && enrollment.Status == models.EnrollmentStatusWaitlisted:
		note.Title = "Inscription approved"
		note.Message = fmt.Sprintf("Your inscription for period %s was approved. The course is full and you have been placed on the waitlist.", inscription.AcademicPeriod)
	default:
		note.Title = "Inscription approved"
		note.Message = fmt.Sprintf("Your inscription for period %s was approved and you are enrolled.", inscription.AcademicPeriod)
	}
	if inscription.Notes != nil {
		note.Message += "\n\n" + *inscription.Notes
	}
	return note
}
