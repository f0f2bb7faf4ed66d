package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListByStudent(ctx context.Context, studentID string, statuses ...models.EnrollmentStatus) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) error
	Activate(ctx context.Context, enrollment *models.Enrollment) error
	PromoteNextWaitlisted(ctx context.Context, courseID string) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// CreateEnrollmentRequest enrolls a student in a course.
type CreateEnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	CourseID  string `json:"course_id" validate:"required,uuid"`
}

// UpdateEnrollmentStatusRequest moves an enrollment along its lifecycle.
type UpdateEnrollmentStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=ENROLLED WAITLISTED COMPLETED DROPPED"`
}

// EnrollmentService manages course enrollments and the waitlist.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseLookup
	students  studentDirectory
	cache     *CacheService
	notify    studentNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, courses courseLookup, students studentDirectory, notifications notifier, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		students:  students,
		cache:     cache,
		notify:    studentNotifier{students: students, notifier: notifications, logger: logger},
		validator: ensureValidator(validate),
		logger:    logger,
	}
}

// List returns enrollments matching filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ListMine returns every enrollment of the student linked to userID.
func (s *EnrollmentService) ListMine(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "no student record is linked to this account", "failed to load student")
	}
	items, err := s.repo.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return items, nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	return enrollment, nil
}

// Create enrolls a student, waitlisting when the course is full.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid enrollment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return s.Enroll(ctx, req.StudentID, req.CourseID)
}

// Enroll places studentID in courseID. It is shared with inscription approval.
// A previously DROPPED enrollment is reactivated. When the student already
// holds an enrollment for the course, that enrollment is returned with a
// conflict error.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not active")
	}

	enrollment := &models.Enrollment{StudentID: studentID, CourseID: courseID}
	if err := s.repo.Enroll(ctx, enrollment); err != nil {
		if errors.Is(err, models.ErrDuplicate) && enrollment.ID != "" {
			return enrollment, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student already has a %s enrollment in this course", enrollment.Status))
		}
		return nil, writeFailure(err, "course not found", "student is already enrolled in this course", "failed to create enrollment")
	}
	s.invalidate(ctx)
	s.logger.Info("student enrolled",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.String("status", string(enrollment.Status)))
	return enrollment, nil
}

// UpdateStatus applies a lifecycle transition. Promoting a WAITLISTED entry
// needs a free seat; dropping an ENROLLED entry promotes the oldest
// waitlisted student of the course.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid enrollment status payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	previous := enrollment.Status
	if !previous.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot change enrollment from %s to %s", previous, req.Status))
	}
	if previous == models.EnrollmentStatusWaitlisted && req.Status == models.EnrollmentStatusEnrolled {
		if err := s.repo.Activate(ctx, enrollment); err != nil {
			if errors.Is(err, models.ErrCourseFull) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "course is full")
			}
			return nil, writeFailure(err, "course not found", "enrollment was changed concurrently", "failed to update enrollment")
		}
	} else {
		if err := s.repo.UpdateStatus(ctx, id, previous, req.Status); err != nil {
			return nil, writeFailure(err, "enrollment not found", "enrollment was changed concurrently", "failed to update enrollment")
		}
		enrollment.Status = req.Status
	}
	s.invalidate(ctx)

	if previous == models.EnrollmentStatusEnrolled && req.Status == models.EnrollmentStatusDropped {
		s.promote(ctx, enrollment.CourseID)
	}
	return enrollment, nil
}

// Delete removes an enrollment; a freed seat goes to the waitlist.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "enrollment not found", "failed to delete enrollment")
	}
	s.invalidate(ctx)
	if enrollment.Status == models.EnrollmentStatusEnrolled {
		s.promote(ctx, enrollment.CourseID)
	}
	return nil
}

func (s *EnrollmentService) promote(ctx context.Context, courseID string) {
	promoted, err := s.repo.PromoteNextWaitlisted(ctx, courseID)
	if err != nil {
		s.logger.Error("failed to promote waitlisted enrollment", zap.String("course_id", courseID), zap.Error(err))
		return
	}
	if promoted == nil {
		return
	}
	s.logger.Info("waitlisted student promoted", zap.String("enrollment_id", promoted.ID), zap.String("course_id", courseID))

	title := "You have a seat in your course"
	if course, err := s.courses.FindByID(ctx, courseID); err == nil {
		title = fmt.Sprintf("You are now enrolled in %s", course.Code)
	}
	s.notify.notify(ctx, promoted.StudentID, Note{
		Title:    title,
		Message:  "A seat became available and your waitlisted enrollment is now active.",
		Category: models.NotificationCategoryAcademic,
		Email:    true,
	})
}

func (s *EnrollmentService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cachePrefixTimetable+"*", cachePrefixDashboard+"*")
}
