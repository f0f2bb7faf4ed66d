package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	ExistsByStudentNumber(ctx context.Context, number, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentRequest holds payload for creating or updating students.
type StudentRequest struct {
	UserID        *string `json:"user_id" validate:"omitempty,uuid"`
	StudentNumber string  `json:"student_number" validate:"required,max=32"`
	FullName      string  `json:"full_name" validate:"required"`
	Email         string  `json:"email" validate:"required,email"`
	Program       string  `json:"program" validate:"required"`
	Semester      int     `json:"semester" validate:"gte=1,lte=20"`
	Active        *bool   `json:"active"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: ensureValidator(validate), logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Me returns the student record linked to a user account.
func (s *StudentService) Me(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "no student record is linked to this account", "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid student payload")
	}
	number := strings.TrimSpace(req.StudentNumber)
	if err := s.ensureNumberAvailable(ctx, number, ""); err != nil {
		return nil, err
	}
	student := &models.Student{Active: true}
	applyStudentRequest(student, req, number)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, writeFailure(err, "student not found", "student number or linked account already used", "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	number := strings.TrimSpace(req.StudentNumber)
	if err := s.ensureNumberAvailable(ctx, number, id); err != nil {
		return nil, err
	}
	applyStudentRequest(student, req, number)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, writeFailure(err, "student not found", "student number or linked account already used", "failed to update student")
	}
	return student, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "student not found", "failed to delete student")
	}
	return nil
}

func (s *StudentService) ensureNumberAvailable(ctx context.Context, number, excludeID string) error {
	exists, err := s.repo.ExistsByStudentNumber(ctx, number, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate student number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "student number already used")
	}
	return nil
}

func applyStudentRequest(student *models.Student, req StudentRequest, number string) {
	student.UserID = normalizeOptional(req.UserID)
	student.StudentNumber = number
	student.FullName = strings.TrimSpace(req.FullName)
	student.Email = strings.ToLower(strings.TrimSpace(req.Email))
	student.Program = strings.TrimSpace(req.Program)
	student.Semester = req.Semester
	if req.Active != nil {
		student.Active = *req.Active
	}
}
