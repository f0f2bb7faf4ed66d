package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	ExistsByEmployeeNumber(ctx context.Context, number, excludeID string) (bool, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
	Delete(ctx context.Context, id string) error
}

// InstructorRequest is the payload for creating or updating instructors.
type InstructorRequest struct {
	UserID         *string `json:"user_id" validate:"omitempty,uuid"`
	EmployeeNumber string  `json:"employee_number" validate:"required,max=32"`
	FullName       string  `json:"full_name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Department     string  `json:"department" validate:"required"`
	Active         *bool   `json:"active"`
}

// InstructorService manages teaching staff records.
type InstructorService struct {
	repo      instructorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewInstructorService(repo instructorRepository, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, validator: ensureValidator(validate), logger: logger}
}

func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list instructors")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "instructor not found", "failed to load instructor")
	}
	return instructor, nil
}

func (s *InstructorService) Create(ctx context.Context, req InstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid instructor payload")
	}
	number := strings.TrimSpace(req.EmployeeNumber)
	if err := s.ensureNumberAvailable(ctx, number, ""); err != nil {
		return nil, err
	}
	instructor := &models.Instructor{Active: true}
	applyInstructorRequest(instructor, req, number)
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, writeFailure(err, "instructor not found", "employee number or linked account already used", "failed to create instructor")
	}
	return instructor, nil
}

func (s *InstructorService) Update(ctx context.Context, id string, req InstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid instructor payload")
	}
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "instructor not found", "failed to load instructor")
	}
	number := strings.TrimSpace(req.EmployeeNumber)
	if err := s.ensureNumberAvailable(ctx, number, id); err != nil {
		return nil, err
	}
	applyInstructorRequest(instructor, req, number)
	if err := s.repo.Update(ctx, instructor); err != nil {
		return nil, writeFailure(err, "instructor not found", "employee number or linked account already used", "failed to update instructor")
	}
	return instructor, nil
}

func (s *InstructorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "instructor not found", "failed to delete instructor")
	}
	return nil
}

func (s *InstructorService) ensureNumberAvailable(ctx context.Context, number, excludeID string) error {
	exists, err := s.repo.ExistsByEmployeeNumber(ctx, number, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate employee number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "employee number already used")
	}
	return nil
}

func applyInstructorRequest(instructor *models.Instructor, req InstructorRequest, number string) {
	instructor.UserID = normalizeOptional(req.UserID)
	instructor.EmployeeNumber = number
	instructor.FullName = strings.TrimSpace(req.FullName)
	instructor.Email = strings.ToLower(strings.TrimSpace(req.Email))
	instructor.Department = strings.TrimSpace(req.Department)
	if req.Active != nil {
		instructor.Active = *req.Active
	}
}
