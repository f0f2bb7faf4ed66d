package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseRequest is the payload for creating or updating courses.
type CourseRequest struct {
	Code           string  `json:"code" validate:"required,max=32"`
	Name           string  `json:"name" validate:"required"`
	Description    string  `json:"description"`
	Credits        int     `json:"credits" validate:"gte=0,lte=60"`
	Capacity       int     `json:"capacity" validate:"gte=1"`
	InstructorID   *string `json:"instructor_id" validate:"omitempty,uuid"`
	AcademicPeriod string  `json:"academic_period" validate:"required"`
	Active         *bool   `json:"active"`
}

// CourseService manages the course catalogue.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: ensureValidator(validate), logger: logger}
}

// List returns courses with pagination.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	return course, nil
}

// Create adds a course; codes are stored upper-cased.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureCodeAvailable(ctx, code, ""); err != nil {
		return nil, err
	}
	course := &models.Course{Active: true}
	applyCourseRequest(course, req, code)
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, writeFailure(err, "course not found", "course code already used", "failed to create course")
	}
	return course, nil
}

// Update modifies a course.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureCodeAvailable(ctx, code, id); err != nil {
		return nil, err
	}
	applyCourseRequest(course, req, code)
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, writeFailure(err, "course not found", "course code already used", "failed to update course")
	}
	return course, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "course not found", "failed to delete course")
	}
	return nil
}

func (s *CourseService) ensureCodeAvailable(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	return nil
}

func applyCourseRequest(course *models.Course, req CourseRequest, code string) {
	course.Code = code
	course.Name = strings.TrimSpace(req.Name)
	course.Description = strings.TrimSpace(req.Description)
	course.Credits = req.Credits
	course.Capacity = req.Capacity
	course.InstructorID = normalizeOptional(req.InstructorID)
	course.AcademicPeriod = strings.TrimSpace(req.AcademicPeriod)
	if req.Active != nil {
		course.Active = *req.Active
	}
}
