package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN INSTRUCTOR STUDENT"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN INSTRUCTOR STUDENT"`
	Active   *bool           `json:"active"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, audit: audit, validator: ensureValidator(validate), logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Create adds a new user. Users are active unless the payload says otherwise.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID string, meta SessionMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid create user payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureEmailAvailable(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	user := &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       req.Active == nil || *req.Active,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeFailure(err, "user not found", "email already exists", "failed to create user")
	}

	s.audit.Record(ctx, AuditEntry{
		UserID: actorID, Action: models.AuditActionUserCreate, Resource: "users", ResourceID: user.ID,
		Details: map[string]interface{}{"email": user.Email, "role": user.Role},
		IP:      meta.IP, UserAgent: meta.UserAgent,
	})
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string, meta SessionMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid update user payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureEmailAvailable(ctx, email, id); err != nil {
		return nil, err
	}

	before := map[string]interface{}{"email": user.Email, "role": user.Role, "active": user.Active}
	user.Email = email
	user.FullName = strings.TrimSpace(req.FullName)
	user.Role = req.Role
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, writeFailure(err, "user not found", "email already exists", "failed to update user")
	}

	s.audit.Record(ctx, AuditEntry{
		UserID: actorID, Action: models.AuditActionUserUpdate, Resource: "users", ResourceID: user.ID,
		Before:  before,
		Details: map[string]interface{}{"email": user.Email, "role": user.Role, "active": user.Active},
		IP:      meta.IP, UserAgent: meta.UserAgent,
	})
	return user, nil
}

// Delete performs a soft delete (inactive) on a user.
func (s *UserService) Delete(ctx context.Context, id, actorID string, meta SessionMeta) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return lookupError(err, "user not found", "failed to delete user")
	}
	s.audit.Record(ctx, AuditEntry{
		UserID: actorID, Action: models.AuditActionUserDelete, Resource: "users", ResourceID: id,
		IP: meta.IP, UserAgent: meta.UserAgent,
	})
	return nil
}

func (s *UserService) ensureEmailAvailable(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return nil
}
