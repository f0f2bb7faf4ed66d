package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.AcademicEvent, int, error)
	FindByID(ctx context.Context, id string) (*models.AcademicEvent, error)
	Create(ctx context.Context, event *models.AcademicEvent) error
	Update(ctx context.Context, event *models.AcademicEvent) error
	Delete(ctx context.Context, id string) error
}

// EventRequest is the payload for creating or updating calendar events.
type EventRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description"`
	EventType   models.EventType `json:"event_type" validate:"required,oneof=EXAM HOLIDAY DEADLINE ACTIVITY OTHER"`
	StartAt     time.Time        `json:"start_at" validate:"required"`
	EndAt       time.Time        `json:"end_at" validate:"required"`
	Location    *string          `json:"location"`
	CourseID    *string          `json:"course_id" validate:"omitempty,uuid"`
}

// EventService manages the academic calendar.
type EventService struct {
	repo      eventRepository
	courses   courseLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the event service.
func NewEventService(repo eventRepository, courses courseLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, courses: courses, cache: cache, validator: ensureValidator(validate), logger: logger}
}

// List returns events overlapping the filter window, ordered by start.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.AcademicEvent, *models.Pagination, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list events")
	}
	return events, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Upcoming returns up to limit events ending after now, optionally scoped to courses.
func (s *EventService) Upcoming(ctx context.Context, now time.Time, courseIDs []string, limit int) ([]models.AcademicEvent, error) {
	events, _, err := s.repo.List(ctx, models.EventFilter{From: &now, CourseIDs: courseIDs, Page: 1, PageSize: limit})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list upcoming events")
	}
	return events, nil
}

// Get returns an event by id.
func (s *EventService) Get(ctx context.Context, id string) (*models.AcademicEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "event not found", "failed to load event")
	}
	return event, nil
}

// Create adds an event authored by actorID.
func (s *EventService) Create(ctx context.Context, req EventRequest, actorID string) (*models.AcademicEvent, error) {
	event := &models.AcademicEvent{CreatedBy: actorID}
	if err := s.apply(ctx, event, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to create event")
	}
	s.invalidate(ctx)
	return event, nil
}

// Update modifies an event.
func (s *EventService) Update(ctx context.Context, id string, req EventRequest) (*models.AcademicEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "event not found", "failed to load event")
	}
	if err := s.apply(ctx, event, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, lookupError(err, "event not found", "failed to update event")
	}
	s.invalidate(ctx)
	return event, nil
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "event not found", "failed to delete event")
	}
	s.invalidate(ctx)
	return nil
}

func (s *EventService) apply(ctx context.Context, event *models.AcademicEvent, req EventRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid event payload")
	}
	if req.EndAt.Before(req.StartAt) {
		return appErrors.Clone(appErrors.ErrValidation, "end_at must not be before start_at")
	}
	courseID := normalizeOptional(req.CourseID)
	if courseID != nil {
		if _, err := s.courses.FindByID(ctx, *courseID); err != nil {
			return lookupError(err, "course not found", "failed to load course")
		}
	}
	event.Title = strings.TrimSpace(req.Title)
	event.Description = strings.TrimSpace(req.Description)
	event.EventType = req.EventType
	event.StartAt = req.StartAt.UTC()
	event.EndAt = req.EndAt.UTC()
	event.Location = normalizeOptional(req.Location)
	event.CourseID = courseID
	return nil
}

func (s *EventService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cachePrefixDashboard+"*")
}
