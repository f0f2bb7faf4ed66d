package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type classSessionRepository interface {
	List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, int, error)
	ListByCourses(ctx context.Context, courseIDs []string) ([]models.ClassSessionDetail, error)
	FindByID(ctx context.Context, id string) (*models.ClassSessionDetail, error)
	FindOverlapping(ctx context.Context, session *models.ClassSession) ([]models.ClassSession, error)
	Create(ctx context.Context, session *models.ClassSession) error
	Update(ctx context.Context, session *models.ClassSession) error
	Delete(ctx context.Context, id string) error
}

type studentEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string, statuses ...models.EnrollmentStatus) ([]models.EnrollmentDetail, error)
}

type studentAccountLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// ClassSessionRequest is the payload for creating or updating timetable entries.
type ClassSessionRequest struct {
	CourseID     string             `json:"course_id" validate:"required,uuid"`
	InstructorID *string            `json:"instructor_id" validate:"omitempty,uuid"`
	DayOfWeek    string             `json:"day_of_week" validate:"required,weekday"`
	StartTime    string             `json:"start_time" validate:"required,hhmm"`
	EndTime      string             `json:"end_time" validate:"required,hhmm"`
	Room         string             `json:"room" validate:"required,max=64"`
	SessionType  models.SessionType `json:"session_type" validate:"omitempty,oneof=LECTURE LAB TUTORIAL SEMINAR"`
}

// TimetableService manages class sessions and builds student timetables.
type TimetableService struct {
	repo        classSessionRepository
	courses     courseLookup
	enrollments studentEnrollmentReader
	students    studentAccountLookup
	cache       *CacheService
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTimetableService constructs the timetable service.
func NewTimetableService(repo classSessionRepository, courses courseLookup, enrollments studentEnrollmentReader, students studentAccountLookup, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		students:    students,
		cache:       cache,
		cacheTTL:    cacheTTL,
		validator:   ensureValidator(validate),
		logger:      logger,
	}
}

// List returns class sessions ordered by weekday then start time.
func (s *TimetableService) List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, *models.Pagination, error) {
	filter.DayOfWeek = strings.ToUpper(strings.TrimSpace(filter.DayOfWeek))
	if filter.DayOfWeek != "" && models.WeekdayIndex(filter.DayOfWeek) < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "day must be one of MONDAY..SUNDAY")
	}
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list class sessions")
	}
	return sessions, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one session.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.ClassSessionDetail, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class session not found", "failed to load class session")
	}
	return session, nil
}

// Create adds a session after checking room and instructor availability.
func (s *TimetableService) Create(ctx context.Context, req ClassSessionRequest) (*models.ClassSessionDetail, error) {
	session, err := s.prepare(ctx, req, &models.ClassSession{})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Internal(err, "failed to create class session")
	}
	s.invalidate(ctx)
	return s.Get(ctx, session.ID)
}

// Update replaces a session after the same checks as Create.
func (s *TimetableService) Update(ctx context.Context, id string, req ClassSessionRequest) (*models.ClassSessionDetail, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class session not found", "failed to load class session")
	}
	session := current.ClassSession
	if _, err := s.prepare(ctx, req, &session); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &session); err != nil {
		return nil, lookupError(err, "class session not found", "failed to update class session")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a session.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "class session not found", "failed to delete class session")
	}
	s.invalidate(ctx)
	return nil
}

// StudentTimetable returns the weekly timetable of the student linked to userID,
// built from courses where the student is ENROLLED.
func (s *TimetableService) StudentTimetable(ctx context.Context, userID string) (*dto.StudentTimetable, bool, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, false, lookupError(err, "no student record is linked to this account", "failed to load student")
	}
	return s.ForStudent(ctx, student.ID)
}

// ForStudent builds the timetable of studentID, using the cache when enabled.
// The boolean reports a cache hit.
func (s *TimetableService) ForStudent(ctx context.Context, studentID string) (*dto.StudentTimetable, bool, error) {
	key := cachePrefixTimetable + "student:" + studentID
	var cached dto.StudentTimetable
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	enrollments, err := s.enrollments.ListByStudent(ctx, studentID, models.EnrollmentStatusEnrolled)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load enrollments")
	}
	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	sessions, err := s.repo.ListByCourses(ctx, courseIDs)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load class sessions")
	}

	timetable := &dto.StudentTimetable{
		StudentID:    studentID,
		Days:         GroupByWeekday(sessions),
		SessionCount: len(sessions),
	}
	s.cache.Set(ctx, key, timetable, s.cacheTTL)
	return timetable, false, nil
}

// GroupByWeekday buckets sessions by day in Monday..Sunday order. Each day is
// sorted by start time and days without sessions are omitted.
func GroupByWeekday(sessions []models.ClassSessionDetail) []dto.TimetableDay {
	buckets := make([][]models.ClassSessionDetail, len(models.Weekdays))
	for _, session := range sessions {
		idx := models.WeekdayIndex(session.DayOfWeek)
		if idx < 0 {
			continue
		}
		buckets[idx] = append(buckets[idx], session)
	}

	days := make([]dto.TimetableDay, 0, len(models.Weekdays))
	for idx, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].StartTime < bucket[j].StartTime
		})
		days = append(days, dto.TimetableDay{Day: models.Weekdays[idx], Sessions: bucket})
	}
	return days
}

// prepare validates req, applies it onto session and checks for clashes.
func (s *TimetableService) prepare(ctx context.Context, req ClassSessionRequest, session *models.ClassSession) (*models.ClassSession, error) {
	req.DayOfWeek = strings.ToUpper(strings.TrimSpace(req.DayOfWeek))
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid class session payload")
	}
	if req.StartTime >= req.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}

	session.CourseID = course.ID
	session.InstructorID = normalizeOptional(req.InstructorID)
	if session.InstructorID == nil {
		session.InstructorID = course.InstructorID
	}
	session.DayOfWeek = req.DayOfWeek
	session.StartTime = req.StartTime
	session.EndTime = req.EndTime
	session.Room = strings.TrimSpace(req.Room)
	session.SessionType = req.SessionType
	if session.SessionType == "" {
		session.SessionType = models.SessionTypeLecture
	}

	clashes, err := s.repo.FindOverlapping(ctx, session)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check timetable conflicts")
	}
	for _, other := range clashes {
		if strings.EqualFold(other.Room, session.Room) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "room "+session.Room+" is already booked at that time")
		}
	}
	if len(clashes) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "instructor already teaches at that time")
	}
	return session, nil
}

func (s *TimetableService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cachePrefixTimetable+"*", cachePrefixDashboard+"*")
}
