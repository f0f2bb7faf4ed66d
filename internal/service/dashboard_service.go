package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type studentTimetableProvider interface {
	ForStudent(ctx context.Context, studentID string) (*dto.StudentTimetable, bool, error)
}

type upcomingEventProvider interface {
	Upcoming(ctx context.Context, now time.Time, courseIDs []string, limit int) ([]models.AcademicEvent, error)
}

type inboxProvider interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, int, error)
}

type outstandingProvider interface {
	Outstanding(ctx context.Context, studentID string) (models.PaymentSummary, error)
}

type activeCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type inscriptionCounter interface {
	CountByStatus(ctx context.Context, status models.InscriptionStatus) (int, error)
}

type paymentCounter interface {
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL             time.Duration
	UpcomingEventsLimit  int
	NotificationsPreview int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students      studentAccountLookup
	Timetable     studentTimetableProvider
	Enrollments   studentEnrollmentReader
	Events        upcomingEventProvider
	Notifications inboxProvider
	Payments      outstandingProvider
	StudentCount  activeCounter
	Instructors   activeCounter
	Courses       activeCounter
	Inscriptions  inscriptionCounter
	PaymentCount  paymentCounter
	Cache         *CacheService
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// DashboardService composes the landing page payloads.
type DashboardService struct {
	students      studentAccountLookup
	timetable     studentTimetableProvider
	enrollments   studentEnrollmentReader
	events        upcomingEventProvider
	notifications inboxProvider
	payments      outstandingProvider
	studentCount  activeCounter
	instructors   activeCounter
	courses       activeCounter
	inscriptions  inscriptionCounter
	paymentCount  paymentCounter
	cache         *CacheService
	logger        *zap.Logger
	now           func() time.Time
	cfg           DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.UpcomingEventsLimit <= 0 {
		cfg.UpcomingEventsLimit = 5
	}
	if cfg.NotificationsPreview <= 0 {
		cfg.NotificationsPreview = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:      params.Students,
		timetable:     params.Timetable,
		enrollments:   params.Enrollments,
		events:        params.Events,
		notifications: params.Notifications,
		payments:      params.Payments,
		studentCount:  params.StudentCount,
		instructors:   params.Instructors,
		courses:       params.Courses,
		inscriptions:  params.Inscriptions,
		paymentCount:  params.PaymentCount,
		cache:         params.Cache,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		cfg:           cfg,
	}
}

// Student returns the dashboard of the student linked to userID and whether it came from cache.
func (s *DashboardService) Student(ctx context.Context, userID string) (*dto.StudentDashboard, bool, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, false, lookupError(err, "no student record is linked to this account", "failed to load student")
	}

	now := s.now()
	key := cachePrefixDashboard + "student:" + student.ID + ":" + now.Format("2006-01-02")
	var cached dto.StudentDashboard
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	timetable, _, err := s.timetable.ForStudent(ctx, student.ID)
	if err != nil {
		return nil, false, err
	}
	today := models.WeekdayOf(now.Weekday())
	todaySessions := []models.ClassSessionDetail{}
	for _, day := range timetable.Days {
		if day.Day == today {
			todaySessions = day.Sessions
			break
		}
	}

	enrollments, err := s.enrollments.ListByStudent(ctx, student.ID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load enrollments")
	}
	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Status == models.EnrollmentStatusEnrolled {
			courseIDs = append(courseIDs, e.CourseID)
		}
	}

	events, err := s.events.Upcoming(ctx, now, courseIDs, s.cfg.UpcomingEventsLimit)
	if err != nil {
		return nil, false, err
	}
	latest, _, unread, err := s.notifications.List(ctx, models.NotificationFilter{UserID: userID, Page: 1, PageSize: s.cfg.NotificationsPreview})
	if err != nil {
		return nil, false, err
	}
	pending, err := s.payments.Outstanding(ctx, student.ID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to sum outstanding payments")
	}

	dashboard := &dto.StudentDashboard{
		Student:             *student,
		Today:               today,
		TodaySessions:       todaySessions,
		WeeklySessionCount:  timetable.SessionCount,
		Enrollments:         enrollments,
		UpcomingEvents:      events,
		UnreadNotifications: unread,
		LatestNotifications: latest,
		PendingPayments:     pending,
	}
	s.cache.Set(ctx, key, dashboard, s.cfg.CacheTTL)
	return dashboard, false, nil
}

// Admin returns portal wide counters and whether they came from cache.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboard, bool, error) {
	key := cachePrefixDashboard + "admin"
	var cached dto.AdminDashboard
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	var (
		dashboard dto.AdminDashboard
		err       error
	)
	if dashboard.ActiveStudents, err = s.studentCount.CountActive(ctx); err != nil {
		return nil, false, appErrors.Internal(err, "failed to count students")
	}
	if dashboard.ActiveInstructors, err = s.instructors.CountActive(ctx); err != nil {
		return nil, false, appErrors.Internal(err, "failed to count instructors")
	}
	if dashboard.ActiveCourses, err = s.courses.CountActive(ctx); err != nil {
		return nil, false, appErrors.Internal(err, "failed to count courses")
	}
	if dashboard.PendingInscriptions, err = s.inscriptions.CountByStatus(ctx, models.InscriptionStatusPending); err != nil {
		return nil, false, appErrors.Internal(err, "failed to count inscriptions")
	}
	if dashboard.OverduePayments, err = s.paymentCount.CountByStatus(ctx, models.PaymentStatusOverdue); err != nil {
		return nil, false, appErrors.Internal(err, "failed to count payments")
	}
	s.cache.Set(ctx, key, &dashboard, time.Minute)
	return &dashboard, false, nil
}
