package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type memorySessionRepo struct {
	sessions  map[string]*models.ClassSession
	codes     map[string]string
	byCourses int
	seq       int
}

func (m *memorySessionRepo) detail(s *models.ClassSession) models.ClassSessionDetail {
	return models.ClassSessionDetail{ClassSession: *s, CourseCode: m.codes[s.CourseID]}
}

func (m *memorySessionRepo) List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, int, error) {
	out := []models.ClassSessionDetail{}
	for _, s := range m.sessions {
		if filter.DayOfWeek != "" && s.DayOfWeek != filter.DayOfWeek {
			continue
		}
		out = append(out, m.detail(s))
	}
	return out, len(out), nil
}

func (m *memorySessionRepo) ListByCourses(ctx context.Context, courseIDs []string) ([]models.ClassSessionDetail, error) {
	m.byCourses++
	out := []models.ClassSessionDetail{}
	for _, s := range m.sessions {
		for _, id := range courseIDs {
			if s.CourseID == id {
				out = append(out, m.detail(s))
			}
		}
	}
	return out, nil
}

func (m *memorySessionRepo) FindByID(ctx context.Context, id string) (*models.ClassSessionDetail, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := m.detail(s)
	return &d, nil
}

func (m *memorySessionRepo) FindOverlapping(ctx context.Context, session *models.ClassSession) ([]models.ClassSession, error) {
	out := []models.ClassSession{}
	for id, s := range m.sessions {
		if id == session.ID || s.DayOfWeek != session.DayOfWeek {
			continue
		}
		if !(s.StartTime < session.EndTime && s.EndTime > session.StartTime) {
			continue
		}
		sameRoom := strings.EqualFold(s.Room, session.Room)
		sameInstructor := session.InstructorID != nil && s.InstructorID != nil && *s.InstructorID == *session.InstructorID
		if sameRoom || sameInstructor {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memorySessionRepo) Create(ctx context.Context, session *models.ClassSession) error {
	m.seq++
	session.ID = fmt.Sprintf("cs%d", m.seq)
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *memorySessionRepo) Update(ctx context.Context, session *models.ClassSession) error {
	if _, ok := m.sessions[session.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *memorySessionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.sessions, id)
	return nil
}

const (
	courseB      = "22222222-2222-2222-2222-222222222222"
	instructorI1 = "99999999-0000-0000-0000-000000000001"
)

func newTimetableFixture(cache *CacheService) (*TimetableService, *memorySessionRepo, *memoryEnrollmentRepo) {
	sessions := &memorySessionRepo{
		sessions: map[string]*models.ClassSession{},
		codes:    map[string]string{courseA: "CS101", courseB: "MAT200"},
	}
	courses := &mockCourseRepo{courses: map[string]*models.Course{
		courseA: {ID: courseA, Code: "CS101", InstructorID: strPtr(instructorI1), Active: true},
		courseB: {ID: courseB, Code: "MAT200", Active: true},
	}}
	enrollments := newMemoryEnrollmentRepo(map[string]int{courseA: 10, courseB: 10})
	students := &mockStudentRepo{students: map[string]*models.Student{studentS1: {ID: studentS1, UserID: strPtr("user-1")}}}
	svc := NewTimetableService(sessions, courses, enrollments, students, cache, time.Minute, nil, nil)
	return svc, sessions, enrollments
}

func TestTimetableServiceCreateValidates(t *testing.T) {
	svc, _, _ := newTimetableFixture(nil)

	cases := []ClassSessionRequest{
		{CourseID: courseA, DayOfWeek: "FUNDAY", StartTime: "08:00", EndTime: "10:00", Room: "A1"},
		{CourseID: courseA, DayOfWeek: "MONDAY", StartTime: "8:00", EndTime: "10:00", Room: "A1"},
		{CourseID: courseA, DayOfWeek: "MONDAY", StartTime: "10:00", EndTime: "10:00", Room: "A1"},
		{CourseID: courseA, DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "10:00"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "%+v", req)
	}

	_, err := svc.Create(context.Background(), ClassSessionRequest{CourseID: "33333333-3333-3333-3333-333333333333", DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "10:00", Room: "A1"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDetectsConflicts(t *testing.T) {
	svc, _, _ := newTimetableFixture(nil)

	created, err := svc.Create(context.Background(), ClassSessionRequest{CourseID: courseA, DayOfWeek: "monday", StartTime: "08:00", EndTime: "10:00", Room: "A1"})
	require.NoError(t, err)
	assert.Equal(t, "MONDAY", created.DayOfWeek)
	assert.Equal(t, models.SessionTypeLecture, created.SessionType)
	require.NotNil(t, created.InstructorID)
	assert.Equal(t, instructorI1, *created.InstructorID)

	_, err = svc.Create(context.Background(), ClassSessionRequest{CourseID: courseB, DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "11:00", Room: "a1"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), ClassSessionRequest{CourseID: courseB, InstructorID: strPtr(instructorI1), DayOfWeek: "MONDAY", StartTime: "09:30", EndTime: "11:00", Room: "B2"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// touching ranges do not overlap
	_, err = svc.Create(context.Background(), ClassSessionRequest{CourseID: courseB, DayOfWeek: "MONDAY", StartTime: "10:00", EndTime: "11:00", Room: "A1"})
	assert.NoError(t, err)

	// updating a session does not clash with itself
	_, err = svc.Update(context.Background(), created.ID, ClassSessionRequest{CourseID: courseA, DayOfWeek: "MONDAY", StartTime: "08:30", EndTime: "10:00", Room: "A1"})
	assert.NoError(t, err)
}

func TestGroupByWeekdayOrdersDaysAndTimes(t *testing.T) {
	sessions := []models.ClassSessionDetail{
		{ClassSession: models.ClassSession{ID: "1", DayOfWeek: "FRIDAY", StartTime: "14:00"}},
		{ClassSession: models.ClassSession{ID: "2", DayOfWeek: "MONDAY", StartTime: "10:00"}},
		{ClassSession: models.ClassSession{ID: "3", DayOfWeek: "SUNDAY", StartTime: "09:00"}},
		{ClassSession: models.ClassSession{ID: "4", DayOfWeek: "MONDAY", StartTime: "08:00"}},
		{ClassSession: models.ClassSession{ID: "5", DayOfWeek: "FRIDAY", StartTime: "07:30"}},
	}

	days := GroupByWeekday(sessions)
	require.Len(t, days, 3)
	assert.Equal(t, "MONDAY", days[0].Day)
	assert.Equal(t, "FRIDAY", days[1].Day)
	assert.Equal(t, "SUNDAY", days[2].Day)
	assert.Equal(t, "4", days[0].Sessions[0].ID)
	assert.Equal(t, "2", days[0].Sessions[1].ID)
	assert.Equal(t, "5", days[1].Sessions[0].ID)
}

func TestTimetableServiceStudentTimetableUsesEnrolledCoursesAndCache(t *testing.T) {
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc, sessions, enrollments := newTimetableFixture(cache)

	_, err := svc.Create(context.Background(), ClassSessionRequest{CourseID: courseA, DayOfWeek: "WEDNESDAY", StartTime: "08:00", EndTime: "10:00", Room: "A1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), ClassSessionRequest{CourseID: courseB, DayOfWeek: "TUESDAY", StartTime: "12:00", EndTime: "13:00", Room: "B1"})
	require.NoError(t, err)

	require.NoError(t, enrollments.Enroll(context.Background(), &models.Enrollment{StudentID: studentS1, CourseID: courseA}))
	dropped := &models.Enrollment{StudentID: studentS1, CourseID: courseB}
	require.NoError(t, enrollments.Enroll(context.Background(), dropped))
	require.NoError(t, enrollments.UpdateStatus(context.Background(), dropped.ID, dropped.Status, models.EnrollmentStatusDropped))

	timetable, hit, err := svc.StudentTimetable(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, timetable.Days, 1)
	assert.Equal(t, "WEDNESDAY", timetable.Days[0].Day)
	assert.Equal(t, "CS101", timetable.Days[0].Sessions[0].CourseCode)
	assert.Equal(t, 1, timetable.SessionCount)

	_, hit, err = svc.StudentTimetable(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, sessions.byCourses)

	// any timetable write drops cached weeks
	_, err = svc.Create(context.Background(), ClassSessionRequest{CourseID: courseA, DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "09:00", Room: "C1"})
	require.NoError(t, err)
	timetable, hit, err = svc.StudentTimetable(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "MONDAY", timetable.Days[0].Day)
}
