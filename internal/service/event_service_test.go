package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type memoryEventRepo struct {
	events     map[string]*models.AcademicEvent
	lastFilter models.EventFilter
	seq        int
}

func (m *memoryEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.AcademicEvent, int, error) {
	m.lastFilter = filter
	out := make([]models.AcademicEvent, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *memoryEventRepo) FindByID(ctx context.Context, id string) (*models.AcademicEvent, error) {
	if e, ok := m.events[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryEventRepo) Create(ctx context.Context, event *models.AcademicEvent) error {
	m.seq++
	event.ID = fmt.Sprintf("evt-%d", m.seq)
	clone := *event
	m.events[event.ID] = &clone
	return nil
}

func (m *memoryEventRepo) Update(ctx context.Context, event *models.AcademicEvent) error {
	if _, ok := m.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *event
	m.events[event.ID] = &clone
	return nil
}

func (m *memoryEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.events, id)
	return nil
}

func newEventFixture() (*EventService, *memoryEventRepo, *memoryCache) {
	repo := &memoryEventRepo{events: map[string]*models.AcademicEvent{}}
	courses := &mockCourseRepo{courses: map[string]*models.Course{courseA: {ID: courseA, Code: "CS101", Active: true}}}
	store := newMemoryCache()
	cache := NewCacheService(store, nil, time.Minute, nil, true)
	return NewEventService(repo, courses, cache, nil, nil), repo, store
}

func TestEventServiceCreateAndGet(t *testing.T) {
	svc, _, store := newEventFixture()
	store.items[cachePrefixDashboard+"student:s1"] = []byte(`{}`)

	start := time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC)
	course := courseA
	created, err := svc.Create(context.Background(), EventRequest{
		Title:     "  Midterm exam ",
		EventType: models.EventTypeExam,
		StartAt:   start,
		EndAt:     start.Add(2 * time.Hour),
		CourseID:  &course,
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Midterm exam", created.Title)
	assert.Equal(t, "admin-1", created.CreatedBy)
	assert.Empty(t, store.items, "dashboards are invalidated")

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.StartAt, got.StartAt)
	require.NotNil(t, got.CourseID)
	assert.Equal(t, courseA, *got.CourseID)
}

func TestEventServiceRejectsInvalidPayloads(t *testing.T) {
	svc, _, _ := newEventFixture()
	start := time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), EventRequest{
		Title:     "Backwards",
		EventType: models.EventTypeActivity,
		StartAt:   start,
		EndAt:     start.Add(-time.Hour),
	}, "admin-1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), EventRequest{
		Title:     "Unknown type",
		EventType: "PARTY",
		StartAt:   start,
		EndAt:     start,
	}, "admin-1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	missing := "22222222-2222-2222-2222-222222222222"
	_, err = svc.Create(context.Background(), EventRequest{
		Title:     "Orphan",
		EventType: models.EventTypeDeadline,
		StartAt:   start,
		EndAt:     start,
		CourseID:  &missing,
	}, "admin-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEventServiceListRejectsInvertedWindow(t *testing.T) {
	svc, repo, _ := newEventFixture()
	from := time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	_, _, err := svc.List(context.Background(), models.EventFilter{From: &from, To: &to})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	to = from.AddDate(0, 1, 0)
	_, page, err := svc.List(context.Background(), models.EventFilter{From: &from, To: &to, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, &to, repo.lastFilter.To)
}

func TestEventServiceUpdateAndDeleteMissing(t *testing.T) {
	svc, _, _ := newEventFixture()
	start := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)

	_, err := svc.Update(context.Background(), "nope", EventRequest{
		Title:     "Winter break",
		EventType: models.EventTypeHoliday,
		StartAt:   start,
		EndAt:     start.AddDate(0, 0, 10),
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "nope")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
