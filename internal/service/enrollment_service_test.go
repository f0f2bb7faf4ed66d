package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// memoryEnrollmentRepo mirrors the capacity rules of the SQL repository.
type memoryEnrollmentRepo struct {
	capacity map[string]int
	items    map[string]*models.Enrollment
	seq      int
}

func newMemoryEnrollmentRepo(capacity map[string]int) *memoryEnrollmentRepo {
	return &memoryEnrollmentRepo{capacity: capacity, items: make(map[string]*models.Enrollment)}
}

func (m *memoryEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	out, _ := m.ListByStudent(ctx, filter.StudentID)
	return out, len(out), nil
}

func (m *memoryEnrollmentRepo) ListByStudent(ctx context.Context, studentID string, statuses ...models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	out := []models.EnrollmentDetail{}
	for _, e := range m.sorted() {
		if studentID != "" && e.StudentID != studentID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, e.Status) {
			continue
		}
		out = append(out, models.EnrollmentDetail{Enrollment: *e})
	}
	return out, nil
}

func (m *memoryEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.items[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryEnrollmentRepo) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	capacity, ok := m.capacity[enrollment.CourseID]
	if !ok {
		return sql.ErrNoRows
	}
	var existing *models.Enrollment
	for _, e := range m.items {
		if e.StudentID == enrollment.StudentID && e.CourseID == enrollment.CourseID {
			existing = e
		}
	}
	if existing != nil && existing.Status != models.EnrollmentStatusDropped {
		*enrollment = *existing
		return models.ErrDuplicate
	}
	m.seq++
	enrollment.ID = fmt.Sprintf("e%d", m.seq)
	if existing != nil {
		enrollment.ID = existing.ID
	}
	enrollment.EnrolledAt = time.Unix(int64(m.seq), 0)
	enrollment.Status = models.EnrollmentStatusWaitlisted
	if m.countEnrolled(enrollment.CourseID) < capacity {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	stored := *enrollment
	m.items[enrollment.ID] = &stored
	return nil
}

func (m *memoryEnrollmentRepo) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) error {
	e, ok := m.items[id]
	if !ok || e.Status != from {
		return models.ErrStaleStatus
	}
	e.Status = to
	return nil
}

func (m *memoryEnrollmentRepo) Activate(ctx context.Context, enrollment *models.Enrollment) error {
	if m.countEnrolled(enrollment.CourseID) >= m.capacity[enrollment.CourseID] {
		return models.ErrCourseFull
	}
	e, ok := m.items[enrollment.ID]
	if !ok || e.Status != models.EnrollmentStatusWaitlisted {
		return models.ErrStaleStatus
	}
	e.Status = models.EnrollmentStatusEnrolled
	enrollment.Status = e.Status
	return nil
}

func (m *memoryEnrollmentRepo) PromoteNextWaitlisted(ctx context.Context, courseID string) (*models.Enrollment, error) {
	if m.countEnrolled(courseID) >= m.capacity[courseID] {
		return nil, nil
	}
	for _, e := range m.sorted() {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusWaitlisted {
			e.Status = models.EnrollmentStatusEnrolled
			clone := *e
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memoryEnrollmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *memoryEnrollmentRepo) countEnrolled(courseID string) int {
	n := 0
	for _, e := range m.items {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			n++
		}
	}
	return n
}

func (m *memoryEnrollmentRepo) sorted() []*models.Enrollment {
	out := make([]*models.Enrollment, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return out
}

func containsStatus(statuses []models.EnrollmentStatus, status models.EnrollmentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	notes map[string][]Note
}

func (r *recordingNotifier) Notify(ctx context.Context, userID string, note Note) error {
	if r.notes == nil {
		r.notes = make(map[string][]Note)
	}
	r.notes[userID] = append(r.notes[userID], note)
	return nil
}

const (
	courseA   = "11111111-1111-1111-1111-111111111111"
	studentS1 = "aaaaaaaa-0000-0000-0000-000000000001"
	studentS2 = "aaaaaaaa-0000-0000-0000-000000000002"
	studentS3 = "aaaaaaaa-0000-0000-0000-000000000003"
)

func newEnrollmentFixture(capacity int) (*EnrollmentService, *memoryEnrollmentRepo, *recordingNotifier) {
	repo := newMemoryEnrollmentRepo(map[string]int{courseA: capacity})
	courses := &mockCourseRepo{courses: map[string]*models.Course{courseA: {ID: courseA, Code: "CS101", Capacity: capacity, Active: true}}}
	students := &mockStudentRepo{students: map[string]*models.Student{
		studentS1: {ID: studentS1, UserID: strPtr("user-1")},
		studentS2: {ID: studentS2, UserID: strPtr("user-2")},
		studentS3: {ID: studentS3},
	}}
	notifier := &recordingNotifier{}
	svc := NewEnrollmentService(repo, courses, students, notifier, nil, nil, nil)
	return svc, repo, notifier
}

func TestEnrollmentServiceWaitlistsBeyondCapacity(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1)

	first, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, first.Status)

	second, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS2, CourseID: courseA})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, second.Status)

	_, err = svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceDropPromotesWaitlist(t *testing.T) {
	svc, repo, notifier := newEnrollmentFixture(1)
	first, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS2, CourseID: courseA})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), first.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusDropped})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.items[second.ID].Status)
	require.Len(t, notifier.notes["user-2"], 1)
	assert.Equal(t, models.NotificationCategoryAcademic, notifier.notes["user-2"][0].Category)
	assert.Contains(t, notifier.notes["user-2"][0].Title, "CS101")
}

func TestEnrollmentServiceRejectsInvalidTransition(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(2)
	enrollment, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), enrollment.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusWaitlisted})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)

	_, err = svc.UpdateStatus(context.Background(), enrollment.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusCompleted})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), enrollment.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusDropped})
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceDeleteFreesSeat(t *testing.T) {
	svc, repo, notifier := newEnrollmentFixture(1)
	first, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)
	waiting, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS3, CourseID: courseA})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), first.ID))
	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.items[waiting.ID].Status)
	// student without an account is promoted silently
	assert.Empty(t, notifier.notes)

	err = svc.Delete(context.Background(), first.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceListMine(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(5)
	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)

	mine, err := svc.ListMine(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = svc.ListMine(context.Background(), "nobody")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceReenrollsAfterDrop(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(1)
	first, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), first.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusDropped})
	require.NoError(t, err)

	again, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, again.Status)
	assert.Len(t, repo.items, 1)

	_, err = svc.UpdateStatus(context.Background(), again.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusCompleted})
	require.NoError(t, err)
	existing, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.NotNil(t, existing)
	assert.Equal(t, models.EnrollmentStatusCompleted, existing.Status)
}

func TestEnrollmentServiceManualPromotionRespectsCapacity(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(1)
	first, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)
	waiting, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS2, CourseID: courseA})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusWaitlisted, waiting.Status)

	_, err = svc.UpdateStatus(context.Background(), waiting.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusEnrolled})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "course is full", appErr.Message)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, repo.items[waiting.ID].Status)

	_, err = svc.UpdateStatus(context.Background(), first.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusCompleted})
	require.NoError(t, err)
	promoted, err := svc.UpdateStatus(context.Background(), waiting.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusEnrolled})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, promoted.Status)
}

func TestEnrollmentServiceStaleTransitionConflicts(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(2)
	enrollment, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: studentS1, CourseID: courseA})
	require.NoError(t, err)

	stale := &staleEnrollmentRepo{memoryEnrollmentRepo: repo, moveTo: models.EnrollmentStatusDropped}
	svc.repo = stale
	_, err = svc.UpdateStatus(context.Background(), enrollment.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusCompleted})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.EnrollmentStatusDropped, repo.items[enrollment.ID].Status)
}

// staleEnrollmentRepo changes the stored status between the read and the write.
type staleEnrollmentRepo struct {
	*memoryEnrollmentRepo
	moveTo models.EnrollmentStatus
}

func (r *staleEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	found, err := r.memoryEnrollmentRepo.FindByID(ctx, id)
	if err == nil {
		r.items[id].Status = r.moveTo
	}
	return found, err
}
