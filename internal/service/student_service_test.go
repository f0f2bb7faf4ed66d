package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.Student
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, s := range m.students {
		if s.UserID != nil && *s.UserID == userID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByStudentNumber(ctx context.Context, number, excludeID string) (bool, error) {
	for id, s := range m.students {
		if s.StudentNumber == number && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]*models.Student)
	}
	student.ID = "s-new"
	stored := *student
	m.students[student.ID] = &stored
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *student
	m.students[student.ID] = &stored
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

func strPtr(v string) *string { return &v }

func TestStudentServiceCreateUpdate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", StudentNumber: "2024-001", UserID: strPtr("u1"), Active: true},
	}}
	svc := NewStudentService(repo, nil, zap.NewNop())

	created, err := svc.Create(context.Background(), StudentRequest{
		StudentNumber: "2024-002", FullName: "Luis Perez", Email: "LUIS@campus.edu", Program: "CS", Semester: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "luis@campus.edu", created.Email)
	assert.True(t, created.Active)

	_, err = svc.Create(context.Background(), StudentRequest{
		StudentNumber: "2024-001", FullName: "Dup", Email: "dup@campus.edu", Program: "CS", Semester: 1,
	})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), "s1", StudentRequest{
		StudentNumber: "2024-001", FullName: "Ana Ruiz", Email: "ana@campus.edu", Program: "Math", Semester: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Math", updated.Program)
	assert.Equal(t, 3, updated.Semester)

	_, err = svc.Update(context.Background(), "s1", StudentRequest{StudentNumber: "2024-001"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceMe(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", UserID: strPtr("u1")}}}
	svc := NewStudentService(repo, nil, nil)

	me, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", me.ID)

	_, err = svc.Me(context.Background(), "u2")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDeleteMissing(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, nil, nil)
	err := svc.Delete(context.Background(), "nope")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
