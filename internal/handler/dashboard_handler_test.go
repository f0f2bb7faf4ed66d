package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeDashboardService struct {
	student    *dto.StudentDashboard
	studentErr error
	admin      *dto.AdminDashboard
	hit        bool
	lastUser   string
}

func (f *fakeDashboardService) Student(_ context.Context, userID string) (*dto.StudentDashboard, bool, error) {
	f.lastUser = userID
	return f.student, f.hit, f.studentErr
}

func (f *fakeDashboardService) Admin(context.Context) (*dto.AdminDashboard, bool, error) {
	return f.admin, f.hit, nil
}

func TestDashboardHandlerStudent(t *testing.T) {
	svc := &fakeDashboardService{student: &dto.StudentDashboard{Today: "TUESDAY", UnreadNotifications: 2}, hit: true}
	handler := NewDashboardHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/dashboard/student", nil, studentClaims)
	handler.Student(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, studentClaims.UserID, svc.lastUser)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, string(envelope.Data), `"today":"TUESDAY"`)
}

func TestDashboardHandlerStudentWithoutProfile(t *testing.T) {
	svc := &fakeDashboardService{studentErr: appErrors.Clone(appErrors.ErrNotFound, "student profile not found")}
	handler := NewDashboardHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/dashboard/student", nil, studentClaims)
	handler.Student(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardHandlerAdmin(t *testing.T) {
	svc := &fakeDashboardService{admin: &dto.AdminDashboard{ActiveStudents: 120, PendingInscriptions: 7}}
	handler := NewDashboardHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/dashboard/admin", nil, adminClaims)
	handler.Admin(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
	assert.Contains(t, string(envelope.Data), `"active_students":120`)
}

func TestDashboardHandlerNilService(t *testing.T) {
	handler := NewDashboardHandler(nil)

	c, rec := newTestContext(http.MethodGet, "/dashboard/admin", nil, adminClaims)
	handler.Admin(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
