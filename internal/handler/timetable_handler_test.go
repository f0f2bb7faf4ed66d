package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeTimetableService struct {
	lastFilter models.ClassSessionFilter
	timetable  *dto.StudentTimetable
	hit        bool
	err        error
}

func (f *fakeTimetableService) List(_ context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.ClassSessionDetail{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, f.err
}

func (f *fakeTimetableService) Get(context.Context, string) (*models.ClassSessionDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "class session not found")
}

func (f *fakeTimetableService) Create(context.Context, service.ClassSessionRequest) (*models.ClassSessionDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "room already booked")
}

func (f *fakeTimetableService) Update(context.Context, string, service.ClassSessionRequest) (*models.ClassSessionDetail, error) {
	return nil, f.err
}

func (f *fakeTimetableService) Delete(context.Context, string) error { return f.err }

func (f *fakeTimetableService) StudentTimetable(context.Context, string) (*dto.StudentTimetable, bool, error) {
	return f.timetable, f.hit, f.err
}

type fakeExportService struct {
	lastFormat string
	file       *service.ExportFile
	openErr    error
}

func (f *fakeExportService) ExportTimetable(_ context.Context, _ string, format string) (*dto.TimetableExport, error) {
	f.lastFormat = format
	return &dto.TimetableExport{Format: format, URL: "/api/exports/token"}, nil
}

func (f *fakeExportService) Open(string) (*service.ExportFile, error) {
	return f.file, f.openErr
}

func TestTimetableHandlerListFilters(t *testing.T) {
	svc := &fakeTimetableService{}
	handler := NewTimetableHandler(svc, &fakeExportService{})

	c, rec := newTestContext(http.MethodGet, "/timetable?day=monday&room=+A-101+&courseId="+courseID+"&limit=5", nil, adminClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MONDAY", svc.lastFilter.DayOfWeek)
	assert.Equal(t, "A-101", svc.lastFilter.Room)
	assert.Equal(t, courseID, svc.lastFilter.CourseID)
	assert.Equal(t, 5, svc.lastFilter.PageSize)
	assert.Equal(t, 1, svc.lastFilter.Page)
}

func TestTimetableHandlerCreateConflict(t *testing.T) {
	handler := NewTimetableHandler(&fakeTimetableService{}, &fakeExportService{})

	c, rec := newTestContext(http.MethodPost, "/timetable", service.ClassSessionRequest{CourseID: "c1"}, adminClaims)
	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTimetableHandlerStudentCacheMeta(t *testing.T) {
	svc := &fakeTimetableService{timetable: &dto.StudentTimetable{StudentID: "s1", SessionCount: 3}, hit: true}
	handler := NewTimetableHandler(svc, &fakeExportService{})

	c, rec := newTestContext(http.MethodGet, "/timetable/student", nil, studentClaims)
	handler.Student(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, string(envelope.Data), `"session_count":3`)
}

func TestTimetableHandlerExportDefaultsToCSV(t *testing.T) {
	exports := &fakeExportService{}
	handler := NewTimetableHandler(&fakeTimetableService{}, exports)

	c, rec := newTestContext(http.MethodGet, "/timetable/student/export", nil, studentClaims)
	handler.Export(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", exports.lastFormat)

	c, _ = newTestContext(http.MethodGet, "/timetable/student/export?format=pdf", nil, studentClaims)
	handler.Export(c)
	assert.Equal(t, "pdf", exports.lastFormat)
}

func TestTimetableHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.csv")
	require.NoError(t, os.WriteFile(path, []byte("day,start\nMONDAY,08:00\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	exports := &fakeExportService{file: &service.ExportFile{File: file, Name: "timetable.csv", ContentType: "text/csv"}}
	handler := NewTimetableHandler(&fakeTimetableService{}, exports)

	c, rec := newTestContext(http.MethodGet, "/exports/token", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "day,start\nMONDAY,08:00\n", rec.Body.String())
}

func TestTimetableHandlerDownloadInvalidToken(t *testing.T) {
	exports := &fakeExportService{openErr: appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")}
	handler := NewTimetableHandler(&fakeTimetableService{}, exports)

	c, rec := newTestContext(http.MethodGet, "/exports/bad", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
