package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeNotificationService struct {
	lastFilter models.NotificationFilter
	lastSend   service.SendNotificationRequest
	lastUser   string
	deleteErr  error
}

func (f *fakeNotificationService) List(_ context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, int, error) {
	f.lastFilter = filter
	return []models.Notification{{ID: "n1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, 4, nil
}

func (f *fakeNotificationService) Send(_ context.Context, req service.SendNotificationRequest) (int, error) {
	f.lastSend = req
	return 12, nil
}

func (f *fakeNotificationService) MarkRead(_ context.Context, id, userID string) (*models.Notification, error) {
	f.lastUser = userID
	return &models.Notification{ID: id, Read: true}, nil
}

func (f *fakeNotificationService) MarkAllRead(_ context.Context, userID string) (int64, error) {
	f.lastUser = userID
	return 3, nil
}

func (f *fakeNotificationService) Delete(_ context.Context, _ string, userID string) error {
	f.lastUser = userID
	return f.deleteErr
}

func TestNotificationHandlerListUnread(t *testing.T) {
	svc := &fakeNotificationService{}
	handler := NewNotificationHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/notifications?unread=true&category=payment", nil, studentClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, studentClaims.UserID, svc.lastFilter.UserID)
	assert.True(t, svc.lastFilter.UnreadOnly)
	assert.Equal(t, models.NotificationCategoryPayment, svc.lastFilter.Category)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(4), envelope.Meta["unread_count"])
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestNotificationHandlerSend(t *testing.T) {
	svc := &fakeNotificationService{}
	handler := NewNotificationHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/notifications", service.SendNotificationRequest{
		Role:    models.RoleStudent,
		Title:   "Campus closed",
		Message: "Holiday on Monday",
	}, adminClaims)
	handler.Send(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.RoleStudent, svc.lastSend.Role)
	assert.JSONEq(t, `{"recipients":12}`, string(decodeEnvelope(t, rec).Data))
}

func TestNotificationHandlerInboxActions(t *testing.T) {
	svc := &fakeNotificationService{}
	handler := NewNotificationHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/notifications/read-all", nil, studentClaims)
	handler.MarkAllRead(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":3}`, string(decodeEnvelope(t, rec).Data))

	c, rec = newTestContext(http.MethodPut, "/notifications/n1/read", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: recordID}}
	handler.MarkRead(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, studentClaims.UserID, svc.lastUser)

	svc.deleteErr = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	c, rec = newTestContext(http.MethodDelete, "/notifications/n1", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: recordID}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
