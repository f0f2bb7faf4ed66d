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

type fakeInscriptionService struct {
	calls      []string
	lastFilter models.InscriptionFilter
	lastUser   string
	decideErr  error
}

func (f *fakeInscriptionService) List(_ context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, *models.Pagination, error) {
	f.calls = append(f.calls, "list")
	f.lastFilter = filter
	return []models.InscriptionDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeInscriptionService) ListMine(_ context.Context, userID string, filter models.InscriptionFilter) ([]models.InscriptionDetail, *models.Pagination, error) {
	f.calls = append(f.calls, "mine")
	f.lastUser = userID
	f.lastFilter = filter
	return []models.InscriptionDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeInscriptionService) Create(_ context.Context, userID string, req service.CreateInscriptionRequest) (*models.Inscription, error) {
	f.calls = append(f.calls, "create")
	f.lastUser = userID
	return &models.Inscription{ID: "i1", CourseID: req.CourseID, Status: models.InscriptionStatusPending}, nil
}

func (f *fakeInscriptionService) Decide(_ context.Context, id string, req service.DecideInscriptionRequest, actorID string) (*service.InscriptionResult, error) {
	f.calls = append(f.calls, "decide")
	f.lastUser = actorID
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	return &service.InscriptionResult{Inscription: &models.Inscription{ID: id, Status: req.Status}}, nil
}

func (f *fakeInscriptionService) Cancel(_ context.Context, id, userID string) (*models.Inscription, error) {
	f.calls = append(f.calls, "cancel")
	f.lastUser = userID
	return &models.Inscription{ID: id, Status: models.InscriptionStatusCancelled}, nil
}

func (f *fakeInscriptionService) Delete(context.Context, string) error {
	f.calls = append(f.calls, "delete")
	return nil
}

func TestInscriptionHandlerListByRole(t *testing.T) {
	svc := &fakeInscriptionService{}
	handler := NewInscriptionHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/inscriptions?studentId="+studentID+"&status=pending", nil, adminClaims)
	handler.List(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"list"}, svc.calls)
	assert.Equal(t, studentID, svc.lastFilter.StudentID)
	assert.Equal(t, models.InscriptionStatusPending, svc.lastFilter.Status)

	svc.calls = nil
	c, rec = newTestContext(http.MethodGet, "/inscriptions?studentId="+studentID, nil, studentClaims)
	handler.List(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"mine"}, svc.calls)
	assert.Equal(t, studentClaims.UserID, svc.lastUser)
	assert.Empty(t, svc.lastFilter.StudentID)
}

func TestInscriptionHandlerCreate(t *testing.T) {
	svc := &fakeInscriptionService{}
	handler := NewInscriptionHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/inscriptions", service.CreateInscriptionRequest{CourseID: "c1"}, studentClaims)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, studentClaims.UserID, svc.lastUser)
}

func TestInscriptionHandlerDecide(t *testing.T) {
	svc := &fakeInscriptionService{}
	handler := NewInscriptionHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/inscriptions/i1", service.DecideInscriptionRequest{Status: models.InscriptionStatusApproved}, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: recordID}}
	handler.Decide(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminClaims.UserID, svc.lastUser)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"status":"APPROVED"`)

	svc.decideErr = appErrors.Clone(appErrors.ErrConflict, "inscription is already APPROVED")
	c, rec = newTestContext(http.MethodPut, "/inscriptions/i1", service.DecideInscriptionRequest{Status: models.InscriptionStatusRejected}, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: recordID}}
	handler.Decide(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInscriptionHandlerDeleteByRole(t *testing.T) {
	svc := &fakeInscriptionService{}
	handler := NewInscriptionHandler(svc)

	c, rec := newTestContext(http.MethodDelete, "/inscriptions/i1", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: recordID}}
	handler.Delete(c)
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodDelete, "/inscriptions/i1", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: recordID}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{"cancel", "delete"}, svc.calls)
}
