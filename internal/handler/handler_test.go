package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

type responseEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newTestContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, _ := json.Marshal(v)
		reader = bytes.NewReader(payload)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

const (
	recordID  = "5b1f0d6e-8c2a-4f3b-9e7d-2a6c4b8e0f13"
	studentID = "9c3e7a21-4d5b-4c8f-a1e2-7f6d5c4b3a29"
	courseID  = "e4a2c6b8-1f3d-4e5a-8b7c-9d0e1f2a3b4c"
)

var (
	adminClaims   = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@campus.test"}
	studentClaims = &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, Email: "ana@campus.test", FullName: "Ana Ruiz"}
)
