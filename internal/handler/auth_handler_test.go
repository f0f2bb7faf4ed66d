package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeAuthService struct {
	loginResp  *models.LoginResponse
	loginErr   error
	lastLogin  models.LoginRequest
	logoutUser string
	logoutReq  models.LogoutRequest
	changeErr  error
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	return f.loginResp, f.loginErr
}

func (f *fakeAuthService) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "rotated", RefreshToken: "next"}, nil
}

func (f *fakeAuthService) Logout(_ context.Context, userID string, req models.LogoutRequest, _ service.SessionMeta) error {
	f.logoutUser = userID
	f.logoutReq = req
	return nil
}

func (f *fakeAuthService) ChangePassword(context.Context, string, models.ChangePasswordRequest, service.SessionMeta) error {
	return f.changeErr
}

func (f *fakeAuthService) AccessTokenTTL() time.Duration { return 15 * time.Minute }

func TestAuthHandlerLoginSetsCookie(t *testing.T) {
	svc := &fakeAuthService{loginResp: &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}}
	handler := NewAuthHandler(svc, AuthCookie{Name: "portal_session"})

	c, rec := newTestContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "ana@campus.test", Password: "secret123"}, nil)
	c.Request.Header.Set("User-Agent", "test-agent")
	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-agent", svc.lastLogin.UserAgent)
	cookie := rec.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, "portal_session=access"))
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "Max-Age=900")
	assert.Contains(t, cookie, "SameSite=Lax")
}

func TestAuthHandlerLoginWithoutCookieName(t *testing.T) {
	svc := &fakeAuthService{loginResp: &models.LoginResponse{AccessToken: "access"}}
	handler := NewAuthHandler(svc, AuthCookie{})

	c, rec := newTestContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "ana@campus.test", Password: "secret123"}, nil)
	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{loginErr: appErrors.ErrInvalidCredentials}, AuthCookie{Name: "portal_session"})

	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":`, nil)
	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "ana@campus.test", Password: "wrong"}, nil)
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, envelope.Error.Code)
}

func TestAuthHandlerLogoutClearsCookie(t *testing.T) {
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc, AuthCookie{Name: "portal_session"})

	c, rec := newTestContext(http.MethodPost, "/auth/logout", models.LogoutRequest{RefreshToken: "refresh"}, studentClaims)
	handler.Logout(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, studentClaims.UserID, svc.logoutUser)
	assert.Equal(t, "refresh", svc.logoutReq.RefreshToken)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestAuthHandlerRequiresClaims(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{}, AuthCookie{})

	c, rec := newTestContext(http.MethodPost, "/auth/change-password", models.ChangePasswordRequest{OldPassword: "a", NewPassword: "b"}, nil)
	handler.ChangePassword(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/auth/me", nil, nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{}, AuthCookie{})

	c, rec := newTestContext(http.MethodGet, "/auth/me", nil, studentClaims)
	handler.Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"user-1","email":"ana@campus.test","full_name":"Ana Ruiz","role":"STUDENT"}`, string(decodeEnvelope(t, rec).Data))
}
