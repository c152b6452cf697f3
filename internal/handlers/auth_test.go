package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigilauth/vigil/internal/models"
	"github.com/vigilauth/vigil/internal/services"
	pkghttp "github.com/vigilauth/vigil/pkg/http"
)

type mockAuthService struct {
	loginResult *services.LoginResult
	loginErr    error
	loginIP     string

	registerUser *models.User
	registerErr  error
}

func (m *mockAuthService) Login(ctx context.Context, identity, password, ipAddress string) (*services.LoginResult, error) {
	m.loginIP = ipAddress
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResult, nil
}

func (m *mockAuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return m.registerUser, nil
}

type mockSessionInvalidator struct {
	invalidated []string
	err         error
}

func (m *mockSessionInvalidator) InvalidateSession(ctx context.Context, claimToken string) error {
	if m.err != nil {
		return m.err
	}
	m.invalidated = append(m.invalidated, claimToken)
	return nil
}

func newAuthHandler(service AuthServiceInterface, sessions SessionInvalidator) *AuthHandler {
	return NewAuthHandler(service, sessions, &pkghttp.IPConfig{})
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:51234"
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLogin_Success(t *testing.T) {
	service := &mockAuthService{
		loginResult: &services.LoginResult{
			Token: "signed.jwt.token",
			User:  &models.User{ID: "u1", Email: "user@example.com"},
		},
	}
	h := newAuthHandler(service, &mockSessionInvalidator{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Identity: "user@example.com", Password: "correct-horse"})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "signed.jwt.token", body["token"])
	assert.Equal(t, "198.51.100.7", service.loginIP)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newAuthHandler(&mockAuthService{loginErr: models.ErrInvalidCredentials}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Identity: "user@example.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])
}

func TestLogin_AccountSuspended(t *testing.T) {
	h := newAuthHandler(&mockAuthService{loginErr: models.ErrAccountSuspended}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Identity: "user@example.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Account Suspended!", decodeBody(t, rec)["error"])
}

func TestLogin_UserSuspended(t *testing.T) {
	h := newAuthHandler(&mockAuthService{loginErr: models.ErrUserSuspended}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Identity: "user@example.com", Password: "correct-horse"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "User temporarily suspended due to too many failed login attempts", decodeBody(t, rec)["error"])
}

func TestLogin_IPBlocked(t *testing.T) {
	h := newAuthHandler(&mockAuthService{loginErr: models.ErrIPBlocked}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Identity: "user@example.com", Password: "anything"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "IP address is blocked due to excessive failed login attempts", decodeBody(t, rec)["error"])
}

func TestLogin_SessionCreationFailure(t *testing.T) {
	h := newAuthHandler(&mockAuthService{loginErr: models.ErrSessionCreation}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Identity: "user@example.com", Password: "correct-horse"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to create session", decodeBody(t, rec)["error"])
}

func TestLogin_MissingFields(t *testing.T) {
	h := newAuthHandler(&mockAuthService{}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Identity: "user@example.com"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "Password")
}

func TestLogin_InvalidBody(t *testing.T) {
	h := newAuthHandler(&mockAuthService{}, &mockSessionInvalidator{})

	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeBody(t, rec)["error"])
}

func TestRegister_Success(t *testing.T) {
	created := &models.User{
		ID:        "u1",
		Email:     "new@example.com",
		Username:  "newuser",
		Role:      "user",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	h := newAuthHandler(&mockAuthService{registerUser: created}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{
		Email:    "new@example.com",
		Username: "newuser",
		Password: "sufficiently-long",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "User registered successfully", body["message"])

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u1", user["id"])
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, "newuser", user["username"])
	assert.NotContains(t, user, "password_hash")
}

func TestRegister_DuplicateUser(t *testing.T) {
	h := newAuthHandler(&mockAuthService{registerErr: models.ErrConflict}, &mockSessionInvalidator{})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{
		Email:    "taken@example.com",
		Username: "taken",
		Password: "sufficiently-long",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decodeBody(t, rec)["error"])
}

func TestRegister_ValidationFailures(t *testing.T) {
	h := newAuthHandler(&mockAuthService{}, &mockSessionInvalidator{})

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"invalid email", RegisterRequest{Email: "not-an-email", Username: "validuser", Password: "long-enough"}},
		{"short username", RegisterRequest{Email: "a@example.com", Username: "ab", Password: "long-enough"}},
		{"short password", RegisterRequest{Email: "a@example.com", Username: "validuser", Password: "tiny"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Register, "/auth/register", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogout_InvalidatesSession(t *testing.T) {
	sessions := &mockSessionInvalidator{}
	h := newAuthHandler(&mockAuthService{}, sessions)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req = requestWithSession(req, &models.Session{ID: "s1", UserID: "u1", ClaimToken: "ct-1"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", decodeBody(t, rec)["message"])
	assert.Equal(t, []string{"ct-1"}, sessions.invalidated)
}

func TestLogout_NoSession(t *testing.T) {
	h := newAuthHandler(&mockAuthService{}, &mockSessionInvalidator{})

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest("POST", "/auth/logout", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header required", decodeBody(t, rec)["error"])
}

func TestMe_ReturnsCurrentUser(t *testing.T) {
	h := newAuthHandler(&mockAuthService{}, &mockSessionInvalidator{})

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req = requestWithUser(req, &models.User{ID: "u1", Email: "user@example.com", Username: "user1", Role: "user"})
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	user, ok := decodeBody(t, rec)["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u1", user["id"])
}
