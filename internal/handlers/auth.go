package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vigilauth/vigil/internal/auth"
	"github.com/vigilauth/vigil/internal/models"
	"github.com/vigilauth/vigil/internal/services"
	pkghttp "github.com/vigilauth/vigil/pkg/http"
)

// AuthServiceInterface defines the auth business logic consumed by the handler.
type AuthServiceInterface interface {
	Login(ctx context.Context, identity, password, ipAddress string) (*services.LoginResult, error)
	Register(ctx context.Context, email, username, password string) (*models.User, error)
}

// SessionInvalidator deactivates the durable session behind a bearer token.
type SessionInvalidator interface {
	InvalidateSession(ctx context.Context, claimToken string) error
}

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionInvalidator
	ipConfig *pkghttp.IPConfig
}

func NewAuthHandler(service AuthServiceInterface, sessions SessionInvalidator, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login. Identity is an email
// address or a username.
type LoginRequest struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// UserResponse is the public projection of a user.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ClientIP(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), req.Identity, req.Password, ipAddress)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrIPBlocked):
			pkghttp.WriteForbidden(w, "IP address is blocked due to excessive failed login attempts")
		case errors.Is(err, models.ErrUserSuspended):
			pkghttp.WriteTooManyRequests(w, "User temporarily suspended due to too many failed login attempts")
		case errors.Is(err, models.ErrAccountSuspended):
			pkghttp.WriteUnauthorized(w, "Account Suspended!")
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
		case errors.Is(err, models.ErrSessionCreation):
			pkghttp.WriteInternalError(w, "Failed to create session")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   result.Token,
	})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteBadRequest(w, "User already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration data")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    toUserResponse(user),
	})
}

// Logout handles POST /auth/logout. The session to invalidate comes from the
// bearer middleware.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSessionFromContext(r)
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authorization header required")
		return
	}

	if err := h.sessions.InvalidateSession(r.Context(), session.ClaimToken); err != nil {
		pkghttp.WriteInternalError(w, "Failed to logout")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authorization header required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(user),
	})
}
