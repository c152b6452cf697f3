package handlers

import (
	"context"
	"net/http"

	"github.com/vigilauth/vigil/internal/auth"
	"github.com/vigilauth/vigil/internal/models"
)

func requestWithUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), auth.UserContextKey, user))
}

func requestWithSession(r *http.Request, session *models.Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), auth.SessionContextKey, session))
}
