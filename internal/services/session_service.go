package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vigilauth/vigil/internal/models"
)

// SessionRepository defines the durable session operations the service needs.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetActiveByClaimToken(ctx context.Context, claimToken string) (*models.Session, error)
	Invalidate(ctx context.Context, claimToken string) error
	InvalidateAllForUser(ctx context.Context, userID string) error
}

// SessionService issues and validates opaque sessions. The claim token is
// what the JWT carries; revoking the row kills the token without any JWT
// denylist.
type SessionService struct {
	repo   SessionRepository
	expiry time.Duration
	logger *slog.Logger
}

func NewSessionService(repo SessionRepository, expiry time.Duration, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		expiry: expiry,
		logger: logger,
	}
}

func (s *SessionService) CreateSession(ctx context.Context, userID string) (*models.Session, error) {
	claimToken, err := generateClaimToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate claim token: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:            uuid.New().String(),
		UserID:        userID,
		ClaimToken:    claimToken,
		LastClaimedAt: &now,
		ExpiresAt:     now.Add(s.expiry),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrSessionCreation
	}

	return session, nil
}

// ValidateSession returns the active session for a claim token, or
// ErrUnauthorized when no active, unexpired session matches.
func (s *SessionService) ValidateSession(ctx context.Context, claimToken string) (*models.Session, error) {
	session, err := s.repo.GetActiveByClaimToken(ctx, claimToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to validate session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return session, nil
}

func (s *SessionService) InvalidateSession(ctx context.Context, claimToken string) error {
	if err := s.repo.Invalidate(ctx, claimToken); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to invalidate session", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *SessionService) InvalidateAllUserSessions(ctx context.Context, userID string) error {
	if err := s.repo.InvalidateAllForUser(ctx, userID); err != nil {
		s.logger.Error("failed to invalidate user sessions", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func generateClaimToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
