package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vigilauth/vigil/internal/config"
	"github.com/vigilauth/vigil/internal/models"
	pkgauth "github.com/vigilauth/vigil/pkg/auth"
	pkglogger "github.com/vigilauth/vigil/pkg/logger"
)

// UserRepository defines the user lookups the auth flow needs.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// AnomalyEngine is the brute-force decision engine consumed by the gate.
type AnomalyEngine interface {
	RecordFailedAttempt(ctx context.Context, ipAddress, userID string) AttemptResult
	IsIPBlocked(ctx context.Context, ipAddress string) bool
	IsUserSuspended(ctx context.Context, userID string) bool
	GetUserFailedAttempts(ctx context.Context, userID string) int
}

// SessionIssuer creates the durable session backing an issued token.
type SessionIssuer interface {
	CreateSession(ctx context.Context, userID string) (*models.Session, error)
}

// TokenMinter signs the JWT handed to the client.
type TokenMinter interface {
	GenerateToken(userID, email, claimToken string) (string, error)
}

// AuthService orchestrates the login flow around the anomaly engine:
// origin check before any credential work, failure recording with
// progressive messaging, and a suspension check that correct credentials
// cannot bypass.
type AuthService struct {
	repo        UserRepository
	engine      AnomalyEngine
	sessions    SessionIssuer
	tokens      TokenMinter
	anomalyCfg  config.AnomalyConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(
	repo UserRepository,
	engine AnomalyEngine,
	sessions SessionIssuer,
	tokens TokenMinter,
	anomalyCfg config.AnomalyConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		engine:      engine,
		sessions:    sessions,
		tokens:      tokens,
		anomalyCfg:  anomalyCfg,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// LoginResult carries the issued token on success.
type LoginResult struct {
	Token string
	User  *models.User
}

// Login authenticates a user with brute-force protection.
//
// Order matters: the origin check runs before any credential work so a
// blocked origin gets no hashing time and no timing signal about identity
// validity. Unknown identities count only against the origin, never the
// account, and always fail with the generic invalid-credentials error.
func (s *AuthService) Login(ctx context.Context, identity, password, ipAddress string) (*LoginResult, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))

	// Origin check strictly first: even a garbage identity from a blocked
	// origin gets the block response, not a credential error.
	if s.engine.IsIPBlocked(ctx, ipAddress) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked",
			IPAddress:     ipAddress,
			FailureReason: "ip_blocked",
			Success:       false,
		})
		return nil, models.ErrIPBlocked
	}

	user, err := s.resolveIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown identity: origin-scope signal only. Surfacing anything
			// other than the generic error would confirm which identities
			// exist.
			s.engine.RecordFailedAttempt(ctx, ipAddress, "")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     ipAddress,
				FailureReason: "unknown_identity",
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to resolve identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		// Count before recording: the threshold message switches on from the
		// attempt after the one that crossed it.
		priorFailures := s.engine.GetUserFailedAttempts(ctx, user.ID)
		s.engine.RecordFailedAttempt(ctx, ipAddress, user.ID)

		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})

		if priorFailures >= s.anomalyCfg.AccountAttemptThreshold {
			return nil, models.ErrAccountSuspended
		}
		return nil, models.ErrInvalidCredentials
	}

	// Correct credentials never bypass an active suspension.
	if s.engine.IsUserSuspended(ctx, user.ID) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_suspended",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "user_suspended",
			Success:       false,
		})
		return nil, models.ErrUserSuspended
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrSessionCreation
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, session.ClaimToken)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrSessionCreation
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("failed to update last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &LoginResult{Token: token, User: user}, nil
}

// resolveIdentity maps a submitted identity to an account. Identities with
// an "@" are treated as emails, everything else as usernames.
func (s *AuthService) resolveIdentity(ctx context.Context, identity string) (*models.User, error) {
	if strings.Contains(identity, "@") {
		return s.repo.GetByEmail(ctx, identity)
	}
	return s.repo.GetByUsername(ctx, identity)
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(strings.TrimSpace(username))

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check email uniqueness", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check username uniqueness", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         "user",
		IsActive:     true,
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered",
		slog.String("user_id", createdUser.ID),
		slog.String("email", pkglogger.SanitizedEmail(createdUser.Email)))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID)

	return createdUser, nil
}
