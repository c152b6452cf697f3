package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/vigilauth/vigil/internal/config"
	"github.com/vigilauth/vigil/internal/models"
)

// AttemptStore is the transient, rolling-window event store.
type AttemptStore interface {
	Record(ctx context.Context, scope, scopeID string) error
	Count(ctx context.Context, scope, scopeID string) (int, error)
}

// BlockLedger is the durable, append-only record of block and suspension
// decisions. Survives cache eviction and restarts.
type BlockLedger interface {
	RecordIPBlock(ctx context.Context, ipAddress string) (*models.Anomaly, error)
	RecordUserSuspension(ctx context.Context, userID, ipAddress string) (*models.Anomaly, error)
	IsIPBlocked(ctx context.Context, ipAddress string) (bool, error)
	ListAll(ctx context.Context) ([]*models.Anomaly, error)
	Stats(ctx context.Context, window time.Duration) (*models.AnomalyStats, error)
}

// AttemptResult reports the threshold state after recording one failed attempt.
type AttemptResult struct {
	UserSuspended bool
	IPBlocked     bool
}

// AnomalyService is the brute-force decision engine. Origin blocks are
// permanent once crossed (ledger-backed); account suspensions are re-derived
// from the rolling count on every check and lapse as events age out.
//
// Every store or ledger failure degrades to a permissive answer: a login
// endpoint that denies legitimate users because Redis is down is worse than
// one that briefly under-protects. Failures are logged, never surfaced.
type AnomalyService struct {
	store  AttemptStore
	ledger BlockLedger
	config config.AnomalyConfig
	logger *slog.Logger
}

func NewAnomalyService(store AttemptStore, ledger BlockLedger, cfg config.AnomalyConfig, logger *slog.Logger) *AnomalyService {
	return &AnomalyService{
		store:  store,
		ledger: ledger,
		config: cfg,
		logger: logger,
	}
}

// RecordFailedAttempt records one failed login. The origin always gets an
// event; the account only when the submitted identity resolved to one, so
// unknown identities leave no account-scope signal. Both thresholds are
// evaluated post-insert and crossings are persisted to the ledger.
func (s *AnomalyService) RecordFailedAttempt(ctx context.Context, ipAddress, userID string) AttemptResult {
	var result AttemptResult

	if err := s.store.Record(ctx, models.ScopeOrigin, ipAddress); err != nil {
		s.logger.Error("failed to record origin attempt",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
	}

	if userID != "" {
		if err := s.store.Record(ctx, models.ScopeAccount, userID); err != nil {
			s.logger.Error("failed to record account attempt",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}

		accountCount, err := s.store.Count(ctx, models.ScopeAccount, userID)
		if err != nil {
			s.logger.Error("failed to count account attempts",
				slog.String("user_id", userID),
				slog.Any("error", err))
		} else if accountCount >= s.config.AccountAttemptThreshold {
			result.UserSuspended = true
			if _, err := s.ledger.RecordUserSuspension(ctx, userID, ipAddress); err != nil {
				s.logger.Error("failed to persist suspension record",
					slog.String("user_id", userID),
					slog.Any("error", err))
			}
		}
	}

	originCount, err := s.store.Count(ctx, models.ScopeOrigin, ipAddress)
	if err != nil {
		s.logger.Error("failed to count origin attempts",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
	} else if originCount >= s.config.OriginAttemptThreshold {
		result.IPBlocked = true
		if _, err := s.ledger.RecordIPBlock(ctx, ipAddress); err != nil {
			s.logger.Error("failed to persist ip block record",
				slog.String("ip_address", ipAddress),
				slog.Any("error", err))
		}
	}

	s.logger.Info("failed login attempt recorded",
		slog.String("ip_address", ipAddress),
		slog.String("user_id", userID),
		slog.Bool("user_suspended", result.UserSuspended),
		slog.Bool("ip_blocked", result.IPBlocked))

	return result
}

// IsIPBlocked reports whether the origin is permanently blocked. True when a
// durable block row exists or the rolling count has reached the threshold.
func (s *AnomalyService) IsIPBlocked(ctx context.Context, ipAddress string) bool {
	blocked, err := s.ledger.IsIPBlocked(ctx, ipAddress)
	if err != nil {
		s.logger.Error("failed to check ip block ledger",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
	} else if blocked {
		return true
	}

	count, err := s.store.Count(ctx, models.ScopeOrigin, ipAddress)
	if err != nil {
		s.logger.Error("failed to count origin attempts",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
		return false
	}

	return count >= s.config.OriginAttemptThreshold
}

// IsUserSuspended re-derives suspension from the rolling count. Once enough
// events age out of the window the account is clear again without any
// explicit unsuspend.
func (s *AnomalyService) IsUserSuspended(ctx context.Context, userID string) bool {
	count, err := s.store.Count(ctx, models.ScopeAccount, userID)
	if err != nil {
		s.logger.Error("failed to count account attempts",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return false
	}

	return count >= s.config.AccountAttemptThreshold
}

// GetUserFailedAttempts exposes the raw rolling count. The gate uses it to
// pick between the generic and the suspended failure message.
func (s *AnomalyService) GetUserFailedAttempts(ctx context.Context, userID string) int {
	count, err := s.store.Count(ctx, models.ScopeAccount, userID)
	if err != nil {
		s.logger.Error("failed to count account attempts",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return 0
	}
	return count
}

// GetAllAnomalies returns the full ledger for the admin view.
func (s *AnomalyService) GetAllAnomalies(ctx context.Context) ([]*models.Anomaly, error) {
	return s.ledger.ListAll(ctx)
}

// GetAnomalyStats aggregates the ledger over the origin window.
func (s *AnomalyService) GetAnomalyStats(ctx context.Context) (*models.AnomalyStats, error) {
	return s.ledger.Stats(ctx, s.config.OriginWindow)
}
