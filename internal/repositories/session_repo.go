package repositories

import (
	"context"
	"time"

	"github.com/vigilauth/vigil/internal/database"
	"github.com/vigilauth/vigil/internal/models"
)

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, claim_token, last_claimed_at, expires_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		session.ID, session.UserID, session.ClaimToken,
		session.LastClaimedAt, session.ExpiresAt, session.IsActive,
		session.CreatedAt, session.UpdatedAt,
	)
	return database.MapPostgresError(err)
}

// GetActiveByClaimToken returns the active, unexpired session for a claim
// token, bumping last_claimed_at as a side effect.
func (r *SessionRepository) GetActiveByClaimToken(ctx context.Context, claimToken string) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET last_claimed_at = $1, updated_at = $1
		WHERE claim_token = $2 AND is_active = true AND expires_at > $1
		RETURNING id, user_id, claim_token, last_claimed_at, expires_at, is_active, created_at, updated_at
	`

	var session models.Session
	err := r.db.Pool.QueryRow(ctx, query, time.Now(), claimToken).Scan(
		&session.ID, &session.UserID, &session.ClaimToken,
		&session.LastClaimedAt, &session.ExpiresAt, &session.IsActive,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &session, nil
}

func (r *SessionRepository) Invalidate(ctx context.Context, claimToken string) error {
	query := `
		UPDATE sessions SET is_active = false, updated_at = $1
		WHERE claim_token = $2 AND is_active = true
	`

	tag, err := r.db.Pool.Exec(ctx, query, time.Now(), claimToken)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) InvalidateAllForUser(ctx context.Context, userID string) error {
	query := `
		UPDATE sessions SET is_active = false, updated_at = $1
		WHERE user_id = $2 AND is_active = true
	`

	_, err := r.db.Pool.Exec(ctx, query, time.Now(), userID)
	return database.MapPostgresError(err)
}

// DeactivateExpired flips expired-but-active sessions off. Run periodically
// by the background sweep.
func (r *SessionRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE sessions SET is_active = false, updated_at = $1
		WHERE expires_at < $1 AND is_active = true
	`

	tag, err := r.db.Pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
