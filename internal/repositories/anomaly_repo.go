package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vigilauth/vigil/internal/database"
	"github.com/vigilauth/vigil/internal/models"
)

// AnomalyRepository is the durable block ledger. Rows are append-only:
// created here, read by the admin views, never updated or deleted.
type AnomalyRepository struct {
	db *database.DB
}

func NewAnomalyRepository(db *database.DB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

// RecordIPBlock persists a permanent origin block. Idempotent per IP: the
// lookup and insert run in one transaction, and if an active block row
// already exists it is returned instead of inserting a duplicate. Two
// concurrent transactions can still both pass the lookup and insert; that
// race is accepted since the blocked state is an existence check and the
// block itself stops further traffic almost immediately.
func (r *AnomalyRepository) RecordIPBlock(ctx context.Context, ipAddress string) (*models.Anomaly, error) {
	var result *models.Anomaly

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		existing, err := r.findIPBlock(ctx, tx, ipAddress)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		anomaly := &models.Anomaly{
			ID:          uuid.New().String(),
			AnomalyType: models.AnomalyIPRateLimited,
			IPAddress:   &ipAddress,
			CreatedAt:   time.Now(),
		}

		result, err = r.insert(ctx, tx, anomaly)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// RecordUserSuspension persists an audit row for an account that crossed its
// attempt threshold. Not deduplicated: each qualifying event leaves a row.
// The suspended predicate itself is derived from the rolling count, not from
// these rows.
func (r *AnomalyRepository) RecordUserSuspension(ctx context.Context, userID, ipAddress string) (*models.Anomaly, error) {
	anomaly := &models.Anomaly{
		ID:          uuid.New().String(),
		AnomalyType: models.AnomalyUserRateLimited,
		UserID:      &userID,
		IPAddress:   &ipAddress,
		CreatedAt:   time.Now(),
	}

	return r.insert(ctx, r.db.Pool, anomaly)
}

// IsIPBlocked reports whether a permanent block row exists for the address.
func (r *AnomalyRepository) IsIPBlocked(ctx context.Context, ipAddress string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM anomalies
			WHERE anomaly_type = $1 AND user_id IS NULL AND ip_address = $2
		)
	`

	var blocked bool
	err := r.db.Pool.QueryRow(ctx, query, models.AnomalyIPRateLimited, ipAddress).Scan(&blocked)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return blocked, nil
}

// ListAll returns every ledger entry, newest first.
func (r *AnomalyRepository) ListAll(ctx context.Context) ([]*models.Anomaly, error) {
	query := `
		SELECT id, anomaly_type, user_id, ip_address, created_at
		FROM anomalies
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanAnomalyRows(rows)
}

// Stats aggregates the ledger for the admin stats view. Total attempts and
// blocked IPs are counted within the window; distinct users and IPs are
// all-time, matching the reporting view this replaces.
func (r *AnomalyRepository) Stats(ctx context.Context, window time.Duration) (*models.AnomalyStats, error) {
	cutoff := time.Now().Add(-window)

	query := `
		SELECT
			(SELECT COUNT(*) FROM anomalies WHERE created_at >= $1),
			(SELECT COUNT(DISTINCT user_id) FROM anomalies WHERE user_id IS NOT NULL),
			(SELECT COUNT(DISTINCT ip_address) FROM anomalies WHERE ip_address IS NOT NULL),
			(SELECT COUNT(*) FROM anomalies WHERE anomaly_type = $2 AND user_id IS NULL AND created_at >= $1)
	`

	stats := &models.AnomalyStats{}
	err := r.db.Pool.QueryRow(ctx, query, cutoff, models.AnomalyIPRateLimited).Scan(
		&stats.TotalRecentAttempts,
		&stats.UniqueUsersAffected,
		&stats.UniqueIPsInvolved,
		&stats.BlockedIPs,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return stats, nil
}

func (r *AnomalyRepository) findIPBlock(ctx context.Context, q execQuerier, ipAddress string) (*models.Anomaly, error) {
	query := `
		SELECT id, anomaly_type, user_id, ip_address, created_at
		FROM anomalies
		WHERE anomaly_type = $1 AND user_id IS NULL AND ip_address = $2
		ORDER BY created_at ASC
		LIMIT 1
	`

	anomaly, err := scanAnomalyRow(q.QueryRow(ctx, query, models.AnomalyIPRateLimited, ipAddress))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return anomaly, nil
}

func (r *AnomalyRepository) insert(ctx context.Context, q execQuerier, anomaly *models.Anomaly) (*models.Anomaly, error) {
	query := `
		INSERT INTO anomalies (id, anomaly_type, user_id, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := q.Exec(ctx, query,
		anomaly.ID,
		anomaly.AnomalyType,
		anomaly.UserID,
		anomaly.IPAddress,
		anomaly.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return anomaly, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// execQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so ledger writes
// can run standalone or inside a transaction.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanAnomalyRow(scanner rowScanner) (*models.Anomaly, error) {
	var anomaly models.Anomaly
	err := scanner.Scan(
		&anomaly.ID, &anomaly.AnomalyType, &anomaly.UserID,
		&anomaly.IPAddress, &anomaly.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &anomaly, nil
}

func scanAnomalyRows(rows pgx.Rows) ([]*models.Anomaly, error) {
	defer rows.Close()

	anomalies := make([]*models.Anomaly, 0)

	for rows.Next() {
		anomaly, err := scanAnomalyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, anomaly)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return anomalies, nil
}
