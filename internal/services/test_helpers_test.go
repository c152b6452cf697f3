package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vigilauth/vigil/internal/config"
	"github.com/vigilauth/vigil/internal/models"
	pkglogger "github.com/vigilauth/vigil/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}

func testAnomalyConfig() config.AnomalyConfig {
	return config.AnomalyConfig{
		AccountAttemptThreshold: 5,
		OriginAttemptThreshold:  100,
		AccountWindow:           15 * time.Minute,
		OriginWindow:            15 * time.Minute,
	}
}

// fakeAttemptStore is an in-memory stand-in for the Redis event store. It
// keeps per-event timestamps so tests can advance a fake clock and watch
// entries age out of the rolling window.
type fakeAttemptStore struct {
	mu      sync.Mutex
	events  map[string][]time.Time
	windows map[string]time.Duration
	now     time.Time

	recordErr error
	countErr  error
}

func newFakeAttemptStore(cfg config.AnomalyConfig) *fakeAttemptStore {
	return &fakeAttemptStore{
		events: make(map[string][]time.Time),
		windows: map[string]time.Duration{
			models.ScopeAccount: cfg.AccountWindow,
			models.ScopeOrigin:  cfg.OriginWindow,
		},
		now: time.Now(),
	}
}

func (f *fakeAttemptStore) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeAttemptStore) key(scope, scopeID string) string {
	return scope + ":" + scopeID
}

func (f *fakeAttemptStore) Record(ctx context.Context, scope, scopeID string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.key(scope, scopeID)
	f.events[key] = append(f.events[key], f.now)
	return nil
}

func (f *fakeAttemptStore) Count(ctx context.Context, scope, scopeID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	window := f.windows[scope]
	cutoff := f.now.Add(-window)

	count := 0
	for _, at := range f.events[f.key(scope, scopeID)] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// fakeBlockLedger is an in-memory stand-in for the Postgres anomaly ledger.
type fakeBlockLedger struct {
	mu        sync.Mutex
	anomalies []*models.Anomaly

	recordBlockErr      error
	recordSuspensionErr error
	isBlockedErr        error
}

func newFakeBlockLedger() *fakeBlockLedger {
	return &fakeBlockLedger{}
}

func (f *fakeBlockLedger) RecordIPBlock(ctx context.Context, ipAddress string) (*models.Anomaly, error) {
	if f.recordBlockErr != nil {
		return nil, f.recordBlockErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.anomalies {
		if a.AnomalyType == models.AnomalyIPRateLimited && a.UserID == nil && a.IPAddress != nil && *a.IPAddress == ipAddress {
			return a, nil
		}
	}

	anomaly := &models.Anomaly{
		ID:          "block-" + ipAddress,
		AnomalyType: models.AnomalyIPRateLimited,
		IPAddress:   &ipAddress,
		CreatedAt:   time.Now(),
	}
	f.anomalies = append(f.anomalies, anomaly)
	return anomaly, nil
}

func (f *fakeBlockLedger) RecordUserSuspension(ctx context.Context, userID, ipAddress string) (*models.Anomaly, error) {
	if f.recordSuspensionErr != nil {
		return nil, f.recordSuspensionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	anomaly := &models.Anomaly{
		ID:          "susp",
		AnomalyType: models.AnomalyUserRateLimited,
		UserID:      &userID,
		IPAddress:   &ipAddress,
		CreatedAt:   time.Now(),
	}
	f.anomalies = append(f.anomalies, anomaly)
	return anomaly, nil
}

func (f *fakeBlockLedger) IsIPBlocked(ctx context.Context, ipAddress string) (bool, error) {
	if f.isBlockedErr != nil {
		return false, f.isBlockedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.anomalies {
		if a.AnomalyType == models.AnomalyIPRateLimited && a.UserID == nil && a.IPAddress != nil && *a.IPAddress == ipAddress {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBlockLedger) ListAll(ctx context.Context) ([]*models.Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Anomaly, len(f.anomalies))
	copy(out, f.anomalies)
	return out, nil
}

func (f *fakeBlockLedger) Stats(ctx context.Context, window time.Duration) (*models.AnomalyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &models.AnomalyStats{}
	users := map[string]struct{}{}
	ips := map[string]struct{}{}
	for _, a := range f.anomalies {
		stats.TotalRecentAttempts++
		if a.UserID != nil {
			users[*a.UserID] = struct{}{}
		}
		if a.IPAddress != nil {
			ips[*a.IPAddress] = struct{}{}
		}
		if a.AnomalyType == models.AnomalyIPRateLimited && a.UserID == nil {
			stats.BlockedIPs++
		}
	}
	stats.UniqueUsersAffected = len(users)
	stats.UniqueIPsInvolved = len(ips)
	return stats, nil
}

func (f *fakeBlockLedger) countByType(anomalyType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.anomalies {
		if a.AnomalyType == anomalyType {
			n++
		}
	}
	return n
}
