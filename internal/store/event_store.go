package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/vigilauth/vigil/internal/config"
	"github.com/vigilauth/vigil/internal/models"
)

// EventStore records failed-attempt events as independently expiring Redis
// keys. One key per event is what makes the window rolling: an event recorded
// at T drops out of Count exactly window after T, while newer events keep
// counting. A single counter with a reset TTL would give a fixed window and
// undercount bursts straddling window edges.
type EventStore struct {
	rdb     *redis.Client
	windows map[string]time.Duration
}

func NewEventStore(cfg *config.RedisConfig, anomaly config.AnomalyConfig) *EventStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &EventStore{
		rdb: rdb,
		windows: map[string]time.Duration{
			models.ScopeOrigin:  anomaly.OriginWindow,
			models.ScopeAccount: anomaly.AccountWindow,
		},
	}
}

// NewEventStoreWithClient is used by tests that bring their own client.
func NewEventStoreWithClient(rdb *redis.Client, anomaly config.AnomalyConfig) *EventStore {
	return &EventStore{
		rdb: rdb,
		windows: map[string]time.Duration{
			models.ScopeOrigin:  anomaly.OriginWindow,
			models.ScopeAccount: anomaly.AccountWindow,
		},
	}
}

// Record inserts one event entry under the scope's window TTL. Every call
// creates a fresh key; entries are never merged or overwritten.
func (s *EventStore) Record(ctx context.Context, scope, scopeID string) error {
	window, ok := s.windows[scope]
	if !ok {
		return fmt.Errorf("unknown attempt scope: %s", scope)
	}

	key := KeyPrefix(scope, scopeID) + uuid.New().String()
	if err := s.rdb.Set(ctx, key, "1", window).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Count returns the number of non-expired events for the scope+scopeID.
// Expired entries disappear from the scan on their own; no cleanup pass runs.
// SCAN may report a key twice while Redis rehashes, so the count can
// transiently overstate. Accepted: the error leans toward suspending or
// blocking slightly early, never toward missing a threshold.
func (s *EventStore) Count(ctx context.Context, scope, scopeID string) (int, error) {
	if _, ok := s.windows[scope]; !ok {
		return 0, fmt.Errorf("unknown attempt scope: %s", scope)
	}

	pattern := escapeMatch(KeyPrefix(scope, scopeID)) + "*"

	var count int
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return count, nil
}

func (s *EventStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *EventStore) Close() error {
	return s.rdb.Close()
}

// KeyPrefix builds the shared prefix for all events of one scope+scopeID.
// The trailing separator keeps "account:10" from matching "account:100".
func KeyPrefix(scope, scopeID string) string {
	return "fail:" + scope + ":" + scopeID + ":"
}

// escapeMatch escapes Redis glob metacharacters so free-form scope IDs
// cannot widen the scan pattern.
func escapeMatch(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`*`, `\*`,
		`?`, `\?`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return r.Replace(s)
}
