package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vigilauth/vigil/internal/config"
	"github.com/vigilauth/vigil/internal/models"
)

func setupRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEventStore_RecordAndCount(t *testing.T) {
	client := setupRedisClient(t)
	cfg := config.AnomalyConfig{
		AccountAttemptThreshold: 5,
		OriginAttemptThreshold:  100,
		AccountWindow:           15 * time.Minute,
		OriginWindow:            15 * time.Minute,
	}
	s := NewEventStoreWithClient(client, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, models.ScopeOrigin, "203.0.113.1"))
	}
	require.NoError(t, s.Record(ctx, models.ScopeOrigin, "203.0.113.2"))
	require.NoError(t, s.Record(ctx, models.ScopeAccount, "u1"))

	count, err := s.Count(ctx, models.ScopeOrigin, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = s.Count(ctx, models.ScopeOrigin, "203.0.113.2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Scopes are independent even for the same ID string.
	count, err = s.Count(ctx, models.ScopeAccount, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestEventStore_CountPaginatesBeyondScanBatch(t *testing.T) {
	client := setupRedisClient(t)
	cfg := config.AnomalyConfig{
		AccountAttemptThreshold: 5,
		OriginAttemptThreshold:  100,
		AccountWindow:           15 * time.Minute,
		OriginWindow:            15 * time.Minute,
	}
	s := NewEventStoreWithClient(client, cfg)
	ctx := context.Background()

	// More events than one SCAN batch hint so the cursor loop has to run.
	for i := 0; i < 120; i++ {
		require.NoError(t, s.Record(ctx, models.ScopeOrigin, "203.0.113.9"))
	}

	count, err := s.Count(ctx, models.ScopeOrigin, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, 120, count)
}

func TestEventStore_EventsExpireWithWindow(t *testing.T) {
	client := setupRedisClient(t)
	cfg := config.AnomalyConfig{
		AccountAttemptThreshold: 5,
		OriginAttemptThreshold:  100,
		AccountWindow:           time.Second,
		OriginWindow:            time.Second,
	}
	s := NewEventStoreWithClient(client, cfg)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, models.ScopeAccount, "u1"))
	require.NoError(t, s.Record(ctx, models.ScopeAccount, "u1"))

	count, err := s.Count(ctx, models.ScopeAccount, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	time.Sleep(1500 * time.Millisecond)

	count, err = s.Count(ctx, models.ScopeAccount, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestEventStore_GlobMetacharactersInScopeID(t *testing.T) {
	client := setupRedisClient(t)
	cfg := config.AnomalyConfig{
		AccountAttemptThreshold: 5,
		OriginAttemptThreshold:  100,
		AccountWindow:           15 * time.Minute,
		OriginWindow:            15 * time.Minute,
	}
	s := NewEventStoreWithClient(client, cfg)
	ctx := context.Background()

	// A wildcard-bearing ID must only count its own events, and similar IDs
	// must not match each other's prefixes.
	require.NoError(t, s.Record(ctx, models.ScopeOrigin, "10.0.0.1"))
	require.NoError(t, s.Record(ctx, models.ScopeOrigin, "10.0.0.*"))
	require.NoError(t, s.Record(ctx, models.ScopeAccount, "u-10"))
	require.NoError(t, s.Record(ctx, models.ScopeAccount, "u-100"))

	count, err := s.Count(ctx, models.ScopeOrigin, "10.0.0.*")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.Count(ctx, models.ScopeOrigin, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.Count(ctx, models.ScopeAccount, "u-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEventStore_UnreachableStoreError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	cfg := config.AnomalyConfig{
		AccountAttemptThreshold: 5,
		OriginAttemptThreshold:  100,
		AccountWindow:           15 * time.Minute,
		OriginWindow:            15 * time.Minute,
	}
	s := NewEventStoreWithClient(client, cfg)
	ctx := context.Background()

	err := s.Record(ctx, models.ScopeOrigin, "203.0.113.1")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = s.Count(ctx, models.ScopeOrigin, "203.0.113.1")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	assert.ErrorIs(t, s.Ping(ctx), models.ErrStoreUnavailable)
}
