package infra

import (
	"context"
	"testing"
	"time"

	"rebuild-relay/relay/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatsStore_CountsByRouteAndOutcome(t *testing.T) {
	s := NewMemoryStatsStore()
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Route: "/content-webhook", Outcome: domain.OutcomeAccepted})
	_ = s.Record(ctx, domain.StatsEvent{Route: "/content-webhook", Outcome: domain.OutcomeAccepted})
	_ = s.Record(ctx, domain.StatsEvent{Route: "/deploy-webhook", Outcome: domain.OutcomeRejected})

	assert.Equal(t, int64(2), s.Count("/content-webhook", domain.OutcomeAccepted))
	assert.Equal(t, int64(1), s.Count("/deploy-webhook", domain.OutcomeRejected))
	assert.Equal(t, int64(2), s.Count("", domain.OutcomeAccepted))
	assert.Equal(t, int64(0), s.Count("/rebuild-check", domain.OutcomeFailed))
}

func TestRedisStatsStore_RecordsBucketsWithTTL(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("test:stats:"), WithStatsTTL(time.Hour))
	at := time.Date(2026, 10, 14, 12, 30, 0, 0, time.UTC)

	require.NoError(t, s.Record(context.Background(), domain.StatsEvent{Route: "/deploy-webhook", Outcome: domain.OutcomeAccepted, At: at}))
	require.NoError(t, s.Record(context.Background(), domain.StatsEvent{Route: "/deploy-webhook", Outcome: domain.OutcomeAccepted, At: at}))

	assert.Equal(t, "2", mr.HGet("test:stats:total", "accepted"))
	assert.Equal(t, "2", mr.HGet("test:stats:minute:202610141230", "accepted"))
	assert.Equal(t, "2", mr.HGet("test:stats:route", "/deploy-webhook:accepted"))
	assert.Equal(t, time.Hour, mr.TTL("test:stats:minute:202610141230"))
}

func TestRedisStatsStore_IgnoresEmptyOutcome(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := NewRedisStatsStore(rdb)

	require.NoError(t, s.Record(context.Background(), domain.StatsEvent{Route: "/x"}))
	assert.False(t, mr.Exists("relay:stats:total"))
}
