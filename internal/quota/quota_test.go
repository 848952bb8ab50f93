package quota

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*RedisService, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	svc := NewRedisService(client, DefaultLimits())
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return svc, mock
}

func TestGetTier_MissingUserIsFree(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectGet("crypash:tier:nobody").RedisNil()

	tier, err := svc.GetTier(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, TierFree, tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTier_Stored(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectGet("crypash:tier:alice").SetVal("pro")

	tier, err := svc.GetTier(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, TierPro, tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckQuota_FreshCounter(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectGet("crypash:tier:alice").SetVal("free")
	mock.ExpectGet("crypash:usage:alice:scan:2026-08-28").RedisNil()

	allowed, remaining, err := svc.CheckQuota(context.Background(), "alice", FeatureScan)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckQuota_Exhausted(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectGet("crypash:tier:alice").SetVal("free")
	mock.ExpectGet("crypash:usage:alice:scan:2026-08-28").SetVal("5")

	allowed, remaining, err := svc.CheckQuota(context.Background(), "alice", FeatureScan)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckQuota_PremiumIsUnlimited(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectGet("crypash:tier:bob").SetVal("premium")

	allowed, remaining, err := svc.CheckQuota(context.Background(), "bob", FeatureDeepDive)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, Unlimited, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckQuota_UnknownFeatureDenied(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectGet("crypash:tier:alice").SetVal("free")

	allowed, remaining, err := svc.CheckQuota(context.Background(), "alice", "export")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordUsage(t *testing.T) {
	svc, mock := newTestService(t)
	key := "crypash:usage:alice:scan:2026-08-28"
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, 48*time.Hour).SetVal(true)
	mock.ExpectTxPipelineExec()

	require.NoError(t, svc.RecordUsage(context.Background(), "alice", FeatureScan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTier(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectSet("crypash:tier:alice", "pro", 0).SetVal("OK")

	require.NoError(t, svc.SetTier(context.Background(), "alice", TierPro))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopService(t *testing.T) {
	var svc Service = NopService{}
	allowed, remaining, err := svc.CheckQuota(context.Background(), "anyone", FeatureScan)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, Unlimited, remaining)
	assert.NoError(t, svc.RecordUsage(context.Background(), "anyone", FeatureScan))
}
