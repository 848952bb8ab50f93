// Package quota implements the identity/quota collaborator: per-user
// tiers and daily per-feature usage counters. The pipeline checks
// before expensive operations and records after success; storage lives
// in Redis, the core only sees the Service interface.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Tier is the subscription level attached to a user.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// Feature names the billable operations.
const (
	FeatureScan      = "scan"
	FeaturePortfolio = "portfolio"
	FeatureDeepDive  = "deepdive"
)

// Unlimited marks a feature with no daily cap.
const Unlimited = -1

// Limits maps tier and feature to a daily call cap.
type Limits map[Tier]map[string]int

// DefaultLimits returns the shipped quota table.
func DefaultLimits() Limits {
	return Limits{
		TierFree: {
			FeatureScan:      5,
			FeaturePortfolio: 2,
			FeatureDeepDive:  3,
		},
		TierPro: {
			FeatureScan:      50,
			FeaturePortfolio: 20,
			FeatureDeepDive:  30,
		},
		TierPremium: {
			FeatureScan:      Unlimited,
			FeaturePortfolio: Unlimited,
			FeatureDeepDive:  Unlimited,
		},
	}
}

// Service is what the pipeline consumes. Implementations must treat an
// unknown user as TierFree.
type Service interface {
	GetTier(ctx context.Context, user string) (Tier, error)
	CheckQuota(ctx context.Context, user, feature string) (allowed bool, remaining int, err error)
	RecordUsage(ctx context.Context, user, feature string) error
}

// NopService allows everything; used when no quota backend is wired.
type NopService struct{}

func (NopService) GetTier(context.Context, string) (Tier, error) { return TierPremium, nil }

func (NopService) CheckQuota(context.Context, string, string) (bool, int, error) {
	return true, Unlimited, nil
}

func (NopService) RecordUsage(context.Context, string, string) error { return nil }

// RedisService stores tiers and usage counters in Redis. Usage keys are
// day-scoped and expire on their own, so a crashed process never leaks
// a permanent counter.
type RedisService struct {
	client *redis.Client
	limits Limits
	now    func() time.Time
}

func NewRedisService(client *redis.Client, limits Limits) *RedisService {
	return &RedisService{client: client, limits: limits, now: time.Now}
}

func tierKey(user string) string { return "crypash:tier:" + user }

func (s *RedisService) usageKey(user, feature string) string {
	return fmt.Sprintf("crypash:usage:%s:%s:%s", user, feature, s.now().UTC().Format("2006-01-02"))
}

// GetTier reads the stored tier; a missing key is TierFree.
func (s *RedisService) GetTier(ctx context.Context, user string) (Tier, error) {
	val, err := s.client.Get(ctx, tierKey(user)).Result()
	if err == redis.Nil {
		return TierFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("quota: get tier for %s: %w", user, err)
	}
	return Tier(val), nil
}

// SetTier writes the tier; used by billing hooks, not the pipeline.
func (s *RedisService) SetTier(ctx context.Context, user string, tier Tier) error {
	if err := s.client.Set(ctx, tierKey(user), string(tier), 0).Err(); err != nil {
		return fmt.Errorf("quota: set tier for %s: %w", user, err)
	}
	return nil
}

// CheckQuota compares today's usage counter against the tier limit.
func (s *RedisService) CheckQuota(ctx context.Context, user, feature string) (bool, int, error) {
	tier, err := s.GetTier(ctx, user)
	if err != nil {
		return false, 0, err
	}
	limit, ok := s.limits[tier][feature]
	if !ok {
		return false, 0, nil
	}
	if limit == Unlimited {
		return true, Unlimited, nil
	}

	used, err := s.client.Get(ctx, s.usageKey(user, feature)).Int()
	if err == redis.Nil {
		used = 0
	} else if err != nil {
		return false, 0, fmt.Errorf("quota: read usage for %s/%s: %w", user, feature, err)
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining > 0, remaining, nil
}

// RecordUsage bumps today's counter. The expiry renews on every hit,
// which is fine: the key only needs to outlive its own day.
func (s *RedisService) RecordUsage(ctx context.Context, user, feature string) error {
	key := s.usageKey(user, feature)
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("quota: record usage for %s/%s: %w", user, feature, err)
	}
	return nil
}
