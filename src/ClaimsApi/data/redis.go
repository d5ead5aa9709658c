package data

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPrefix   = "onepulse:ratelimit:"
	dailyClaimsPrefix = "onepulse:claims:day:"
	processedTxPrefix = "onepulse:claims:tx:"

	secondsPerDay = 86_400

	// Day keys are never read after the UTC day rolls over; keep them a
	// couple of days for stats, then let them expire.
	dailyCounterTTL = 48 * time.Hour
	processedTxTTL  = 48 * time.Hour
)

// Store is the subset of redis commands the counters rely on. Every mutation
// below is a single atomic primitive: two racing confirmations can never both
// observe a pre-increment value.
type Store interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// DayNumber is the UTC day index used for counter keys.
func DayNumber(now time.Time) int64 {
	return now.UTC().Unix() / secondsPerDay
}

func dailyClaimsKey(chainID, day int64) string {
	return fmt.Sprintf("%s%d:%d", dailyClaimsPrefix, chainID, day)
}

// RateLimit counts one request against identifier's rolling window and
// reports whether it stays within limit. The TTL is armed on the first hit
// of a fresh window, so the bucket self-expires.
func RateLimit(ctx context.Context, rdb Store, identifier string, limit int, window time.Duration) (allowed bool, remaining int, err error) {
	key := rateLimitPrefix + identifier
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr %s: %w", identifier, err)
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expire %s: %w", identifier, err)
		}
	}
	remaining = limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(limit), remaining, nil
}

// IncrementDailyClaims advances the per-chain counter for the current UTC day
// and returns the post-increment value. Only the settlement confirmer calls
// this, and only after a transaction has been fully verified.
func IncrementDailyClaims(ctx context.Context, rdb Store, chainID int64, now time.Time) (int64, error) {
	key := dailyClaimsKey(chainID, DayNumber(now))
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("daily counter incr chain %d: %w", chainID, err)
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, dailyCounterTTL).Err(); err != nil {
			return 0, fmt.Errorf("daily counter expire chain %d: %w", chainID, err)
		}
	}
	return count, nil
}

// DailyClaimsCount reads the current day's counter without touching it.
func DailyClaimsCount(ctx context.Context, rdb Store, chainID int64, now time.Time) (int64, error) {
	val, err := rdb.Get(ctx, dailyClaimsKey(chainID, DayNumber(now))).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("daily counter read chain %d: %w", chainID, err)
	}
	return val, nil
}

// MarkTransactionProcessed records a hash the confirmer has accepted.
// Returns false when the hash was already recorded, which is how a client
// retry of an accepted confirmation avoids double-incrementing the counter.
func MarkTransactionProcessed(ctx context.Context, rdb Store, txHash string) (first bool, err error) {
	ok, err := rdb.SetNX(ctx, processedTxPrefix+txHash, 1, processedTxTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark tx %s: %w", txHash, err)
	}
	return ok, nil
}
