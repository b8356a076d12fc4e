/**
 * @description
 * This file implements the distributed OTP attempt limiter backed by Redis.
 * Each submission against an intent increments a per-handle counter with a
 * sliding window; past the configured maximum the caller must wait for the
 * window to lapse. The limiter is optional: when Redis is not configured the
 * flow runs without it and retries stay unlimited.
 */

package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var otpAttemptScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisOTPAttemptLimiter bounds OTP submissions per intent handle.
type RedisOTPAttemptLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	window      time.Duration
}

// NewRedisOTPAttemptLimiter creates a limiter allowing maxAttempts
// submissions per handle within each window.
func NewRedisOTPAttemptLimiter(client redis.UniversalClient, prefix string, maxAttempts int, window time.Duration) *RedisOTPAttemptLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "finspeak:otp_attempts"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisOTPAttemptLimiter{
		client:      client,
		prefix:      trimmedPrefix,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// ConsumeAttempt records one submission for the handle and reports whether
// it is still within the allowance. A nil client or non-positive limit
// disables the check.
func (r *RedisOTPAttemptLimiter) ConsumeAttempt(ctx context.Context, handle string) (allowed bool, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || r.maxAttempts <= 0 || r.window <= 0 {
		return true, 0, nil
	}
	normalized := strings.TrimSpace(handle)
	if normalized == "" {
		return true, 0, nil
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s", r.prefix, normalized)
	rawResult, err := otpAttemptScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return true, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return true, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	currentCount, ok := values[0].(int64)
	if !ok {
		return true, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return true, 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return int(currentCount) <= r.maxAttempts, retryAfter, nil
}
