package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tribehub/tribehub_backend/models"
)

// RedisOTPStore keeps OTP records in Redis so multiple instances share
// one authoritative store. Each operation runs as a single Lua script,
// which gives the same per-identity serialization the in-memory store
// gets from its lock table.
//
// Records live under "otp:<identity>" as hashes. The Redis key TTL is
// set to twice the policy TTL: expiry is decided from the stored issue
// timestamp so an expired-but-present record still reports OTPExpired
// rather than OTPNotFound, while Redis itself bounds memory.
type RedisOTPStore struct {
	client *redis.Client
	policy models.OTPPolicy
}

var putScript = redis.NewScript(`
local issued = redis.call('HGET', KEYS[1], 'issuedAt')
if issued and tonumber(ARGV[4]) > 0 and (tonumber(ARGV[2]) - tonumber(issued)) < tonumber(ARGV[4]) then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'code', ARGV[1], 'issuedAt', ARGV[2], 'attempts', 0)
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

var checkScript = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'code', 'issuedAt', 'attempts')
if not rec[1] then
  return 4
end
if (tonumber(ARGV[2]) - tonumber(rec[2])) > tonumber(ARGV[3]) then
  redis.call('DEL', KEYS[1])
  return 1
end
local attempts = tonumber(rec[3])
if attempts >= tonumber(ARGV[4]) then
  redis.call('DEL', KEYS[1])
  return 3
end
if rec[1] ~= ARGV[1] then
  attempts = attempts + 1
  if attempts >= tonumber(ARGV[4]) then
    redis.call('DEL', KEYS[1])
    return 3
  end
  redis.call('HSET', KEYS[1], 'attempts', attempts)
  return 2
end
if tonumber(ARGV[5]) == 1 then
  redis.call('DEL', KEYS[1])
end
return 0
`)

// NewRedisOTPStore creates a Redis-backed store with the given policy.
func NewRedisOTPStore(client *redis.Client, policy models.OTPPolicy) *RedisOTPStore {
	return &RedisOTPStore{client: client, policy: policy}
}

func otpKey(identity string) string {
	return "otp:" + identity
}

// Put inserts or overwrites the record for identity, honoring the
// resend interval.
func (s *RedisOTPStore) Put(ctx context.Context, identity, code string) error {
	now := time.Now().UnixMilli()
	keyTTL := 2 * s.policy.TTL.Milliseconds()

	ok, err := putScript.Run(ctx, s.client, []string{otpKey(identity)},
		code, now, keyTTL, s.policy.ResendInterval.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	if ok == 0 {
		return ErrResendThrottled
	}
	return nil
}

// Verify checks the submitted code without consuming the record.
func (s *RedisOTPStore) Verify(ctx context.Context, identity, code string) (models.OTPResult, error) {
	return s.check(ctx, identity, code, false)
}

// Consume checks the submitted code and removes the record on match.
func (s *RedisOTPStore) Consume(ctx context.Context, identity, code string) (models.OTPResult, error) {
	return s.check(ctx, identity, code, true)
}

func (s *RedisOTPStore) check(ctx context.Context, identity, code string, consume bool) (models.OTPResult, error) {
	consumeFlag := 0
	if consume {
		consumeFlag = 1
	}

	result, err := checkScript.Run(ctx, s.client, []string{otpKey(identity)},
		code, time.Now().UnixMilli(), s.policy.TTL.Milliseconds(),
		s.policy.MaxAttempts, consumeFlag).Int()
	if err != nil {
		return models.OTPNotFound, fmt.Errorf("failed to check verification code: %w", err)
	}

	switch result {
	case 0:
		return models.OTPValid, nil
	case 1:
		return models.OTPExpired, nil
	case 2:
		return models.OTPMismatched, nil
	case 3:
		return models.OTPAttemptsExceeded, nil
	default:
		return models.OTPNotFound, nil
	}
}

// Invalidate removes the record for identity. Idempotent.
func (s *RedisOTPStore) Invalidate(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, otpKey(identity)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate verification code: %w", err)
	}
	return nil
}
