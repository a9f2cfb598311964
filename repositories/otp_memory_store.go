package repositories

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/tribehub/tribehub_backend/models"
	"github.com/tribehub/tribehub_backend/security"
)

const memoryStoreShards = 16

// MemoryOTPStore keeps OTP records in process memory behind a sharded
// lock table. Suitable for single-instance deployments; multi-instance
// deployments use RedisOTPStore with the same semantics.
type MemoryOTPStore struct {
	policy models.OTPPolicy
	shards [memoryStoreShards]*memoryShard
}

type memoryShard struct {
	mu      sync.Mutex
	records map[string]*models.OTPRecord
}

// NewMemoryOTPStore creates an in-memory store with the given policy.
func NewMemoryOTPStore(policy models.OTPPolicy) *MemoryOTPStore {
	s := &MemoryOTPStore{policy: policy}
	for i := range s.shards {
		s.shards[i] = &memoryShard{records: make(map[string]*models.OTPRecord)}
	}
	return s
}

func (s *MemoryOTPStore) shard(identity string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return s.shards[h.Sum32()%memoryStoreShards]
}

// Put inserts or overwrites the record for identity with a fresh issue
// timestamp and zeroed attempt counter. Returns ErrResendThrottled when
// the previous record is younger than the resend interval.
func (s *MemoryOTPStore) Put(ctx context.Context, identity, code string) error {
	shard := s.shard(identity)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := time.Now()
	if prev, ok := shard.records[identity]; ok && s.policy.ResendInterval > 0 {
		if now.Sub(prev.IssuedAt) < s.policy.ResendInterval {
			return ErrResendThrottled
		}
	}

	shard.records[identity] = &models.OTPRecord{
		Identity: identity,
		Code:     code,
		IssuedAt: now,
		Attempts: 0,
	}
	return nil
}

// Verify checks the submitted code against the stored record. The record
// survives a successful match so the consume step can re-validate it;
// expiry and attempt exhaustion invalidate it as a side effect.
func (s *MemoryOTPStore) Verify(ctx context.Context, identity, code string) (models.OTPResult, error) {
	return s.check(identity, code, false)
}

// Consume is Verify plus atomic removal on match. Only one caller can
// ever consume a given record.
func (s *MemoryOTPStore) Consume(ctx context.Context, identity, code string) (models.OTPResult, error) {
	return s.check(identity, code, true)
}

func (s *MemoryOTPStore) check(identity, code string, consume bool) (models.OTPResult, error) {
	shard := s.shard(identity)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	record, ok := shard.records[identity]
	if !ok {
		return models.OTPNotFound, nil
	}

	if time.Since(record.IssuedAt) > s.policy.TTL {
		delete(shard.records, identity)
		return models.OTPExpired, nil
	}

	if record.Attempts >= s.policy.MaxAttempts {
		delete(shard.records, identity)
		return models.OTPAttemptsExceeded, nil
	}

	if !security.SecureCompare(record.Code, code) {
		record.Attempts++
		if record.Attempts >= s.policy.MaxAttempts {
			delete(shard.records, identity)
			return models.OTPAttemptsExceeded, nil
		}
		return models.OTPMismatched, nil
	}

	if consume {
		delete(shard.records, identity)
	}
	return models.OTPValid, nil
}

// Invalidate removes the record for identity. Calling it for an absent
// identity is a no-op.
func (s *MemoryOTPStore) Invalidate(ctx context.Context, identity string) error {
	shard := s.shard(identity)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.records, identity)
	return nil
}

// ReapExpired removes records older than the TTL and returns how many
// were dropped. Expiry is already enforced lazily at verify time; the
// reaper only bounds memory for abandoned flows.
func (s *MemoryOTPStore) ReapExpired() int {
	reaped := 0
	now := time.Now()
	for _, shard := range s.shards {
		shard.mu.Lock()
		for identity, record := range shard.records {
			if now.Sub(record.IssuedAt) > s.policy.TTL {
				delete(shard.records, identity)
				reaped++
			}
		}
		shard.mu.Unlock()
	}
	return reaped
}
