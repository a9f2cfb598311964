package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tribehub/tribehub_backend/models"
)

func testPolicy() models.OTPPolicy {
	return models.OTPPolicy{
		TTL:            10 * time.Minute,
		MaxAttempts:    3,
		ResendInterval: 0,
		CodeLength:     6,
	}
}

func TestMemoryStorePutAndVerify(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	require.NoError(t, store.Put(ctx, "alice@example.com", "123456"))

	result, err := store.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPValid, result)

	// The record survives verification so the consume step can still
	// re-validate it.
	result, err = store.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPValid, result)

	result, err = store.Consume(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPValid, result)
}

func TestMemoryStoreVerifyUnknownIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	result, err := store.Verify(ctx, "nobody@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPNotFound, result)
}

func TestMemoryStoreReissueSupersedesPreviousCode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	require.NoError(t, store.Put(ctx, "alice@example.com", "111111"))
	require.NoError(t, store.Put(ctx, "alice@example.com", "222222"))

	result, err := store.Verify(ctx, "alice@example.com", "111111")
	require.NoError(t, err)
	require.Equal(t, models.OTPMismatched, result)

	result, err = store.Verify(ctx, "alice@example.com", "222222")
	require.NoError(t, err)
	require.Equal(t, models.OTPValid, result)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	policy := testPolicy()
	policy.TTL = 30 * time.Millisecond
	store := NewMemoryOTPStore(policy)

	require.NoError(t, store.Put(ctx, "alice@example.com", "123456"))
	time.Sleep(50 * time.Millisecond)

	// Correct code, but past the TTL.
	result, err := store.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPExpired, result)

	// Expiry invalidates the record as a side effect.
	result, err = store.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPNotFound, result)
}

func TestMemoryStoreAttemptCap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	require.NoError(t, store.Put(ctx, "alice@example.com", "123456"))

	result, err := store.Verify(ctx, "alice@example.com", "000000")
	require.NoError(t, err)
	require.Equal(t, models.OTPMismatched, result)

	result, err = store.Verify(ctx, "alice@example.com", "000000")
	require.NoError(t, err)
	require.Equal(t, models.OTPMismatched, result)

	result, err = store.Verify(ctx, "alice@example.com", "000000")
	require.NoError(t, err)
	require.Equal(t, models.OTPAttemptsExceeded, result)

	// Even the correct code fails once the cap is reached.
	result, err = store.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPNotFound, result)
}

func TestMemoryStoreInvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	require.NoError(t, store.Invalidate(ctx, "absent@example.com"))
	require.NoError(t, store.Invalidate(ctx, "absent@example.com"))

	require.NoError(t, store.Put(ctx, "alice@example.com", "123456"))
	require.NoError(t, store.Invalidate(ctx, "alice@example.com"))
	require.NoError(t, store.Invalidate(ctx, "alice@example.com"))

	result, err := store.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPNotFound, result)
}

func TestMemoryStoreResendThrottle(t *testing.T) {
	ctx := context.Background()
	policy := testPolicy()
	policy.ResendInterval = time.Minute
	store := NewMemoryOTPStore(policy)

	require.NoError(t, store.Put(ctx, "alice@example.com", "111111"))
	require.ErrorIs(t, store.Put(ctx, "alice@example.com", "222222"), ErrResendThrottled)

	// The previous code is still the live one.
	result, err := store.Verify(ctx, "alice@example.com", "111111")
	require.NoError(t, err)
	require.Equal(t, models.OTPValid, result)
}

func TestMemoryStoreConcurrentWrongAttemptsRespectCap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	require.NoError(t, store.Put(ctx, "alice@example.com", "123456"))

	const attempts = 100
	results := make([]models.OTPResult, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, _ := store.Verify(ctx, "alice@example.com", "000000")
			results[i] = result
		}(i)
	}
	wg.Wait()

	var mismatched, exceeded, notFound, valid int
	for _, r := range results {
		switch r {
		case models.OTPMismatched:
			mismatched++
		case models.OTPAttemptsExceeded:
			exceeded++
		case models.OTPNotFound:
			notFound++
		case models.OTPValid:
			valid++
		}
	}

	require.Zero(t, valid)
	// Only maxAttempts-1 mismatches can be recorded before the cap
	// invalidates the record.
	require.Equal(t, 2, mismatched)
	require.Equal(t, 1, exceeded)
	require.Equal(t, attempts-3, notFound)
}

func TestMemoryStoreConcurrentConsumeHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	require.NoError(t, store.Put(ctx, "alice@example.com", "123456"))

	const attempts = 100
	results := make([]models.OTPResult, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, _ := store.Consume(ctx, "alice@example.com", "123456")
			results[i] = result
		}(i)
	}
	wg.Wait()

	valid := 0
	for _, r := range results {
		if r == models.OTPValid {
			valid++
		}
	}
	require.Equal(t, 1, valid)
}

func TestMemoryStoreConsumePreventsReplay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore(testPolicy())

	require.NoError(t, store.Put(ctx, "alice@example.com", "123456"))

	result, err := store.Consume(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPValid, result)

	result, err = store.Verify(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, models.OTPNotFound, result)
}

func TestMemoryStoreReapExpired(t *testing.T) {
	ctx := context.Background()
	policy := testPolicy()
	policy.TTL = 20 * time.Millisecond
	store := NewMemoryOTPStore(policy)

	require.NoError(t, store.Put(ctx, "a@example.com", "111111"))
	require.NoError(t, store.Put(ctx, "b@example.com", "222222"))
	require.NoError(t, store.Put(ctx, "c@example.com", "333333"))

	time.Sleep(40 * time.Millisecond)
	require.NoError(t, store.Put(ctx, "d@example.com", "444444"))

	require.Equal(t, 3, store.ReapExpired())

	result, err := store.Verify(ctx, "d@example.com", "444444")
	require.NoError(t, err)
	require.Equal(t, models.OTPValid, result)
}
