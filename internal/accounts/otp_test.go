// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsearchhq/devsearch/internal/platform/apperr"
)

// zeroReader always yields zero bytes, pinning the generator to its lower bound.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func newTestLedger(t *testing.T) (*OtpLedger, *RedisOtpRepository, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewOtpRepository(rdb)
	ledger := NewOtpLedger(repo, NewCodeGenerator(nil))

	return ledger, repo, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

/*
TestCodeGenerator_Range verifies every generated code is a six digit number.
*/
func TestCodeGenerator_Range(t *testing.T) {
	generator := NewCodeGenerator(nil)

	for i := 0; i < 200; i++ {
		code, err := generator.Generate()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, OtpCodeMin)
		assert.LessOrEqual(t, code, OtpCodeMax)
	}
}

/*
TestCodeGenerator_InjectedSource verifies the entropy source is honored,
which is what makes issuance testable in the first place.
*/
func TestCodeGenerator_InjectedSource(t *testing.T) {
	generator := NewCodeGenerator(zeroReader{})

	code, err := generator.Generate()
	require.NoError(t, err)
	assert.Equal(t, OtpCodeMin, code)
}

/*
TestOtpLedger_SingleLiveRecord verifies that re-issuing voids the previous
code: after N issues only the last one validates.
*/
func TestOtpLedger_SingleLiveRecord(t *testing.T) {
	ledger, _, cleanup := newTestLedger(t)
	defer cleanup()

	ctx := context.Background()
	accountID := "acct-1"

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		code, err := ledger.Issue(ctx, accountID)
		require.NoError(t, err)
		codes = append(codes, code)
	}

	// Only the latest code is live.
	err := ledger.Validate(ctx, accountID, codes[len(codes)-1])
	assert.NoError(t, err)

	for _, stale := range codes[:len(codes)-1] {
		if stale == codes[len(codes)-1] {
			continue // random collision with the live code
		}
		err := ledger.Validate(ctx, accountID, stale)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeValidationError, apperr.As(err).Code)
	}
}

/*
TestOtpLedger_UnknownAccount verifies validation against an account with no
live code is rejected the same way as a wrong code.
*/
func TestOtpLedger_UnknownAccount(t *testing.T) {
	ledger, _, cleanup := newTestLedger(t)
	defer cleanup()

	err := ledger.Validate(context.Background(), "nobody", 123456)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidationError, apperr.As(err).Code)
}

/*
TestOtpLedger_Expiry verifies the wall-clock window: a code past the window
is reported as expired, not merely invalid.
*/
func TestOtpLedger_Expiry(t *testing.T) {
	ledger, _, cleanup := newTestLedger(t)
	defer cleanup()

	ctx := context.Background()
	accountID := "acct-2"

	issuedAt := time.Now()
	ledger.now = func() time.Time { return issuedAt }

	code, err := ledger.Issue(ctx, accountID)
	require.NoError(t, err)

	// Just inside the window.
	ledger.now = func() time.Time { return issuedAt.Add(OtpWindow - time.Second) }
	assert.NoError(t, ledger.Validate(ctx, accountID, code))

	// Just past the window.
	ledger.now = func() time.Time { return issuedAt.Add(OtpWindow + time.Minute) }
	err = ledger.Validate(ctx, accountID, code)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeExpired, apperr.As(err).Code)
}

/*
TestOtpLedger_ValidateDoesNotConsume verifies a code stays live through
validation so the reset flow can check it twice.
*/
func TestOtpLedger_ValidateDoesNotConsume(t *testing.T) {
	ledger, _, cleanup := newTestLedger(t)
	defer cleanup()

	ctx := context.Background()
	code, err := ledger.Issue(ctx, "acct-3")
	require.NoError(t, err)

	assert.NoError(t, ledger.Validate(ctx, "acct-3", code))
	assert.NoError(t, ledger.Validate(ctx, "acct-3", code))
}

/*
TestOtpLedger_Consume verifies a consumed code cannot be replayed.
*/
func TestOtpLedger_Consume(t *testing.T) {
	ledger, _, cleanup := newTestLedger(t)
	defer cleanup()

	ctx := context.Background()
	code, err := ledger.Issue(ctx, "acct-4")
	require.NoError(t, err)

	require.NoError(t, ledger.Consume(ctx, "acct-4"))

	err = ledger.Validate(ctx, "acct-4", code)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidationError, apperr.As(err).Code)
}

/*
TestRedisOtpRepository_RoundTrip verifies the hash encoding survives a
store-and-load cycle and that a missing key yields a nil record.
*/
func TestRedisOtpRepository_RoundTrip(t *testing.T) {
	_, repo, cleanup := newTestLedger(t)
	defer cleanup()

	ctx := context.Background()

	missing, err := repo.Find(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	issuedAt := time.Now().UTC().Truncate(time.Millisecond)
	record := &OtpRecord{AccountID: "acct-5", Code: 424242, IssuedAt: issuedAt}
	require.NoError(t, repo.Replace(ctx, record))

	loaded, err := repo.Find(ctx, "acct-5")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 424242, loaded.Code)
	assert.True(t, loaded.IssuedAt.Equal(issuedAt))

	require.NoError(t, repo.DeleteAll(ctx, "acct-5"))
	gone, err := repo.Find(ctx, "acct-5")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
