// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devsearchhq/devsearch/internal/platform/constants"
)

// # OTP Repository

// RedisOtpRepository implements OtpRepository using a Redis hash per account.
//
// The key carries a generous housekeeping TTL; the authoritative validity
// window is still the issue timestamp compared against the wall clock at
// validation time.
type RedisOtpRepository struct {
	client *redis.Client
}

// NewOtpRepository creates a new Redis-backed OtpRepository.
func NewOtpRepository(client *redis.Client) *RedisOtpRepository {
	return &RedisOtpRepository{client: client}
}

// otpKey builds the Redis key for an account's OTP record.
func otpKey(accountID string) string {
	return constants.RedisPrefixOtp + accountID
}

/*
Replace removes any existing record for the account and stores the new one.

Description: Delete-then-insert inside a pipeline; under concurrent issuance
the last write wins, which is the intended single-live-secret behavior.

Parameters:
  - context: context.Context
  - record: *OtpRecord

Returns:
  - error: Execution errors
*/
func (repository *RedisOtpRepository) Replace(context context.Context, record *OtpRecord) error {
	key := otpKey(record.AccountID)

	pipe := repository.client.TxPipeline()
	pipe.Del(context, key)
	pipe.HSet(context, key, map[string]interface{}{
		"code":     strconv.Itoa(record.Code),
		"issuedat": record.IssuedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(context, key, OtpHousekeepingTTL)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_otp_replace_failed: %w", err)
	}

	return nil
}

/*
Find returns the live record for the account.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *OtpRecord: The current record, or nil when none exists
  - error: Connectivity or decoding errors
*/
func (repository *RedisOtpRepository) Find(context context.Context, accountID string) (*OtpRecord, error) {
	values, err := repository.client.HGetAll(context, otpKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_otp_find_failed: %w", err)
	}

	// HGetAll returns an empty map (not redis.Nil) for a missing key.
	if len(values) == 0 {
		return nil, nil
	}

	code, err := strconv.Atoi(values["code"])
	if err != nil {
		return nil, fmt.Errorf("redis_otp_decode_code_failed: %w", err)
	}

	issuedAt, err := time.Parse(time.RFC3339Nano, values["issuedat"])
	if err != nil {
		return nil, fmt.Errorf("redis_otp_decode_timestamp_failed: %w", err)
	}

	return &OtpRecord{
		AccountID: accountID,
		Code:      code,
		IssuedAt:  issuedAt,
	}, nil
}

/*
DeleteAll removes every record for the account.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisOtpRepository) DeleteAll(context context.Context, accountID string) error {
	if err := repository.client.Del(context, otpKey(accountID)).Err(); err != nil {
		return fmt.Errorf("redis_otp_delete_failed: %w", err)
	}
	return nil
}
