// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a refresh token remains valid.
	// Long-lived (30 days) to provide a good user experience; individual
	// tokens can be revoked at any time before that.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// OtpWindow is how long an issued OTP code remains valid, measured
	// from its issue timestamp by wall-clock comparison at validation time.
	OtpWindow = 15 * time.Minute

	// OtpHousekeepingTTL is the Redis key TTL for OTP records. It is
	// deliberately far longer than OtpWindow: expiry is judged by the
	// issue timestamp, the key TTL only garbage-collects stale rows.
	OtpHousekeepingTTL = 24 * time.Hour

	// OtpCodeMin and OtpCodeMax bound the uniformly random 6-digit code.
	OtpCodeMin = 100000
	OtpCodeMax = 999999
)
