// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import (
	"context"
)

// # Account Data Access

// AccountRepository defines the data access contract for user accounts.
type AccountRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail returns the account with the given email.
		Lookup is case-insensitive; emails are stored lowercased.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		Create persists a brand-new account to the storage.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: apperr.AlreadyExists on a duplicate email, or persistence failures
	*/
	Create(context context.Context, account *Account) error

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, accountID, newHash string) error

	/*
		MarkVerified updates the account's status to isverified = true.
		Idempotent: marking an already-verified account is a no-op.

		Parameters:
		  - context: context.Context
		  - accountID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, accountID string) error
}

// # OTP Data Access

// OtpRepository defines the storage contract for the single live OTP record
// per account. Implementations must make Replace a delete-then-insert so the
// single-record invariant holds; under concurrent issuance the last write wins.
type OtpRepository interface {

	/*
		Replace removes any existing record(s) for the account and stores
		the new one.

		Parameters:
		  - context: context.Context
		  - record: *OtpRecord

		Returns:
		  - error: Persistence failures
	*/
	Replace(context context.Context, record *OtpRecord) error

	/*
		Find returns the live record for the account, if any.

		Parameters:
		  - context: context.Context
		  - accountID: string

		Returns:
		  - *OtpRecord: The current record, or nil when none exists
		  - error: Retrieval failures
	*/
	Find(context context.Context, accountID string) (*OtpRecord, error)

	/*
		DeleteAll removes every record for the account.

		Parameters:
		  - context: context.Context
		  - accountID: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteAll(context context.Context, accountID string) error
}

// # Refresh Token Registry

// RefreshTokenRepository is the durable registry of issued refresh tokens and
// their revocation state (the session revocation list).
type RefreshTokenRepository interface {

	/*
		Register records a freshly minted refresh token as outstanding.

		Parameters:
		  - context: context.Context
		  - record: *RefreshTokenRecord

		Returns:
		  - error: Persistence failures
	*/
	Register(context context.Context, record *RefreshTokenRecord) error

	/*
		Revoke blacklists a specific token id. Idempotent: revoking an
		already-revoked or unknown id is not an error.

		Parameters:
		  - context: context.Context
		  - tokenID: string

		Returns:
		  - error: Persistence failures
	*/
	Revoke(context context.Context, tokenID string) error

	/*
		RevokeAll blacklists every outstanding, non-expired token id
		belonging to the account.

		Parameters:
		  - context: context.Context
		  - accountID: string

		Returns:
		  - error: Batch revocation failures
	*/
	RevokeAll(context context.Context, accountID string) error

	/*
		IsRevoked reports whether the token id is blacklisted. Checked on
		every refresh attempt.

		Parameters:
		  - context: context.Context
		  - tokenID: string

		Returns:
		  - bool: true if the id can no longer mint access tokens
		  - error: Retrieval failures
	*/
	IsRevoked(context context.Context, tokenID string) (bool, error)
}
