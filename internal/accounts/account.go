// Copyright (c) 2026 DevSearch. All rights reserved.

/*
Package accounts implements the identity and session lifecycle core.

It defines the domain entities (Account, OtpRecord, RefreshTokenRecord) and
the flows for registration, OTP-based email verification, credential login,
token refresh, session revocation, and OTP-based password reset.

# Architecture

This layer is the "Truth" of the identity system. Entities defined here have
no transport or storage dependencies and encapsulate all business rules
related to account identity.
*/
package accounts

import "time"

// # Domain Entities

// Account represents a registered member of the DevSearch platform.
type Account struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	IsVerified   bool      `json:"is_verified"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns the account's display name assembled from its name parts.
func (account *Account) FullName() string {
	return account.FirstName + " " + account.LastName
}

// OtpRecord is the single live one-time secret for an account.
//
// At most one record exists per account at any time; issuing a new code for
// any reason supersedes the previous one. The record carries no purpose tag —
// verification and password-reset flows share the same secret slot.
type OtpRecord struct {
	AccountID string    `json:"account_id"`
	Code      int       `json:"-"` // Never serialized; delivered only via the notifier.
	IssuedAt  time.Time `json:"issued_at"`
}

// RefreshTokenRecord tracks an issued refresh token by its jti.
//
// Every minted refresh token is registered as outstanding so that bulk
// revocation can enumerate it; revoking flips IsRevoked, and a revoked id can
// never again mint an access token, even before its natural expiry.
type RefreshTokenRecord struct {
	ID        string    `json:"id"` // The token's jti claim.
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the accounts domain.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldRefresh     = "refresh"
	FieldOldPassword = "old_password"
	FieldNewPassword = "new_password"
)
