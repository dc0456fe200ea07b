// Copyright (c) 2026 DevSearch. All rights reserved.

// PostgreSQL implementations of the accounts storage contracts.
//
// # Error Mapping
//
// Storage-specific errors (pgx.ErrNoRows, unique violations) are mapped to
// domain-friendly [apperr.AppError] types at this boundary to avoid leaking
// storage implementation details.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devsearchhq/devsearch/internal/platform/apperr"
	"github.com/devsearchhq/devsearch/internal/platform/dberr"
)

// # Account Repository

// PostgresAccountRepository implements the AccountRepository interface using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

/*
Create persists a new account record into the users.account table.

Description: Emails are stored lowercased so the unique index doubles as the
case-insensitive uniqueness guarantee.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: apperr.AlreadyExists on a duplicate email, or connectivity errors
*/
func (repository *PostgresAccountRepository) Create(context context.Context, account *Account) error {
	const query = `
		INSERT INTO users.account (
			id, firstname, lastname, username, email, passwordhash, isverified, isactive, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Email = strings.ToLower(account.Email)

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.FirstName,
		account.LastName,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.IsVerified,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.AlreadyExists("Email is already registered")
		}
		return fmt.Errorf("postgres_account_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByEmail retrieves an account record by its unique email address.

Parameters:
  - context: context.Context
  - email: string (matched case-insensitively)

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresAccountRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	const query = `
		SELECT id, firstname, lastname, username, email, passwordhash, isverified, isactive, createdat, updatedat
		FROM users.account
		WHERE email = $1`

	account := &Account{}
	err := repository.pool.QueryRow(context, query, strings.ToLower(email)).Scan(
		&account.ID,
		&account.FirstName,
		&account.LastName,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.IsVerified,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User with this email does not exist.")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_email_failed: %w", err)
	}

	return account, nil
}

/*
FindByID retrieves an account record by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*Account, error) {
	const query = `
		SELECT id, firstname, lastname, username, email, passwordhash, isverified, isactive, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	account := &Account{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&account.ID,
		&account.FirstName,
		&account.LastName,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.IsVerified,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_id_failed: %w", err)
	}

	return account, nil
}

/*
UpdatePassword updates only the password hash for a specific account.

Parameters:
  - context: context.Context
  - accountID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) UpdatePassword(context context.Context, accountID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
MarkVerified updates the account's status to isverified = true.

Description: Idempotent by construction — re-running the UPDATE on an
already-verified row changes nothing.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Database errors
*/
func (repository *PostgresAccountRepository) MarkVerified(context context.Context, accountID string) error {
	const query = "UPDATE users.account SET isverified = TRUE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, accountID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_repo_mark_verified_failed: %w", err)
	}
	return nil
}

// # Refresh Token Registry

// PostgresRefreshTokenRepository implements the RefreshTokenRepository interface.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of RefreshTokenRepository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

/*
Register records a freshly minted refresh token in the users.refreshtoken table.

Parameters:
  - context: context.Context
  - record: *RefreshTokenRecord

Returns:
  - error: Storage failures
*/
func (repository *PostgresRefreshTokenRepository) Register(context context.Context, record *RefreshTokenRecord) error {
	const query = `
		INSERT INTO users.refreshtoken (
			id, accountid, expiresat, isrevoked, createdat
		) VALUES ($1, $2, $3, $4, $5)`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		record.ID,
		record.AccountID,
		record.ExpiresAt,
		record.IsRevoked,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_register_failed: %w", err)
	}

	return nil
}

/*
Revoke blacklists a specific token id.

Description: Idempotent — revoking an already-revoked or unknown id affects
zero rows and is not an error.

Parameters:
  - context: context.Context
  - tokenID: string

Returns:
  - error: Revocation failures
*/
func (repository *PostgresRefreshTokenRepository) Revoke(context context.Context, tokenID string) error {
	const query = "UPDATE users.refreshtoken SET isrevoked = TRUE WHERE id = $1"
	_, err := repository.pool.Exec(context, query, tokenID)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_revoke_failed: %w", err)
	}
	return nil
}

/*
RevokeAll blacklists every outstanding, non-expired token for an account.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Batch revocation failures
*/
func (repository *PostgresRefreshTokenRepository) RevokeAll(context context.Context, accountID string) error {
	const query = `
		UPDATE users.refreshtoken
		SET isrevoked = TRUE
		WHERE accountid = $1 AND isrevoked = FALSE AND expiresat > NOW()`

	_, err := repository.pool.Exec(context, query, accountID)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_revoke_all_failed: %w", err)
	}
	return nil
}

/*
IsRevoked reports whether the token id is blacklisted.

Description: An id that was never registered is treated as revoked — only
tokens this registry has seen may mint access tokens.

Parameters:
  - context: context.Context
  - tokenID: string

Returns:
  - bool: Revocation state
  - error: Retrieval failures
*/
func (repository *PostgresRefreshTokenRepository) IsRevoked(context context.Context, tokenID string) (bool, error) {
	const query = "SELECT isrevoked FROM users.refreshtoken WHERE id = $1"

	var isRevoked bool
	err := repository.pool.QueryRow(context, query, tokenID).Scan(&isRevoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("postgres_refresh_token_repo_is_revoked_failed: %w", err)
	}

	return isRevoked, nil
}
