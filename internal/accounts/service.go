// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/devsearchhq/devsearch/internal/notify"
	"github.com/devsearchhq/devsearch/internal/platform/apperr"
	"github.com/devsearchhq/devsearch/internal/platform/sec"
	"github.com/devsearchhq/devsearch/pkg/slug"
	"github.com/devsearchhq/devsearch/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for minting and verifying security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed access JWT for the given account.
	GenerateAccessToken(accountID, username string, timeToLive time.Duration) (string, error)

	// GenerateRefreshToken creates a signed refresh JWT carrying a fresh jti.
	GenerateRefreshToken(accountID string, timeToLive time.Duration) (*sec.RefreshGrant, error)

	// VerifyRefreshToken checks signature and expiry of a refresh JWT.
	// Revocation state is tracked separately by the service.
	VerifyRefreshToken(tokenString string) (*sec.RefreshClaims, error)
}

// Notifier accepts messages for background delivery. Submissions never block
// and never surface delivery failures to the caller.
type Notifier interface {
	Enqueue(message notify.Message)
}

// TokenPair carries the credentials issued on a successful login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Service implements the account lifecycle use cases: registration, email
// verification, login, token refresh, session revocation, and the two
// password flows.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance, or OTP handling must be reviewed by the security team.
type Service struct {
	accounts      AccountRepository
	otps          *OtpLedger
	tokens        TokenProvider
	refreshTokens RefreshTokenRepository
	notifier      Notifier
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	accountRepo AccountRepository,
	otpLedger *OtpLedger,
	tokenProv TokenProvider,
	refreshRepo RefreshTokenRepository,
	notifier Notifier,
) *Service {
	return &Service{
		accounts:      accountRepo,
		otps:          otpLedger,
		tokens:        tokenProv,
		refreshTokens: refreshRepo,
		notifier:      notifier,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

/*
Register creates an unverified account and starts the email verification flow.

Description: Hashes the password, derives a URL-safe username from the
member's name, persists the account, and issues a verification OTP delivered
by email.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Account: Created entity
  - error: AlreadyExists (duplicate email) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Account, error) {

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("accounts_service_hash_failed: %w", err)
	}

	// Time-sortable ID to prevent PG index fragmentation.
	account := &Account{
		ID:           uuid.New(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     slug.From(input.FirstName + " " + input.LastName),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		IsVerified:   false,
		IsActive:     true,
	}

	// The repository maps duplicate emails to a client-safe AlreadyExists.
	if err := service.accounts.Create(context, account); err != nil {
		return nil, err
	}

	// Start verification as a side effect. A failed issue is not fatal to
	// registration; the member can request a fresh code at any time.
	if code, err := service.otps.Issue(context, account.ID); err == nil {
		service.notifier.Enqueue(notify.Message{
			Kind:      notify.KindVerificationOtp,
			Recipient: account.Email,
			Context: map[string]string{
				"name": account.FullName(),
				"otp":  strconv.Itoa(code),
			},
		})
	}

	return account, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login validates credentials and issues an access and refresh token pair.

Description: Rejects unverified and deactivated accounts before the password
is checked, performs constant-time password comparison, and registers the
refresh token's jti so it can be revoked later. Multiple concurrent sessions
per account are allowed.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *TokenPair: Transport-ready credentials
  - error: NotFound, Forbidden, Unauthorized, or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*TokenPair, error) {
	account, err := service.accounts.FindByEmail(context, input.Email)
	if err != nil {
		return nil, err
	}

	// Unverified members are pointed at the verification flow.
	if !account.IsVerified {
		return nil, apperr.Forbidden("Email address is not verified.").
			WithHint(map[string]any{"next_action": "verify_email"})
	}

	if !account.IsActive {
		return nil, apperr.Forbidden("Account has been deactivated.")
	}

	// Constant-time comparison in bcrypt to prevent timing attacks.
	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials provided.")
	}

	accessToken, err := service.tokens.GenerateAccessToken(account.ID, account.Username, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("accounts_service_access_token_failed: %w", err)
	}

	grant, err := service.tokens.GenerateRefreshToken(account.ID, RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("accounts_service_refresh_token_failed: %w", err)
	}

	// Track the jti so logout and logout-all can revoke it.
	record := &RefreshTokenRecord{
		ID:        grant.TokenID,
		AccountID: account.ID,
		ExpiresAt: grant.ExpiresAt,
		IsRevoked: false,
	}
	if err := service.refreshTokens.Register(context, record); err != nil {
		return nil, fmt.Errorf("accounts_service_register_token_failed: %w", err)
	}

	return &TokenPair{Access: accessToken, Refresh: grant.Token}, nil
}

// # Session Management

/*
Refresh exchanges a valid, non-revoked refresh token for a new access token.

Description: Verifies signature and expiry, consults the revocation registry
for the token's jti, and mints a fresh access token. The refresh token itself
is NOT rotated; it stays valid until logout or expiry.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - string: New access token
  - error: Unauthorized on any verification or revocation failure
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (string, error) {
	claims, err := service.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", apperr.Unauthorized("Token is invalid or expired")
	}

	revoked, err := service.refreshTokens.IsRevoked(context, claims.ID)
	if err != nil {
		return "", fmt.Errorf("accounts_service_revocation_check_failed: %w", err)
	}
	if revoked {
		return "", apperr.Unauthorized("Token is blacklisted")
	}

	// Username is re-read so renamed accounts get current claims. Deactivated
	// accounts get the same undifferentiated 401 as any other token failure
	// so a presented token reveals nothing about account state.
	account, err := service.accounts.FindByID(context, claims.UserID)
	if err != nil {
		return "", apperr.Unauthorized("Token is invalid or expired")
	}
	if !account.IsActive {
		return "", apperr.Unauthorized("Token is invalid or expired")
	}

	accessToken, err := service.tokens.GenerateAccessToken(account.ID, account.Username, AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("accounts_service_refresh_access_failed: %w", err)
	}

	return accessToken, nil
}

/*
Logout revokes the presented refresh token.

Description: The token must still verify; its jti is then flagged in the
revocation registry. Revoking an already-revoked token succeeds silently.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - error: Unauthorized or revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	claims, err := service.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return apperr.Unauthorized("Token is invalid or expired")
	}

	if err := service.refreshTokens.Revoke(context, claims.ID); err != nil {
		return fmt.Errorf("accounts_service_logout_failed: %w", err)
	}

	return nil
}

/*
LogoutAll revokes every outstanding refresh token for the account.

Description: Flags all non-expired, non-revoked registry entries. Access
tokens already in flight remain valid until their short expiry.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Revocation failures
*/
func (service *Service) LogoutAll(context context.Context, accountID string) error {
	if err := service.refreshTokens.RevokeAll(context, accountID); err != nil {
		return fmt.Errorf("accounts_service_logout_all_failed: %w", err)
	}
	return nil
}

// # Email Verification

/*
SendVerification issues a fresh verification OTP for the account.

Description: Any previously issued code is superseded. Verified accounts get
no new code; the caller reports that state as a success.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - bool: True when the account is already verified and no code was sent
  - error: NotFound or issuance failures
*/
func (service *Service) SendVerification(context context.Context, email string) (bool, error) {
	account, err := service.accounts.FindByEmail(context, email)
	if err != nil {
		return false, err
	}

	if account.IsVerified {
		return true, nil
	}

	code, err := service.otps.Issue(context, account.ID)
	if err != nil {
		return false, err
	}

	service.notifier.Enqueue(notify.Message{
		Kind:      notify.KindVerificationOtp,
		Recipient: account.Email,
		Context: map[string]string{
			"name": account.FullName(),
			"otp":  strconv.Itoa(code),
		},
	})

	return false, nil
}

/*
VerifyEmail confirms the account's email address using its live OTP.

Description: Verified accounts short-circuit before the code is inspected,
so re-verification succeeds without a live OTP. Otherwise the code is
validated, consumed, the account flagged verified, and a welcome notification
queued.

Parameters:
  - context: context.Context
  - email: string
  - code: int

Returns:
  - bool: True when the account was already verified
  - error: NotFound, BadRequest (wrong code), Expired, or storage failures
*/
func (service *Service) VerifyEmail(context context.Context, email string, code int) (bool, error) {
	account, err := service.accounts.FindByEmail(context, email)
	if err != nil {
		return false, err
	}

	if account.IsVerified {
		return true, nil
	}

	if err := service.otps.Validate(context, account.ID, code); err != nil {
		return false, err
	}

	if err := service.accounts.MarkVerified(context, account.ID); err != nil {
		return false, fmt.Errorf("accounts_service_verify_failed: %w", err)
	}

	// The used code must be burned; a live leftover could still authorize a
	// password reset through the shared OTP slot.
	if err := service.otps.Consume(context, account.ID); err != nil {
		return false, fmt.Errorf("accounts_service_consume_failed: %w", err)
	}

	service.notifier.Enqueue(notify.Message{
		Kind:      notify.KindWelcome,
		Recipient: account.Email,
		Context:   map[string]string{"name": account.FullName()},
	})

	return false, nil
}

// # Password Flows

/*
ChangePassword updates the password of an authenticated member.

Description: Requires the current password. Other sessions stay logged in;
members who suspect compromise should follow up with LogoutAll.

Parameters:
  - context: context.Context
  - accountID: string
  - oldPassword: string
  - newPassword: string

Returns:
  - error: Unauthorized (wrong old password) or storage failures
*/
func (service *Service) ChangePassword(context context.Context, accountID, oldPassword, newPassword string) error {
	account, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(oldPassword, account.PasswordHash) {
		return apperr.Unauthorized("Old password is incorrect.")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("accounts_service_change_hash_failed: %w", err)
	}

	if err := service.accounts.UpdatePassword(context, accountID, hashedPassword); err != nil {
		return fmt.Errorf("accounts_service_change_update_failed: %w", err)
	}

	return nil
}

/*
RequestPasswordReset starts the forgot-password flow by issuing a reset OTP.

Description: The account shares a single live OTP slot across flows, so a
pending verification code is superseded by the reset code.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: NotFound or issuance failures
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	account, err := service.accounts.FindByEmail(context, email)
	if err != nil {
		return err
	}

	code, err := service.otps.Issue(context, account.ID)
	if err != nil {
		return err
	}

	service.notifier.Enqueue(notify.Message{
		Kind:      notify.KindResetOtp,
		Recipient: account.Email,
		Context: map[string]string{
			"name": account.FullName(),
			"otp":  strconv.Itoa(code),
		},
	})

	return nil
}

/*
VerifyPasswordResetOtp checks a reset code without consuming it.

Description: Lets the client confirm the code before collecting the new
password. The code stays live for the completion step.

Parameters:
  - context: context.Context
  - email: string
  - code: int

Returns:
  - error: NotFound, BadRequest (wrong code), or Expired
*/
func (service *Service) VerifyPasswordResetOtp(context context.Context, email string, code int) error {
	account, err := service.accounts.FindByEmail(context, email)
	if err != nil {
		return err
	}

	return service.otps.Validate(context, account.ID, code)
}

/*
CompletePasswordReset finishes the forgot-password flow.

Description: Re-validates the code, replaces the password hash, consumes the
code so it cannot authorize a second reset, and queues a confirmation email.

Parameters:
  - context: context.Context
  - email: string
  - code: int
  - newPassword: string

Returns:
  - error: NotFound, BadRequest, Expired, or storage failures
*/
func (service *Service) CompletePasswordReset(context context.Context, email string, code int, newPassword string) error {
	account, err := service.accounts.FindByEmail(context, email)
	if err != nil {
		return err
	}

	if err := service.otps.Validate(context, account.ID, code); err != nil {
		return err
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("accounts_service_reset_hash_failed: %w", err)
	}

	if err := service.accounts.UpdatePassword(context, account.ID, hashedPassword); err != nil {
		return fmt.Errorf("accounts_service_reset_update_failed: %w", err)
	}

	// The new password is already written at this point, but the caller must
	// learn that the code is still live and could authorize another reset.
	if err := service.otps.Consume(context, account.ID); err != nil {
		return fmt.Errorf("accounts_service_reset_consume_failed: %w", err)
	}

	service.notifier.Enqueue(notify.Message{
		Kind:      notify.KindResetSuccess,
		Recipient: account.Email,
		Context:   map[string]string{"name": account.FullName()},
	})

	return nil
}
