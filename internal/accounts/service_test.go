// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsearchhq/devsearch/internal/notify"
	"github.com/devsearchhq/devsearch/internal/platform/apperr"
	"github.com/devsearchhq/devsearch/internal/platform/sec"
)

// # In-memory fakes

type fakeAccountRepo struct {
	byID map[string]*Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[string]*Account)}
}

func (repo *fakeAccountRepo) FindByID(_ context.Context, id string) (*Account, error) {
	if account, ok := repo.byID[id]; ok {
		copied := *account
		return &copied, nil
	}
	return nil, apperr.NotFound("User does not exist.")
}

func (repo *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*Account, error) {
	for _, account := range repo.byID {
		if account.Email == strings.ToLower(email) {
			copied := *account
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User with this email does not exist.")
}

func (repo *fakeAccountRepo) Create(_ context.Context, account *Account) error {
	for _, existing := range repo.byID {
		if existing.Email == strings.ToLower(account.Email) {
			return apperr.AlreadyExists("Email is already registered")
		}
	}
	account.Email = strings.ToLower(account.Email)
	copied := *account
	repo.byID[account.ID] = &copied
	return nil
}

func (repo *fakeAccountRepo) UpdatePassword(_ context.Context, accountID, newHash string) error {
	account, ok := repo.byID[accountID]
	if !ok {
		return apperr.NotFound("User does not exist.")
	}
	account.PasswordHash = newHash
	return nil
}

func (repo *fakeAccountRepo) MarkVerified(_ context.Context, accountID string) error {
	account, ok := repo.byID[accountID]
	if !ok {
		return apperr.NotFound("User does not exist.")
	}
	account.IsVerified = true
	return nil
}

type fakeOtpRepo struct {
	records       map[string]*OtpRecord
	failDeleteAll bool
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{records: make(map[string]*OtpRecord)}
}

func (repo *fakeOtpRepo) Replace(_ context.Context, record *OtpRecord) error {
	copied := *record
	repo.records[record.AccountID] = &copied
	return nil
}

func (repo *fakeOtpRepo) Find(_ context.Context, accountID string) (*OtpRecord, error) {
	if record, ok := repo.records[accountID]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, nil
}

func (repo *fakeOtpRepo) DeleteAll(_ context.Context, accountID string) error {
	if repo.failDeleteAll {
		return fmt.Errorf("store offline")
	}
	delete(repo.records, accountID)
	return nil
}

type fakeRefreshRepo struct {
	records map[string]*RefreshTokenRecord
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{records: make(map[string]*RefreshTokenRecord)}
}

func (repo *fakeRefreshRepo) Register(_ context.Context, record *RefreshTokenRecord) error {
	copied := *record
	repo.records[record.ID] = &copied
	return nil
}

func (repo *fakeRefreshRepo) Revoke(_ context.Context, tokenID string) error {
	if record, ok := repo.records[tokenID]; ok {
		record.IsRevoked = true
	}
	return nil
}

func (repo *fakeRefreshRepo) RevokeAll(_ context.Context, accountID string) error {
	for _, record := range repo.records {
		if record.AccountID == accountID {
			record.IsRevoked = true
		}
	}
	return nil
}

// IsRevoked treats unknown ids as revoked, same as the Postgres registry.
func (repo *fakeRefreshRepo) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	record, ok := repo.records[tokenID]
	if !ok {
		return true, nil
	}
	return record.IsRevoked, nil
}

// fakeTokenProvider mints transparent tokens so tests can follow the flow
// without real signatures.
type fakeTokenProvider struct {
	counter int
	claims  map[string]*sec.RefreshClaims
}

func newFakeTokenProvider() *fakeTokenProvider {
	return &fakeTokenProvider{claims: make(map[string]*sec.RefreshClaims)}
}

func (provider *fakeTokenProvider) GenerateAccessToken(accountID, username string, _ time.Duration) (string, error) {
	return "access:" + accountID + ":" + username, nil
}

func (provider *fakeTokenProvider) GenerateRefreshToken(accountID string, timeToLive time.Duration) (*sec.RefreshGrant, error) {
	provider.counter++
	jti := "jti-" + strconv.Itoa(provider.counter)
	token := "refresh-" + strconv.Itoa(provider.counter)
	provider.claims[token] = &sec.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: jti},
		UserID:           accountID,
	}
	return &sec.RefreshGrant{
		Token:     token,
		TokenID:   jti,
		ExpiresAt: time.Now().Add(timeToLive),
	}, nil
}

func (provider *fakeTokenProvider) VerifyRefreshToken(tokenString string) (*sec.RefreshClaims, error) {
	if claims, ok := provider.claims[tokenString]; ok {
		return claims, nil
	}
	return nil, fmt.Errorf("token malformed")
}

type fakeNotifier struct {
	sent []notify.Message
}

func (notifier *fakeNotifier) Enqueue(message notify.Message) {
	notifier.sent = append(notifier.sent, message)
}

func (notifier *fakeNotifier) lastKind() string {
	if len(notifier.sent) == 0 {
		return ""
	}
	return notifier.sent[len(notifier.sent)-1].Kind
}

// # Test Harness

type serviceHarness struct {
	service  *Service
	accounts *fakeAccountRepo
	otps     *fakeOtpRepo
	tokens   *fakeTokenProvider
	refresh  *fakeRefreshRepo
	notifier *fakeNotifier
}

func newServiceHarness() *serviceHarness {
	accounts := newFakeAccountRepo()
	otps := newFakeOtpRepo()
	tokens := newFakeTokenProvider()
	refresh := newFakeRefreshRepo()
	notifier := &fakeNotifier{}

	ledger := NewOtpLedger(otps, NewCodeGenerator(nil))
	service := NewService(accounts, ledger, tokens, refresh, notifier)

	return &serviceHarness{
		service:  service,
		accounts: accounts,
		otps:     otps,
		tokens:   tokens,
		refresh:  refresh,
		notifier: notifier,
	}
}

// liveOtp reads the account's current code straight from the fake store.
func (harness *serviceHarness) liveOtp(t *testing.T, accountID string) int {
	t.Helper()
	record, ok := harness.otps.records[accountID]
	require.True(t, ok, "expected a live OTP record")
	return record.Code
}

func (harness *serviceHarness) register(t *testing.T, email, password string) *Account {
	t.Helper()
	account, err := harness.service.Register(context.Background(), RegisterInput{
		FirstName: "Dennis",
		LastName:  "Ivy",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return account
}

func (harness *serviceHarness) registerVerified(t *testing.T, email, password string) *Account {
	t.Helper()
	account := harness.register(t, email, password)
	code := harness.liveOtp(t, account.ID)
	_, err := harness.service.VerifyEmail(context.Background(), email, code)
	require.NoError(t, err)
	return account
}

// # Registration & Verification

func TestService_Register(t *testing.T) {
	harness := newServiceHarness()

	account := harness.register(t, "Dennis@DevSearch.io", "sup3rsecret")

	assert.Equal(t, "dennis@devsearch.io", account.Email)
	assert.Equal(t, "dennis-ivy", account.Username)
	assert.False(t, account.IsVerified)
	assert.True(t, account.IsActive)
	assert.NotEqual(t, "sup3rsecret", account.PasswordHash)

	// A verification code was issued and queued for delivery.
	code := harness.liveOtp(t, account.ID)
	assert.GreaterOrEqual(t, code, OtpCodeMin)
	require.Len(t, harness.notifier.sent, 1)
	assert.Equal(t, notify.KindVerificationOtp, harness.notifier.sent[0].Kind)
	assert.Equal(t, account.Email, harness.notifier.sent[0].Recipient)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	harness := newServiceHarness()
	harness.register(t, "dennis@devsearch.io", "sup3rsecret")

	_, err := harness.service.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "dennis@devsearch.io",
		Password:  "an0therpass",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAlreadyExists, apperr.As(err).Code)
}

func TestService_VerifyEmail(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.register(t, "dennis@devsearch.io", "sup3rsecret")
	code := harness.liveOtp(t, account.ID)

	already, err := harness.service.VerifyEmail(ctx, account.Email, code)
	require.NoError(t, err)
	assert.False(t, already)

	stored, err := harness.accounts.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	// The code is consumed.
	_, ok := harness.otps.records[account.ID]
	assert.False(t, ok)

	// Welcome mail queued after the verification mail.
	assert.Equal(t, notify.KindWelcome, harness.notifier.lastKind())

	// Re-verification succeeds without a live code.
	already, err = harness.service.VerifyEmail(ctx, account.Email, 111111)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestService_VerifyEmail_WrongCode(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.register(t, "dennis@devsearch.io", "sup3rsecret")
	code := harness.liveOtp(t, account.ID)

	wrong := code + 1
	if wrong > OtpCodeMax {
		wrong = OtpCodeMin
	}

	_, err := harness.service.VerifyEmail(ctx, account.Email, wrong)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidationError, apperr.As(err).Code)

	stored, err := harness.accounts.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
}

func TestService_SendVerification_Supersedes(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.register(t, "dennis@devsearch.io", "sup3rsecret")
	first := harness.liveOtp(t, account.ID)

	already, err := harness.service.SendVerification(ctx, account.Email)
	require.NoError(t, err)
	assert.False(t, already)

	second := harness.liveOtp(t, account.ID)
	if first != second {
		// The first code must be dead now.
		_, err := harness.service.VerifyEmail(ctx, account.Email, first)
		require.Error(t, err)
	}

	// Verified accounts get no new code.
	_, err = harness.service.VerifyEmail(ctx, account.Email, second)
	require.NoError(t, err)
	already, err = harness.service.SendVerification(ctx, account.Email)
	require.NoError(t, err)
	assert.True(t, already)
}

// # Login & Sessions

func TestService_Login_Unverified(t *testing.T) {
	harness := newServiceHarness()

	harness.register(t, "dennis@devsearch.io", "sup3rsecret")

	_, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "dennis@devsearch.io",
		Password: "sup3rsecret",
	})
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeForbidden, ae.Code)
	assert.Equal(t, "verify_email", ae.Hint["next_action"])
}

func TestService_Login_WrongPassword(t *testing.T) {
	harness := newServiceHarness()
	harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")

	_, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "dennis@devsearch.io",
		Password: "wrongpass1",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)
}

func TestService_Login_UnknownEmail(t *testing.T) {
	harness := newServiceHarness()

	_, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "ghost@devsearch.io",
		Password: "whatever1",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNonExistent, apperr.As(err).Code)
}

func TestService_Login_Inactive(t *testing.T) {
	harness := newServiceHarness()
	account := harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")
	harness.accounts.byID[account.ID].IsActive = false

	_, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "dennis@devsearch.io",
		Password: "sup3rsecret",
	})
	require.Error(t, err)
	ae := apperr.As(err)
	assert.Equal(t, apperr.CodeForbidden, ae.Code)
	assert.Nil(t, ae.Hint)
}

func TestService_LoginRefreshLogout(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")

	pair, err := harness.service.Login(ctx, LoginInput{
		Email:    "dennis@devsearch.io",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	// The refresh token works until logout.
	access, err := harness.service.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	require.NoError(t, harness.service.Logout(ctx, pair.Refresh))

	_, err = harness.service.Refresh(ctx, pair.Refresh)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)

	// Logout of an already revoked token is idempotent.
	assert.NoError(t, harness.service.Logout(ctx, pair.Refresh))
}

func TestService_Refresh_GarbageToken(t *testing.T) {
	harness := newServiceHarness()

	_, err := harness.service.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)
}

func TestService_Refresh_DeactivatedAccount(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")
	pair, err := harness.service.Login(ctx, LoginInput{
		Email:    "dennis@devsearch.io",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)

	harness.accounts.byID[account.ID].IsActive = false

	// Same undifferentiated response as any other token failure.
	_, err = harness.service.Refresh(ctx, pair.Refresh)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)
}

func TestService_LogoutAll(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")

	// Three concurrent sessions.
	pairs := make([]*TokenPair, 0, 3)
	for i := 0; i < 3; i++ {
		pair, err := harness.service.Login(ctx, LoginInput{
			Email:    "dennis@devsearch.io",
			Password: "sup3rsecret",
		})
		require.NoError(t, err)
		pairs = append(pairs, pair)
	}

	require.NoError(t, harness.service.LogoutAll(ctx, account.ID))

	for _, pair := range pairs {
		_, err := harness.service.Refresh(ctx, pair.Refresh)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)
	}
}

// # Password Flows

func TestService_ChangePassword(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")

	err := harness.service.ChangePassword(ctx, account.ID, "wrongpass1", "n3wsecret")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)

	require.NoError(t, harness.service.ChangePassword(ctx, account.ID, "sup3rsecret", "n3wsecret"))

	_, err = harness.service.Login(ctx, LoginInput{Email: "dennis@devsearch.io", Password: "sup3rsecret"})
	require.Error(t, err)

	_, err = harness.service.Login(ctx, LoginInput{Email: "dennis@devsearch.io", Password: "n3wsecret"})
	assert.NoError(t, err)
}

func TestService_PasswordReset_FullFlow(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")

	require.NoError(t, harness.service.RequestPasswordReset(ctx, account.Email))
	assert.Equal(t, notify.KindResetOtp, harness.notifier.lastKind())
	code := harness.liveOtp(t, account.ID)

	// Pre-flight check leaves the code live.
	require.NoError(t, harness.service.VerifyPasswordResetOtp(ctx, account.Email, code))

	require.NoError(t, harness.service.CompletePasswordReset(ctx, account.Email, code, "n3wsecret"))
	assert.Equal(t, notify.KindResetSuccess, harness.notifier.lastKind())

	// The code is consumed and cannot reset twice.
	err := harness.service.CompletePasswordReset(ctx, account.Email, code, "y3tanother")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidationError, apperr.As(err).Code)

	_, err = harness.service.Login(ctx, LoginInput{Email: account.Email, Password: "n3wsecret"})
	assert.NoError(t, err)
}

func TestService_PasswordReset_ConsumeFailureSurfaces(t *testing.T) {
	harness := newServiceHarness()
	ctx := context.Background()

	account := harness.registerVerified(t, "dennis@devsearch.io", "sup3rsecret")
	require.NoError(t, harness.service.RequestPasswordReset(ctx, account.Email))
	code := harness.liveOtp(t, account.ID)

	harness.otps.failDeleteAll = true
	err := harness.service.CompletePasswordReset(ctx, account.Email, code, "n3wsecret")
	require.Error(t, err)
	assert.NotEqual(t, notify.KindResetSuccess, harness.notifier.lastKind())

	// The password write precedes the cleanup, so it sticks.
	_, err = harness.service.Login(ctx, LoginInput{Email: account.Email, Password: "n3wsecret"})
	assert.NoError(t, err)

	// Once the store recovers the code is burned on the next completion.
	harness.otps.failDeleteAll = false
	require.NoError(t, harness.service.CompletePasswordReset(ctx, account.Email, code, "an0thersecret"))
	err = harness.service.CompletePasswordReset(ctx, account.Email, code, "y3tanother")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidationError, apperr.As(err).Code)
}

func TestService_PasswordReset_UnknownEmail(t *testing.T) {
	harness := newServiceHarness()

	err := harness.service.RequestPasswordReset(context.Background(), "ghost@devsearch.io")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNonExistent, apperr.As(err).Code)
}
