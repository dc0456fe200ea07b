// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/devsearchhq/devsearch/internal/platform/apperr"
)

// # Code Generation

// CodeGenerator produces six-digit one-time passcodes from an injected
// entropy source, so tests can drive it deterministically.
type CodeGenerator struct {
	rand io.Reader
}

// NewCodeGenerator creates a generator backed by the given entropy source.
// A nil source falls back to crypto/rand.
func NewCodeGenerator(source io.Reader) *CodeGenerator {
	if source == nil {
		source = rand.Reader
	}
	return &CodeGenerator{rand: source}
}

// Generate returns a uniformly distributed code in [100000, 999999].
func (generator *CodeGenerator) Generate() (int, error) {
	span := big.NewInt(int64(OtpCodeMax - OtpCodeMin + 1))

	offset, err := rand.Int(generator.rand, span)
	if err != nil {
		return 0, fmt.Errorf("otp_generate_failed: %w", err)
	}

	return OtpCodeMin + int(offset.Int64()), nil
}

// # Ledger

// OtpLedger manages the single live passcode per account. Issuing a new
// code always replaces the previous one, and validity is bounded by a
// wall-clock window measured from the issue timestamp.
type OtpLedger struct {
	records OtpRepository
	codes   *CodeGenerator
	window  time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewOtpLedger creates a new OtpLedger.
func NewOtpLedger(records OtpRepository, codes *CodeGenerator) *OtpLedger {
	return &OtpLedger{
		records: records,
		codes:   codes,
		window:  OtpWindow,
		now:     time.Now,
	}
}

/*
Issue generates a fresh passcode for the account and stores it, voiding
any previously issued code.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - int: The newly issued code, for delivery to the account's email
  - error: Generation or storage failures
*/
func (ledger *OtpLedger) Issue(context context.Context, accountID string) (int, error) {
	code, err := ledger.codes.Generate()
	if err != nil {
		return 0, err
	}

	record := &OtpRecord{
		AccountID: accountID,
		Code:      code,
		IssuedAt:  ledger.now().UTC(),
	}

	if err := ledger.records.Replace(context, record); err != nil {
		return 0, err
	}

	return code, nil
}

/*
Validate checks a presented code against the account's live record.

Description: A missing record and a mismatched code are indistinguishable
to the caller. An expired code is reported distinctly so clients can prompt
for re-issuance. Validation never consumes the code; call Consume after the
flow that required it has finished.

Parameters:
  - context: context.Context
  - accountID: string
  - code: int

Returns:
  - error: apperr with CodeValidationError or CodeExpired on rejection
*/
func (ledger *OtpLedger) Validate(context context.Context, accountID string, code int) error {
	record, err := ledger.records.Find(context, accountID)
	if err != nil {
		return err
	}

	if record == nil || record.Code != code {
		return apperr.BadRequest("Invalid OTP provided.")
	}

	if ledger.now().UTC().Sub(record.IssuedAt) > ledger.window {
		return apperr.Expired("OTP has expired.")
	}

	return nil
}

/*
Consume removes the account's live record once the protected flow has
completed, so the code cannot be replayed.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Deletion failures
*/
func (ledger *OtpLedger) Consume(context context.Context, accountID string) error {
	return ledger.records.DeleteAll(context, accountID)
}
