// Copyright (c) 2026 DevSearch. All rights reserved.

package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devsearchhq/devsearch/internal/platform/middleware"
	requestutil "github.com/devsearchhq/devsearch/internal/platform/request"
	"github.com/devsearchhq/devsearch/internal/platform/respond"
	"github.com/devsearchhq/devsearch/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the account lifecycle entry
// points (registration, verification, login, sessions, password flows).
// It is strictly responsible for transport concerns (status codes, input
// validation, JSON envelopes).
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register                 : Creates a new unverified account.
//   - POST /token                    : Authenticates and returns a token pair.
//   - POST /token/refresh            : Exchanges a refresh token for a new access token.
//   - POST /verification             : Sends a fresh verification OTP.
//   - POST /verification/verify      : Confirms the email address with an OTP.
//   - POST /sessions                 : Revokes the presented refresh token.
//   - POST /sessions/all             : Revokes every session of the caller.
//   - POST /passwords/change         : Changes the caller's password.
//   - POST /passwords/reset          : Sends a password reset OTP.
//   - POST /passwords/reset/verify   : Checks a reset OTP without consuming it.
//   - POST /passwords/reset/complete : Sets a new password using the OTP.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Entry points for members without a session.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAnonymous)
		r.Post("/register", handler.register)
		r.Post("/token", handler.login)
	})

	// Public endpoints
	router.Post("/token/refresh", handler.refresh)
	router.Post("/verification", handler.sendVerification)
	router.Post("/verification/verify", handler.verifyEmail)
	router.Post("/passwords/reset", handler.requestReset)
	router.Post("/passwords/reset/verify", handler.verifyResetOtp)
	router.Post("/passwords/reset/complete", handler.completeReset)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Post("/sessions", handler.logout)
		r.Post("/sessions/all", handler.logoutAll)
		r.Post("/passwords/change", handler.changePassword)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	Otp   int    `json:"otp"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type completeResetRequest struct {
	Email       string `json:"email"`
	Otp         int    `json:"otp"`
	NewPassword string `json:"new_password"`
}

// # Registration & Login

/*
Register handles the creation of a new account.

POST /api/v1/auth/register

Description: Validates input, persists an unverified account, and kicks off
OTP email verification.

Request:
  - Body: registerRequest (FirstName, LastName, Email, Password)

Response:
  - 201: {email}: Registration accepted, verification email queued
  - 400: Bad JSON
  - 422: Validation failure or email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldFirstName, input.FirstName).
		Alpha(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, 64).
		Required(FieldLastName, input.LastName).
		Alpha(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, 64).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		Password(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Register(request.Context(), RegisterInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  input.Password,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer,
		"Registration successful. Check your email for the verification code.",
		map[string]string{"email": account.Email},
	)
}

/*
Login authenticates a member and issues a token pair.

POST /api/v1/auth/token

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: {access, refresh}
  - 401: Wrong password
  - 403: Unverified (with next_action hint) or deactivated account
  - 404: Unknown email
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokens, err := handler.accountService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Login successful.", tokens)
}

/*
Refresh exchanges a valid refresh token for a new access token.

POST /api/v1/auth/token/refresh

Request:
  - Body: refreshRequest (Refresh)

Response:
  - 200: {access}
  - 401: Invalid, expired, or blacklisted refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefresh, input.Refresh)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	access, err := handler.accountService.Refresh(request.Context(), input.Refresh)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Token refreshed.", map[string]string{"access": access})
}

// # Email Verification

/*
SendVerification issues a fresh verification OTP for an account.

POST /api/v1/auth/verification

Request:
  - Body: emailRequest (Email)

Response:
  - 200: Code sent, or account already verified
  - 404: Unknown email
*/
func (handler *Handler) sendVerification(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	alreadyVerified, err := handler.accountService.SendVerification(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if alreadyVerified {
		respond.OK(writer, "Account is already verified.", nil)
		return
	}

	respond.OK(writer, "Verification code sent. Check your email.", nil)
}

/*
VerifyEmail confirms an email address using the live OTP.

POST /api/v1/auth/verification/verify

Request:
  - Body: otpRequest (Email, Otp)

Response:
  - 200: Verified (or already verified)
  - 400: Wrong code
  - 404: Unknown email
  - 410: Expired code
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input otpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// The code itself is not shape-checked here: any value that does not match
	// the live record gets the same invalid-OTP response from the ledger.
	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	alreadyVerified, err := handler.accountService.VerifyEmail(request.Context(), input.Email, input.Otp)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if alreadyVerified {
		respond.OK(writer, "Account is already verified.", nil)
		return
	}

	respond.OK(writer, "Email verified successfully.", nil)
}

// # Session Management

/*
Logout revokes the presented refresh token.

POST /api/v1/auth/sessions

Request:
  - Body: refreshRequest (Refresh)

Response:
  - 200: Session revoked
  - 401: Missing session or invalid refresh token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefresh, input.Refresh)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.Logout(request.Context(), input.Refresh); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Logged out successfully.", nil)
}

/*
LogoutAll revokes every outstanding session of the caller.

POST /api/v1/auth/sessions/all

Response:
  - 200: All sessions revoked
  - 401: Missing session
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.LogoutAll(request.Context(), accountID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "All sessions revoked.", nil)
}

// # Password Flows

/*
ChangePassword updates the caller's password.

POST /api/v1/auth/passwords/change

Request:
  - Body: changePasswordRequest (OldPassword, NewPassword)

Response:
  - 200: Password changed
  - 401: Missing session or wrong old password
  - 422: Weak new password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldOldPassword, input.OldPassword).
		Required(FieldNewPassword, input.NewPassword).
		Password(FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangePassword(request.Context(), accountID, input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Password changed successfully.", nil)
}

/*
RequestReset sends a password reset OTP.

POST /api/v1/auth/passwords/reset

Request:
  - Body: emailRequest (Email)

Response:
  - 200: Code sent
  - 404: Unknown email
*/
func (handler *Handler) requestReset(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Password reset code sent. Check your email.", nil)
}

/*
VerifyResetOtp checks a reset code without consuming it.

POST /api/v1/auth/passwords/reset/verify

Request:
  - Body: otpRequest (Email, Otp)

Response:
  - 200: Code is valid and still live
  - 400: Wrong code
  - 404: Unknown email
  - 410: Expired code
*/
func (handler *Handler) verifyResetOtp(writer http.ResponseWriter, request *http.Request) {
	var input otpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.VerifyPasswordResetOtp(request.Context(), input.Email, input.Otp); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "OTP verified.", nil)
}

/*
CompleteReset sets a new password using the reset OTP.

POST /api/v1/auth/passwords/reset/complete

Request:
  - Body: completeResetRequest (Email, Otp, NewPassword)

Response:
  - 200: Password reset
  - 400: Wrong code
  - 404: Unknown email
  - 410: Expired code
  - 422: Weak new password
*/
func (handler *Handler) completeReset(writer http.ResponseWriter, request *http.Request) {
	var input completeResetRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldNewPassword, input.NewPassword).
		Password(FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.CompletePasswordReset(request.Context(), input.Email, input.Otp, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Password reset successful.", nil)
}
