// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// HTTP delivery layer for the account lifecycle.
//
// # Architecture
//
// The handler acts as a thin mediation layer between the web and the domain
// service:
//   - Protocol: Standard RESTful JSON interface.
//   - Security: Owns opaque session cookies (establish, rotate, clear).
//   - Verification: Enforces strict input validation before passing to [Service].
//
// This layer is strictly responsible for transport concerns (status codes,
// headers, JSON, cookies). The domain service never sees a session token.

package accounts

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/baseaccounts/internal/platform/apperr"
	"github.com/taibuivan/baseaccounts/internal/platform/constants"
	"github.com/taibuivan/baseaccounts/internal/platform/middleware"
	requestutil "github.com/taibuivan/baseaccounts/internal/platform/request"
	"github.com/taibuivan/baseaccounts/internal/platform/respond"
	"github.com/taibuivan/baseaccounts/internal/platform/sec"
	"github.com/taibuivan/baseaccounts/internal/platform/validate"
)

// # Definitions & Constructors

// HandlerOptions carries the host-application routing configuration: where
// browser clients should be sent after each auth transition. Pure routing
// concern, never consulted by the domain service.
type HandlerOptions struct {
	PostLoginRedirect  string
	PostSignupRedirect string
	PostLogoutRedirect string
}

// Handler implements the account-lifecycle HTTP endpoints.
type Handler struct {
	accountService    *Service
	sessionRepository SessionRepository
	options           HandlerOptions
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, sessions SessionRepository, options HandlerOptions) *Handler {
	if options.PostLoginRedirect == "" {
		options.PostLoginRedirect = "/"
	}
	if options.PostSignupRedirect == "" {
		options.PostSignupRedirect = "/"
	}
	if options.PostLogoutRedirect == "" {
		options.PostLogoutRedirect = "/"
	}
	return &Handler{
		accountService:    service,
		sessionRepository: sessions,
		options:           options,
	}
}

// Routes returns a [chi.Router] configured with account-lifecycle routes.
//
// # Endpoints
//   - POST /signup        : Creates a new account and starts a session.
//   - POST /login         : Authenticates and starts a session.
//   - POST /confirm-email : Consumes a confirmation token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signUp)
	router.Post("/login", handler.login)
	router.Post("/confirm-email", handler.confirmEmail)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
		r.Post("/logout", handler.logout)
		r.Post("/resend-confirmation", handler.resendConfirmation)
		r.Post("/settings/email", handler.changeEmail)
		r.Post("/settings/password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	AcceptedTOS bool   `json:"accepted_tos"`
	Next        string `json:"next,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Next     string `json:"next,omitempty"`
}

type confirmEmailRequest struct {
	Token string `json:"token"`
}

type changeEmailRequest struct {
	NewEmail string `json:"new_email"`
}

type changePasswordRequest struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

/*
SignUp handles the creation of a new account.

POST /api/v1/accounts/signup

Description: Validates input, delegates enrollment to the domain service, and
establishes an authenticated session for the fresh account.

Request:
  - Body: signUpRequest (Email, Password, DisplayName, AcceptedTOS, Next)

Response:
  - 201: Account + next redirect target
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: DUPLICATE_EMAIL: Email already registered
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	var input signUpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		True(FieldAcceptedTOS, input.AcceptedTOS, "You must accept the terms of service")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.SignUp(request.Context(), SignUpInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Session establishment is the web layer's contract after a successful
	// signup; the domain service never manages cookies.
	if err := handler.startSession(writer, request, account.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		FieldAccount: account,
		FieldNext:    handler.resolveNext(input.Next, handler.options.PostSignupRedirect),
	})
}

/*
Login authenticates an account and establishes a session.

POST /api/v1/accounts/login

Description: Verifies credentials against the domain service and injects an
opaque session cookie into the response.

Request:
  - Body: loginRequest (Email, Password, Next)

Response:
  - 200: Account + next redirect target
  - 401: INVALID_CREDENTIALS: Unknown email or wrong password
  - 403: ACCOUNT_INACTIVE: Credentials valid but account deactivated
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Authenticate(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.startSession(writer, request, account.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldAccount: account,
		FieldNext:    handler.resolveNext(input.Next, handler.options.PostLoginRedirect),
	})
}

/*
Logout terminates the current session.

POST /api/v1/accounts/logout

Description: Flips the one-time first_login flag (a fresh signup ending its
first session), deletes the server-side session, and clears the cookie.

Response:
  - 200: next redirect target
  - 401: UNAUTHORIZED: No active session
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The first logout marks the end of the post-signup "first login" window.
	_ = handler.accountService.MarkFirstLoginComplete(request.Context(), principal.AccountID)

	// Session teardown is best-effort: a missing server-side entry still
	// results in a cleared cookie.
	_ = handler.sessionRepository.Delete(request.Context(), principal.SessionToken)
	handler.clearSessionCookie(writer)

	respond.OK(writer, map[string]any{
		FieldNext: handler.options.PostLogoutRedirect,
	})
}

/*
Me returns the authenticated account's profile.

GET /api/v1/accounts/me

Response:
  - 200: Account
  - 401: UNAUTHORIZED: No active session
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.GetAccount(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
ConfirmEmail consumes a confirmation token.

POST /api/v1/accounts/confirm-email

Description: Validates the signed token and marks the bound email address as
confirmed. Public: the token itself is the proof of control.

Request:
  - Body: confirmEmailRequest (Token)

Response:
  - 200: Account: Confirmed profile
  - 400: INVALID_TOKEN: Bad signature, stale binding, or expired
  - 409: ALREADY_CONFIRMED: Address confirmed previously
*/
func (handler *Handler) confirmEmail(writer http.ResponseWriter, request *http.Request) {
	var input confirmEmailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "is required"))
		return
	}

	account, err := handler.accountService.ConfirmEmail(request.Context(), input.Token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldAccount: account,
		FieldMessage: "Email address confirmed successfully",
	})
}

/*
ResendConfirmation issues a fresh confirmation token for the current account.

POST /api/v1/accounts/resend-confirmation

Response:
  - 200: Success message
  - 409: ALREADY_CONFIRMED: Address needs no confirmation
*/
func (handler *Handler) resendConfirmation(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ResendConfirmation(request.Context(), accountID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "A new confirmation link has been sent to your email address.",
	})
}

/*
ChangeEmail updates the authenticated account's email address.

POST /api/v1/accounts/settings/email

Description: Delegates to the domain service, which clears the confirmation
state on a real change.

Request:
  - Body: changeEmailRequest (NewEmail)

Response:
  - 200: Account: Updated profile
  - 409: DUPLICATE_EMAIL: Address owned by another account
*/
func (handler *Handler) changeEmail(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changeEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldNewEmail, input.NewEmail).Email(FieldNewEmail, input.NewEmail)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.ChangeEmail(request.Context(), accountID, input.NewEmail)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldAccount: account,
		FieldMessage: "Email address updated. Please confirm your new address.",
	})
}

/*
ChangePassword updates the authenticated account's credential.

POST /api/v1/accounts/settings/password

Description: Delegates to the domain service, then ROTATES the session: the
old token is replaced by a fresh one in the same response, so the acting user
stays signed in while any stolen copy of the old token dies.

Request:
  - Body: changePasswordRequest (NewPassword, ConfirmPassword)

Response:
  - 200: Success message
  - 400: PASSWORD_MISMATCH / WEAK_CREDENTIAL: Rejected input
  - 401: UNAUTHORIZED: Session invalid
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
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
	validator.Required(FieldNewPassword, input.NewPassword).
		Required(FieldConfirmPassword, input.ConfirmPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	_, err = handler.accountService.ChangePassword(
		request.Context(),
		principal.AccountID,
		input.NewPassword,
		input.ConfirmPassword,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Rotate, don't invalidate: the new cookie replaces the old token so the
	// acting user remains signed in after the credential change.
	if err := handler.startSession(writer, request, principal.AccountID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	_ = handler.sessionRepository.Delete(request.Context(), principal.SessionToken)

	respond.OK(writer, map[string]string{
		FieldMessage: "Password changed successfully",
	})
}

// # Session Cookies

// startSession mints an opaque token, persists it server-side, and injects
// the session cookie into the response.
func (handler *Handler) startSession(writer http.ResponseWriter, request *http.Request, accountID string) error {
	token, err := sec.GenerateSecureToken(SessionTokenLength)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := handler.sessionRepository.Create(request.Context(), token, accountID, SessionTTL); err != nil {
		return apperr.Internal(err)
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     constants.SessionCookiePath,
		MaxAge:   int(SessionTTL.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// clearSessionCookie expires the session cookie on the client.
func (handler *Handler) clearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// resolveNext picks the post-transition redirect target. Only local paths
// from the request are honored, closing the open-redirect hole.
func (handler *Handler) resolveNext(requested, fallback string) string {
	if strings.HasPrefix(requested, "/") && !strings.HasPrefix(requested, "//") {
		return requested
	}
	return fallback
}
