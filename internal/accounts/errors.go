// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts

import (
	"net/http"

	"github.com/taibuivan/baseaccounts/internal/platform/apperr"
)

// # Error Taxonomy
//
// Every failure mode of the account lifecycle is a typed, recoverable,
// user-facing error. The service never logs or formats messages itself; it
// returns one of these values and lets the transport layer translate.
//
// Compare with errors.Is — the vars below are singletons.

var (
	// ErrDuplicateEmail is returned when an email address (case-insensitive)
	// is already owned by another account.
	ErrDuplicateEmail = apperr.New(http.StatusConflict,
		"DUPLICATE_EMAIL", "This email address already exists.")

	// ErrDuplicateUsername is returned when username allocation cannot find a
	// free handle even after retrying with a fresh count.
	ErrDuplicateUsername = apperr.New(http.StatusConflict,
		"DUPLICATE_USERNAME", "This username is already taken.")

	// ErrInvalidCredentials deliberately collapses "no such email" and "wrong
	// password" into one error to avoid account enumeration.
	ErrInvalidCredentials = apperr.New(http.StatusUnauthorized,
		"INVALID_CREDENTIALS", "Please enter a correct email and password.")

	// ErrAccountInactive is returned when credentials verify but the account
	// has been deactivated.
	ErrAccountInactive = apperr.New(http.StatusForbidden,
		"ACCOUNT_INACTIVE", "This account is inactive.")

	// ErrPasswordMismatch is returned when the new password and its
	// confirmation field disagree.
	ErrPasswordMismatch = apperr.New(http.StatusBadRequest,
		"PASSWORD_MISMATCH", "The two password fields didn't match.")

	// ErrWeakCredential is returned when the credential hasher rejects the
	// plaintext under its acceptance policy.
	ErrWeakCredential = apperr.New(http.StatusBadRequest,
		"WEAK_CREDENTIAL", "This password does not meet the minimum requirements.")

	// ErrInvalidToken is returned for any unacceptable confirmation token:
	// bad signature, malformed payload, wrong purpose, stale email binding,
	// or exceeded age.
	ErrInvalidToken = apperr.New(http.StatusBadRequest,
		"INVALID_TOKEN", "The confirmation link is invalid or has expired.")

	// ErrAccountNotFound is returned when no account matches the given id.
	ErrAccountNotFound = apperr.New(http.StatusNotFound,
		"NOT_FOUND", "Account not found")

	// ErrAlreadyConfirmed is returned when confirming an address that is
	// already confirmed. Confirming twice is an error, not a no-op.
	ErrAlreadyConfirmed = apperr.New(http.StatusConflict,
		"ALREADY_CONFIRMED", "This email address has already been confirmed.")
)
