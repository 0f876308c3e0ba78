// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts

import (
	"context"
	"errors"
	"time"
)

// # Storage Sentinels

var (
	// ErrEmailTaken is returned by repository implementations when an insert
	// or update violates the unique constraint on email. The storage layer,
	// not a check-then-insert in the service, is the authority on uniqueness.
	ErrEmailTaken = errors.New("accounts: email already taken")

	// ErrUsernameTaken is returned by repository implementations when an
	// insert violates the unique constraint on username.
	ErrUsernameTaken = errors.New("accounts: username already taken")
)

// # Account Data Access

// AccountRepository defines the data access contract for accounts.
//
// Implementations MUST enforce email (case-insensitive) and username
// uniqueness atomically at the storage layer and surface violations as
// [ErrEmailTaken] / [ErrUsernameTaken].
type AccountRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: [ErrAccountNotFound] or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail returns the account with the given email, compared
		case-insensitively.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: [ErrAccountNotFound] or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *Account: Hydrated entity
		  - error: [ErrAccountNotFound] or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*Account, error)

	/*
		Count returns the total number of accounts. Used as the snapshot
		counter feeding [AllocateUsername].

		Parameters:
		  - context: context.Context

		Returns:
		  - int: Current account count
		  - error: Database retrieval failures
	*/
	Count(context context.Context) (int, error)

	/*
		Insert persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: [ErrEmailTaken], [ErrUsernameTaken], or persistence failures
	*/
	Insert(context context.Context, account *Account) error

	/*
		Update persists only the named fields of an existing account.

		Parameters:
		  - context: context.Context
		  - account: *Account
		  - changedFields: ...string (Field identifiers, e.g. FieldEmail)

		Returns:
		  - error: [ErrEmailTaken] (when email changes collide) or persistence failures
	*/
	Update(context context.Context, account *Account, changedFields ...string) error
}

// # Session Data Access

// SessionRepository defines the contract for storing volatile, opaque
// browser-session tokens.
//
// The core never manages cookie transport; it only maps tokens to account
// ids with a TTL so the web layer can establish and rotate sessions.
type SessionRepository interface {

	/*
		Create stores a session token associated with an accountID for a
		limited duration.

		Parameters:
		  - context: context.Context
		  - token: string (Plaintext opaque token; implementations store a hash)
		  - accountID: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, token string, accountID string, ttl time.Duration) error

	/*
		Resolve retrieves the accountID associated with a session token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - string: AccountID
		  - error: Resolution failures (absent or expired token)
	*/
	Resolve(context context.Context, token string) (string, error)

	/*
		Delete removes a session token, ending the session.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - error: Deletion failures
	*/
	Delete(context context.Context, token string) error
}
