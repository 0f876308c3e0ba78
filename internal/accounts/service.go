// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/baseaccounts/internal/platform/sec"
	"github.com/taibuivan/baseaccounts/pkg/slug"
	"github.com/taibuivan/baseaccounts/pkg/uuid"
)

// # Contracts & Types

// CredentialHasher defines the contract for one-way password hashing.
type CredentialHasher interface {
	// Hash produces salted, computationally expensive credential material.
	// Implementations are free to reject weak plaintext with an error
	// wrapping [sec.ErrWeakPassword].
	Hash(plainTextPassword string) (string, error)

	// Verify compares plaintext against stored credential material using a
	// constant-time-equivalent comparison. It never reveals partial matches.
	Verify(plainTextPassword, existingHash string) bool
}

// TokenSigner defines the contract for tamper-evident, time-limited tokens.
type TokenSigner interface {
	// Sign produces an opaque token embedding the payload plus an issue time,
	// scoped to a single purpose.
	Sign(payload, purpose string) (string, error)

	// Verify returns the payload bound at signing time, failing for any token
	// with a bad signature, a foreign purpose, or an age beyond maxAge.
	Verify(token string, maxAge time.Duration, purpose string) (string, error)
}

// ConfirmationSender delivers confirmation tokens out-of-band (e.g. email).
type ConfirmationSender interface {
	SendConfirmation(context context.Context, email, token string) error
}

// dummyCredentialHash is a valid bcrypt hash verified against when no account
// matches the email, so a missing account costs the same wall-clock time as a
// wrong password. Required for the enumeration resistance of [Service.Authenticate].
const dummyCredentialHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service implements the account lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, signup,
// or authentication logic must be reviewed by the security team.
type Service struct {
	accountRepository   AccountRepository
	credentialHasher    CredentialHasher
	tokenSigner         TokenSigner
	confirmationSender  ConfirmationSender
	confirmationMaxAge  time.Duration
	confirmationPurpose string
}

// NewService constructs a new [Service] with necessary dependencies.
//
// A zero confirmationMaxAge falls back to [DefaultConfirmationMaxAge]; an
// empty confirmationPurpose falls back to [DefaultConfirmationPurpose].
func NewService(
	accountRepo AccountRepository,
	hasher CredentialHasher,
	signer TokenSigner,
	sender ConfirmationSender,
	confirmationMaxAge time.Duration,
	confirmationPurpose string,
) *Service {
	if confirmationMaxAge <= 0 {
		confirmationMaxAge = DefaultConfirmationMaxAge
	}
	if confirmationPurpose == "" {
		confirmationPurpose = DefaultConfirmationPurpose
	}
	return &Service{
		accountRepository:   accountRepo,
		credentialHasher:    hasher,
		tokenSigner:         signer,
		confirmationSender:  sender,
		confirmationMaxAge:  confirmationMaxAge,
		confirmationPurpose: confirmationPurpose,
	}
}

// # Signup Flow

// SignUpInput holds the data required to enroll a new account.
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
}

/*
SignUp validates, hashes, and persists a brand new account.

Description: Normalizes the email to lowercase, hashes the credential,
allocates a bounded-length username from the email local part, and persists
with first_login = true and a null confirmed_at. Uniqueness is enforced by
the storage layer; a username collision under concurrent signups is retried
exactly once with a fresh count.

Parameters:
  - context: context.Context
  - input: SignUpInput

Returns:
  - *Account: Created entity
  - error: [ErrDuplicateEmail], [ErrDuplicateUsername], [ErrWeakCredential], or storage errors
*/
func (service *Service) SignUp(context context.Context, input SignUpInput) (*Account, error) {

	// Email comparison and storage are case-insensitive; normalize once here.
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Prevent storing plain-text passwords. The hasher owns the acceptance
	// policy and signals weak input through its sentinel.
	passwordHash, err := service.credentialHasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, sec.ErrWeakPassword) {
			return nil, ErrWeakCredential
		}
		return nil, fmt.Errorf("accounts_service_hash_failed: %w", err)
	}

	account, err := service.insertWithAllocatedUsername(context, email, passwordHash, input.DisplayName)
	if err != nil {
		return nil, err
	}

	// Issue a confirmation token as an async-ready side effect. Delivery
	// failures never fail the signup itself.
	if service.confirmationSender != nil {
		token, tokenErr := service.IssueConfirmationToken(context, account.ID)
		if tokenErr == nil {
			_ = service.confirmationSender.SendConfirmation(context, account.Email, token)
		}
	}

	return account, nil
}

// insertWithAllocatedUsername persists a new account, retrying the username
// allocation exactly once when a concurrent signup claimed the same handle.
func (service *Service) insertWithAllocatedUsername(context context.Context, email, passwordHash, displayName string) (*Account, error) {

	// Allocation is retried at most once: the count snapshot races under
	// concurrent signups, and the unique constraint is the authoritative guard.
	const maxAttempts = 2

	for attempt := 0; attempt < maxAttempts; attempt++ {

		// Snapshot the current account count as the disambiguating suffix.
		count, err := service.accountRepository.Count(context)
		if err != nil {
			return nil, fmt.Errorf("accounts_service_count_failed: %w", err)
		}

		username := AllocateUsername(emailLocalPart(email), count)

		// Construct the new Account entity. Time-sortable ID to prevent PG index fragmentation.
		account := &Account{
			ID:           uuid.New(),
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			DisplayName:  strings.ToLower(displayName),
			Slug:         slug.From(username),
			IsActive:     true,
			FirstLogin:   true,
		}

		err = service.accountRepository.Insert(context, account)
		if err == nil {
			return account, nil
		}

		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrDuplicateEmail
		}

		if errors.Is(err, ErrUsernameTaken) {
			// Lost the allocation race; loop once with a fresh count.
			continue
		}

		return nil, fmt.Errorf("accounts_service_signup_failed: %w", err)
	}

	return nil, ErrDuplicateUsername
}

// emailLocalPart returns the portion of an email address before '@'.
func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// # Authentication Flow

/*
Authenticate verifies an email/password pair.

Description: Looks up the account by case-insensitive email and verifies the
credential. "No such email" and "wrong password" are indistinguishable to the
caller in both content and timing: a missing account still pays for one hash
verification against a dummy credential.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *Account: Authenticated entity; never mutated by this call
  - error: [ErrInvalidCredentials] or [ErrAccountInactive]
*/
func (service *Service) Authenticate(context context.Context, email, password string) (*Account, error) {
	account, err := service.accountRepository.FindByEmail(context, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Burn the same hashing cost as the found-account path so response
		// timing does not reveal whether the email is registered.
		service.credentialHasher.Verify(password, dummyCredentialHash)
		return nil, ErrInvalidCredentials
	}

	if !service.credentialHasher.Verify(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Inactivity is only disclosed AFTER the credential verified: an observer
	// without the password learns nothing about the account's state.
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	return account, nil
}

// # Profile Mutation

/*
ChangeEmail replaces the account's email address.

Description: A change to the same address (case-insensitive) is a no-op that
leaves confirmed_at untouched. A real change clears confirmed_at, forcing
re-confirmation of the new address; previously issued confirmation tokens
become useless because they bind the old address.

Parameters:
  - context: context.Context
  - accountID: string
  - newEmail: string

Returns:
  - *Account: Updated entity
  - error: [ErrAccountNotFound], [ErrDuplicateEmail], or storage errors
*/
func (service *Service) ChangeEmail(context context.Context, accountID, newEmail string) (*Account, error) {
	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	email := strings.ToLower(strings.TrimSpace(newEmail))
	if email == account.Email {
		return account, nil
	}

	account.Email = email
	account.ConfirmedAt = nil

	if err := service.accountRepository.Update(context, account, FieldEmail, FieldConfirmedAt); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("accounts_service_change_email_failed: %w", err)
	}

	return account, nil
}

/*
ChangePassword replaces the account's credential material.

Description: Verifies that the two password fields agree, re-hashes, and
stores. Email and username are never touched. The caller (web layer) must
rotate — not invalidate — any session material tied to the old credential so
the acting user remains signed in.

Parameters:
  - context: context.Context
  - accountID: string
  - newPassword: string
  - confirmPassword: string

Returns:
  - *Account: Updated entity
  - error: [ErrPasswordMismatch], [ErrWeakCredential], [ErrAccountNotFound], or storage errors
*/
func (service *Service) ChangePassword(context context.Context, accountID, newPassword, confirmPassword string) (*Account, error) {
	if newPassword != confirmPassword {
		return nil, ErrPasswordMismatch
	}

	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	passwordHash, err := service.credentialHasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, sec.ErrWeakPassword) {
			return nil, ErrWeakCredential
		}
		return nil, fmt.Errorf("accounts_service_change_password_hash_failed: %w", err)
	}

	account.PasswordHash = passwordHash
	if err := service.accountRepository.Update(context, account, FieldPasswordHash); err != nil {
		return nil, fmt.Errorf("accounts_service_change_password_update_failed: %w", err)
	}

	return account, nil
}

// # Email Confirmation

/*
IssueConfirmationToken produces a signed, time-limited token binding the
account id AND its current email, for delivery out-of-band.

Description: Binding the email (not just the id) means the token is
implicitly revoked by a later email change: verification still succeeds
cryptographically, but the payload no longer matches the account.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - string: Signed compact token
  - error: [ErrAccountNotFound] or signing failures
*/
func (service *Service) IssueConfirmationToken(context context.Context, accountID string) (string, error) {
	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return "", ErrAccountNotFound
	}

	payload := account.ID + confirmationPayloadSeparator + account.Email
	token, err := service.tokenSigner.Sign(payload, service.confirmationPurpose)
	if err != nil {
		return "", fmt.Errorf("accounts_service_sign_confirmation_failed: %w", err)
	}

	return token, nil
}

/*
ConfirmEmail marks the bound email address as confirmed.

Description: Verifies signature, purpose, and age, resolves the bound account,
and sets confirmed_at to the current time. A token binding a superseded email
is rejected as invalid; confirming an already-confirmed address is an error,
not a no-op.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *Account: Confirmed entity
  - error: [ErrInvalidToken], [ErrAccountNotFound], [ErrAlreadyConfirmed], or storage errors
*/
func (service *Service) ConfirmEmail(context context.Context, token string) (*Account, error) {
	payload, err := service.tokenSigner.Verify(token, service.confirmationMaxAge, service.confirmationPurpose)
	if err != nil {
		return nil, ErrInvalidToken
	}

	accountID, boundEmail, found := strings.Cut(payload, confirmationPayloadSeparator)
	if !found {
		return nil, ErrInvalidToken
	}

	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	// A token issued before an email change binds the old address and must
	// not confirm the new one.
	if boundEmail != account.Email {
		return nil, ErrInvalidToken
	}

	if account.IsConfirmed() {
		return nil, ErrAlreadyConfirmed
	}

	now := time.Now()
	account.ConfirmedAt = &now
	if err := service.accountRepository.Update(context, account, FieldConfirmedAt); err != nil {
		return nil, fmt.Errorf("accounts_service_confirm_email_failed: %w", err)
	}

	return account, nil
}

/*
ResendConfirmation issues and delivers a fresh confirmation token.

Description: Refuses to resend for already-confirmed addresses.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: [ErrAccountNotFound], [ErrAlreadyConfirmed], or delivery failures
*/
func (service *Service) ResendConfirmation(context context.Context, accountID string) error {
	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return ErrAccountNotFound
	}

	if account.IsConfirmed() {
		return ErrAlreadyConfirmed
	}

	token, err := service.IssueConfirmationToken(context, accountID)
	if err != nil {
		return err
	}

	if service.confirmationSender == nil {
		return nil
	}

	if err := service.confirmationSender.SendConfirmation(context, account.Email, token); err != nil {
		return fmt.Errorf("accounts_service_send_confirmation_failed: %w", err)
	}

	return nil
}

// # Account Lookup

// GetAccount returns the account with the given id, or [ErrAccountNotFound].
func (service *Service) GetAccount(context context.Context, accountID string) (*Account, error) {
	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// # Lifecycle Hooks

/*
MarkFirstLoginComplete clears the one-time first_login flag.

Description: Intended to run once, at the boundary where a freshly signed-up
user ends their first session. A no-op when the flag is already cleared.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Storage failures; a missing account is silently ignored
*/
func (service *Service) MarkFirstLoginComplete(context context.Context, accountID string) error {
	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		// Called from logout paths where the account may already be gone;
		// nothing to flip, nothing to report.
		return nil
	}

	if !account.FirstLogin {
		return nil
	}

	account.FirstLogin = false
	if err := service.accountRepository.Update(context, account, FieldFirstLogin); err != nil {
		return fmt.Errorf("accounts_service_first_login_update_failed: %w", err)
	}

	return nil
}
