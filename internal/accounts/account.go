// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package accounts implements the account identity and credential lifecycle.

It defines the core domain entity (Account) and the logic for signup, login,
email/password change, and email-address confirmation.

# Architecture

This layer is the "Truth" of the system. The entity defined here has no
external dependencies and encapsulates all business rules related to account
identity: uniqueness of email and username, credential hashing contracts, and
confirmation state transitions.
*/
package accounts

import (
	"time"
)

// # Domain Entities

// Account represents a registered identity: email, username, credential, and
// confirmation state.
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string     `json:"display_name"`
	Slug         string     `json:"slug"`
	IsActive     bool       `json:"is_active"`
	FirstLogin   bool       `json:"first_login"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// GetDisplayName returns the name to show in UI, falling back to the
// username when the free-text display name is blank.
func (account *Account) GetDisplayName() string {
	if account.DisplayName != "" {
		return account.DisplayName
	}
	return account.Username
}

// IsConfirmed reports whether the account's email address has been confirmed.
func (account *Account) IsConfirmed() bool {
	return account.ConfirmedAt != nil
}

// # Field Identifiers

// Global field names for validation and identity mapping in the accounts domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldNewEmail        = "new_email"
	FieldPassword        = "password"
	FieldDisplayName     = "display_name"
	FieldToken           = "token"
	FieldNewPassword     = "new_password"
	FieldConfirmPassword = "confirm_password"
	FieldAcceptedTOS     = "accepted_tos"
	FieldAccount         = "account"
	FieldMessage         = "message"
	FieldNext            = "next"

	// Storage field identifiers used with [AccountRepository.Update].
	FieldPasswordHash = "password_hash"
	FieldConfirmedAt  = "confirmed_at"
	FieldFirstLogin   = "first_login"
	FieldSlug         = "slug"
)
