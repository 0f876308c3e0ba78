// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts

import "time"

// # Account Constraints

const (
	// UsernameMaxLength is the hard upper bound on allocated usernames.
	// The allocator truncates the email local part so the count suffix
	// always fits inside this budget.
	UsernameMaxLength = 30

	// SessionTTL is the duration an opaque session token remains valid.
	// Long-lived (30 days) to provide a good user experience.
	SessionTTL = 30 * 24 * time.Hour

	// SessionTokenLength is the byte length of the random secure session token.
	SessionTokenLength = 32

	// DefaultConfirmationMaxAge is the longest a confirmation token is honored
	// after issue. Hosts may tighten this through configuration but 48 hours
	// is the contract default.
	DefaultConfirmationMaxAge = 48 * time.Hour

	// DefaultConfirmationPurpose scopes confirmation tokens to a single
	// use-case so they cannot be replayed against a different flow.
	DefaultConfirmationPurpose = "email-confirmation"

	// confirmationPayloadSeparator joins the account id and email inside a
	// confirmation token. Binding the email means a token minted before an
	// email change can never confirm the replacement address.
	confirmationPayloadSeparator = "|"
)
