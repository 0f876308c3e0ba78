// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Session Principal

// Principal identifies the account bound to an authenticated request.
//
// It is resolved once per request by the session middleware and carried in
// the request context. Handlers never see the raw session token value —
// only its hash-free opaque form needed for rotation and logout.
type Principal struct {
	// AccountID is the UUIDv7 of the authenticated account.
	AccountID string

	// SessionToken is the opaque token presented by the client, kept so that
	// handlers can rotate or terminate the exact session that made the request.
	SessionToken string
}
