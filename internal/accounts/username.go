// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts

import "strconv"

// # Username Allocation

/*
AllocateUsername derives a bounded-length handle from an email's local part
plus a disambiguating counter.

Description: Pure function. Appends the decimal form of existingCount to the
local part, truncating the local part so the total never exceeds
[UsernameMaxLength] characters. The suffix is never truncated; the local-part
prefix absorbs the entire length budget.

The function does not guarantee global uniqueness against concurrent
allocations — the storage layer's unique constraint on username is the
authoritative guard, and [Service.SignUp] retries once on conflict with a
fresh count.

Parameters:
  - emailLocalPart: string (The portion of the email before '@')
  - existingCount: int (Snapshot of the current account count)

Returns:
  - string: Allocated handle, length <= UsernameMaxLength
*/
func AllocateUsername(emailLocalPart string, existingCount int) string {
	suffix := strconv.Itoa(existingCount)

	// Budget in characters, not bytes: local parts may contain multi-byte
	// runes and truncation must never split one.
	budget := UsernameMaxLength - len(suffix)
	localRunes := []rune(emailLocalPart)
	if len(localRunes) > budget {
		localRunes = localRunes[:budget]
	}

	return string(localRunes) + suffix
}
