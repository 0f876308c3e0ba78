// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, Token Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the domain's CredentialHasher and TokenSigner contracts.
package sec

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword is returned by [BcryptHasher.Hash] when the plaintext is
// rejected by the acceptance policy rather than by a hashing failure.
var ErrWeakPassword = errors.New("sec: password rejected by policy")

// bcryptInputLimit is the hard bcrypt limit: inputs beyond 72 bytes are
// silently truncated by the algorithm, so we reject them outright.
const bcryptInputLimit = 72

// BcryptHasher hashes and verifies passwords using the bcrypt algorithm.
//
// # Policy
//
// The minimum-length policy lives here, not in the domain service: the
// hasher contract is "one-way, salted, expensive, and free to reject weak
// input". Hosts tune the policy through configuration.
type BcryptHasher struct {
	minLength int
	cost      int
}

// NewBcryptHasher creates a hasher with the given minimum plaintext length
// and the default bcrypt cost, balancing security and CPU utilization
// during signup spikes.
func NewBcryptHasher(minLength int) *BcryptHasher {
	return NewBcryptHasherWithCost(minLength, bcrypt.DefaultCost)
}

// NewBcryptHasherWithCost creates a hasher with an explicit bcrypt cost.
// Lower costs are only appropriate in tests.
func NewBcryptHasherWithCost(minLength, cost int) *BcryptHasher {
	return &BcryptHasher{minLength: minLength, cost: cost}
}

// Hash hashes a plain-text password.
//
// Returns [ErrWeakPassword] if the plaintext violates the acceptance policy.
func (hasher *BcryptHasher) Hash(plainTextPassword string) (string, error) {
	if utf8.RuneCountInString(plainTextPassword) < hasher.minLength {
		return "", fmt.Errorf("%w: shorter than %d characters", ErrWeakPassword, hasher.minLength)
	}
	if len(plainTextPassword) > bcryptInputLimit {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrWeakPassword, bcryptInputLimit)
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its hashed version.
// bcrypt performs the comparison in constant time and never reveals
// partial matches.
func (hasher *BcryptHasher) Verify(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
