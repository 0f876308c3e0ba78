// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by [Signer.Verify] for any token that cannot be
// accepted: bad signature, malformed payload, wrong purpose, or exceeded age.
// Callers get no further detail — distinguishing the cases would leak
// information to whoever minted the bad token.
var ErrInvalidToken = errors.New("sec: invalid token")

// Signer produces and verifies tamper-evident, time-limited tokens binding an
// opaque payload (typically an account id) for out-of-band flows such as
// email confirmation.
//
// # Purpose Scoping
//
// The signing key is derived from the root secret AND a purpose salt, so a
// token minted for "email-confirmation" fails verification when presented to
// any flow using a different salt. This is the per-purpose key derivation
// trick rather than an extra claim: replay across purposes is not merely
// rejected, it is cryptographically impossible.
type Signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSigner creates a [Signer] keyed by the given root secret.
func NewSigner(secret, issuer string) *Signer {
	return &Signer{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// signingClaims is the JWT payload. Expiry is intentionally absent: the
// maximum age is chosen by the VERIFIER, so the embedded issue time is the
// only temporal fact a token carries.
type signingClaims struct {
	jwt.RegisteredClaims
}

/*
Sign produces an opaque token embedding the payload, the issue time, and an
HMAC-SHA256 signature under the purpose-derived key.

Parameters:
  - payload: string (Opaque value to bind, e.g. "accountID|email")
  - purpose: string (Salt scoping the token to a single use-case)

Returns:
  - string: Signed compact token
  - error: Signing failures
*/
func (signer *Signer) Sign(payload, purpose string) (string, error) {
	claims := signingClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  payload,
			Issuer:   signer.issuer,
			IssuedAt: jwt.NewNumericDate(signer.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(signer.purposeKey(purpose))
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

/*
Verify checks the signature, purpose, and age of a token.

Parameters:
  - tokenString: string
  - maxAge: time.Duration (Maximum accepted age since the embedded issue time)
  - purpose: string (Must match the salt used at signing time)

Returns:
  - string: The payload bound at signing time
  - error: [ErrInvalidToken] for any unacceptable token
*/
func (signer *Signer) Verify(tokenString string, maxAge time.Duration, purpose string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &signingClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return signer.purposeKey(purpose), nil
	}, jwt.WithIssuer(signer.issuer))

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*signingClaims)
	if !ok || !token.Valid || claims.IssuedAt == nil {
		return "", ErrInvalidToken
	}

	// Age check is strict-greater: a token at exactly maxAge is still accepted.
	if signer.now().Sub(claims.IssuedAt.Time) > maxAge {
		return "", fmt.Errorf("%w: token age exceeds %s", ErrInvalidToken, maxAge)
	}

	return claims.Subject, nil
}

// purposeKey derives the per-purpose HMAC key: SHA-256(secret || ":" || purpose).
func (signer *Signer) purposeKey(purpose string) []byte {
	digest := sha256.Sum256(append(append([]byte{}, signer.secret...), []byte(":"+purpose)...))
	return digest[:]
}
