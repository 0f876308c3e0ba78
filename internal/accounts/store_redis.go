// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/baseaccounts/internal/platform/apperr"
	"github.com/taibuivan/baseaccounts/internal/platform/constants"
	"github.com/taibuivan/baseaccounts/internal/platform/sec"
)

// # Session Repository

// RedisSessionRepository implements SessionRepository using Redis.
//
// Only the SHA-256 hash of a session token ever reaches Redis: a leaked
// keyspace dump cannot be replayed as live sessions. TTL handling is native,
// so expired sessions vanish without a cleanup job.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new Redis-backed SessionRepository.
func NewSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

/*
Create stores a session token mapped to an accountID with a TTL.

Parameters:
  - context: context.Context
  - token: string (Plaintext opaque token)
  - accountID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisSessionRepository) Create(context context.Context, token string, accountID string, ttl time.Duration) error {

	// Key by token hash, never by the raw token
	key := sessionKey(token)

	// Set the session with TTL
	if err := repository.client.Set(context, key, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Resolve retrieves the accountID for a given session token.

Description: Returns apperr.NotFound if the session is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: AccountID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisSessionRepository) Resolve(context context.Context, token string) (string, error) {

	// Key by token hash, never by the raw token
	key := sessionKey(token)

	// Get the session from Redis
	accountID, err := repository.client.Get(context, key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Session")
		}
		return "", fmt.Errorf("redis_session_get_failed: %w", err)
	}

	// Return the accountID
	return accountID, nil
}

/*
Delete removes the session from Redis, ending it immediately.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisSessionRepository) Delete(context context.Context, token string) error {

	// Key by token hash, never by the raw token
	key := sessionKey(token)

	// Delete the session from Redis
	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	// Return nil on success
	return nil
}

// sessionKey builds the Redis key for a session token.
func sessionKey(token string) string {
	return constants.RedisPrefixSession + sec.HashToken(token)
}
