// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementation of the accounts storage contracts.
//
// # Architecture
//
// The repository is strictly separated from domain logic. It implements the
// domain-defined [AccountRepository] interface using the [pgxpool.Pool]
// connection manager.
//
// # Uniqueness Contract
//
// Email (case-insensitive) and username uniqueness are enforced by unique
// indexes, not by check-then-insert logic: two concurrent signups with the
// same email race all the way to the INSERT, and exactly one wins. SQLSTATE
// 23505 is translated here into the domain sentinels by constraint name.

package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/baseaccounts/internal/platform/dberr"
)

// Unique constraint names declared in the schema migrations. The repository
// uses them to decide WHICH uniqueness invariant an insert broke.
const (
	constraintAccountEmail    = "uq_account_email_lower"
	constraintAccountUsername = "uq_account_username"
)

// accountColumns is the canonical SELECT column list for hydrating an Account.
const accountColumns = `
	id, username, email, passwordhash, displayname, slug,
	isactive, firstlogin, confirmedat, createdat, updatedat`

// PostgresAccountRepository implements the AccountRepository interface using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

/*
Insert persists a new account record into the users.account table.

Description: Initializes timestamps and relies on the unique indexes to
atomically reject duplicate emails or usernames.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: [ErrEmailTaken], [ErrUsernameTaken], or connectivity errors
*/
func (repository *PostgresAccountRepository) Insert(context context.Context, account *Account) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, displayname, slug,
			isactive, firstlogin, confirmedat, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.DisplayName,
		account.Slug,
		account.IsActive,
		account.FirstLogin,
		account.ConfirmedAt,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if sentinel := uniquenessSentinel(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("postgres_account_repo_insert_failed: %w", err)
	}

	return nil
}

/*
FindByEmail retrieves an account by its email address, case-insensitively.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Account: Hydrated account entity
  - error: [ErrAccountNotFound] or database errors
*/
func (repository *PostgresAccountRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM users.account
		WHERE LOWER(email) = LOWER($1)`

	return repository.queryOne(context, query, email)
}

/*
FindByUsername retrieves an account by its unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *Account: Hydrated account entity
  - error: [ErrAccountNotFound] or database errors
*/
func (repository *PostgresAccountRepository) FindByUsername(context context.Context, username string) (*Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM users.account
		WHERE username = $1`

	return repository.queryOne(context, query, username)
}

/*
FindByID retrieves an account by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated account entity
  - error: [ErrAccountNotFound] or execution errors
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM users.account
		WHERE id = $1`

	return repository.queryOne(context, query, id)
}

/*
Count returns the total number of registered accounts.

Description: Snapshot value feeding the username allocator's suffix. The
snapshot is allowed to race; the unique index is the authority.

Parameters:
  - context: context.Context

Returns:
  - int: Current account count
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) Count(context context.Context) (int, error) {
	const query = "SELECT COUNT(*) FROM users.account"

	var count int
	if err := repository.pool.QueryRow(context, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}

	return count, nil
}

/*
Update persists only the named fields of an existing account.

Description: Builds a targeted SET clause from the changed-field identifiers,
refreshing the updatedat timestamp. An email change colliding with another
account surfaces as [ErrEmailTaken].

Parameters:
  - context: context.Context
  - account: *Account
  - changedFields: ...string

Returns:
  - error: [ErrEmailTaken] or update failures
*/
func (repository *PostgresAccountRepository) Update(context context.Context, account *Account, changedFields ...string) error {
	if len(changedFields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(changedFields)+1)
	arguments := make([]any, 0, len(changedFields)+2)
	arguments = append(arguments, account.ID)

	for _, field := range changedFields {
		column, value, err := accountColumnValue(account, field)
		if err != nil {
			return err
		}
		arguments = append(arguments, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(arguments)))
	}

	account.UpdatedAt = time.Now()
	arguments = append(arguments, account.UpdatedAt)
	setClauses = append(setClauses, fmt.Sprintf("updatedat = $%d", len(arguments)))

	query := fmt.Sprintf("UPDATE users.account SET %s WHERE id = $1", strings.Join(setClauses, ", "))

	commandTag, err := repository.pool.Exec(context, query, arguments...)
	if err != nil {
		if sentinel := uniquenessSentinel(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("postgres_account_repo_update_failed: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// queryOne runs a single-row account query and maps pgx.ErrNoRows to the
// domain's not-found error.
func (repository *PostgresAccountRepository) queryOne(context context.Context, query string, argument any) (*Account, error) {
	account := &Account{}
	err := repository.pool.QueryRow(context, query, argument).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.DisplayName,
		&account.Slug,
		&account.IsActive,
		&account.FirstLogin,
		&account.ConfirmedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("postgres_account_repo_find_failed: %w", err)
	}

	return account, nil
}

// accountColumnValue maps a domain field identifier to its column name and
// current entity value.
func accountColumnValue(account *Account, field string) (string, any, error) {
	switch field {
	case FieldEmail:
		return "email", account.Email, nil
	case FieldUsername:
		return "username", account.Username, nil
	case FieldPasswordHash:
		return "passwordhash", account.PasswordHash, nil
	case FieldDisplayName:
		return "displayname", account.DisplayName, nil
	case FieldSlug:
		return "slug", account.Slug, nil
	case FieldConfirmedAt:
		return "confirmedat", account.ConfirmedAt, nil
	case FieldFirstLogin:
		return "firstlogin", account.FirstLogin, nil
	default:
		return "", nil, fmt.Errorf("postgres_account_repo_unknown_field: %q", field)
	}
}

// uniquenessSentinel translates a unique-constraint violation into the domain
// sentinel matching the broken invariant, or nil for any other error.
func uniquenessSentinel(err error) error {
	if !dberr.IsUniqueViolation(err) {
		return nil
	}

	switch dberr.ConstraintName(err) {
	case constraintAccountEmail:
		return ErrEmailTaken
	case constraintAccountUsername:
		return ErrUsernameTaken
	default:
		return dberr.Wrap(err)
	}
}
