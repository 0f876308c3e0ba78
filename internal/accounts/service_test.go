// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/baseaccounts/internal/accounts"
	"github.com/taibuivan/baseaccounts/internal/platform/sec"
)

// # Test Doubles

// memAccountRepository is an in-memory AccountRepository that enforces email
// and username uniqueness atomically under a mutex, mirroring the storage
// contract the real Postgres implementation provides via unique indexes.
type memAccountRepository struct {
	mu         sync.Mutex
	byID       map[string]accounts.Account
	countCalls int

	// insertHook, when set, runs before normal insert logic. Used to simulate
	// losing a uniqueness race against a concurrent writer.
	insertHook func(account *accounts.Account) error
}

func newMemAccountRepository() *memAccountRepository {
	return &memAccountRepository{byID: map[string]accounts.Account{}}
}

func (repository *memAccountRepository) FindByID(_ context.Context, id string) (*accounts.Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	account, ok := repository.byID[id]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	clone := account
	return &clone, nil
}

func (repository *memAccountRepository) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, account := range repository.byID {
		if strings.EqualFold(account.Email, email) {
			clone := account
			return &clone, nil
		}
	}
	return nil, accounts.ErrAccountNotFound
}

func (repository *memAccountRepository) FindByUsername(_ context.Context, username string) (*accounts.Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, account := range repository.byID {
		if account.Username == username {
			clone := account
			return &clone, nil
		}
	}
	return nil, accounts.ErrAccountNotFound
}

func (repository *memAccountRepository) Count(_ context.Context) (int, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.countCalls++
	return len(repository.byID), nil
}

func (repository *memAccountRepository) Insert(_ context.Context, account *accounts.Account) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if repository.insertHook != nil {
		if err := repository.insertHook(account); err != nil {
			return err
		}
	}

	for _, existing := range repository.byID {
		if strings.EqualFold(existing.Email, account.Email) {
			return accounts.ErrEmailTaken
		}
		if existing.Username == account.Username {
			return accounts.ErrUsernameTaken
		}
	}

	repository.byID[account.ID] = *account
	return nil
}

func (repository *memAccountRepository) Update(_ context.Context, account *accounts.Account, changedFields ...string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.byID[account.ID]
	if !ok {
		return accounts.ErrAccountNotFound
	}

	for _, field := range changedFields {
		switch field {
		case accounts.FieldEmail:
			for id, existing := range repository.byID {
				if id != account.ID && strings.EqualFold(existing.Email, account.Email) {
					return accounts.ErrEmailTaken
				}
			}
			stored.Email = account.Email
		case accounts.FieldPasswordHash:
			stored.PasswordHash = account.PasswordHash
		case accounts.FieldConfirmedAt:
			stored.ConfirmedAt = account.ConfirmedAt
		case accounts.FieldFirstLogin:
			stored.FirstLogin = account.FirstLogin
		case accounts.FieldDisplayName:
			stored.DisplayName = account.DisplayName
		case accounts.FieldSlug:
			stored.Slug = account.Slug
		}
	}

	repository.byID[account.ID] = stored
	return nil
}

// captureSender records delivered confirmation tokens instead of emailing them.
type captureSender struct {
	mu     sync.Mutex
	emails []string
	tokens []string
}

func (sender *captureSender) SendConfirmation(_ context.Context, email, token string) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	sender.emails = append(sender.emails, email)
	sender.tokens = append(sender.tokens, token)
	return nil
}

func (sender *captureSender) sent() int {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	return len(sender.emails)
}

// newTestService wires a Service against the in-memory fakes. bcrypt.MinCost
// keeps hashing fast without changing any verification semantics.
func newTestService(t *testing.T) (*accounts.Service, *memAccountRepository, *captureSender) {
	t.Helper()

	repository := newMemAccountRepository()
	hasher := sec.NewBcryptHasherWithCost(8, bcrypt.MinCost)
	signer := sec.NewSigner("test-secret", "baseaccounts-test")
	sender := &captureSender{}

	service := accounts.NewService(repository, hasher, signer, sender, 0, "")
	return service, repository, sender
}

// # Signup

/*
TestService_SignUpThenAuthenticate verifies the fundamental round trip: a
fresh signup can immediately authenticate with the same credentials.
*/
func TestService_SignUpThenAuthenticate(t *testing.T) {
	service, _, sender := newTestService(t)
	ctx := context.Background()

	created, err := service.SignUp(ctx, accounts.SignUpInput{
		Email:    "Jane.Doe@Example.COM",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	// Email is normalized to lowercase for comparison and storage.
	assert.Equal(t, "jane.doe@example.com", created.Email)
	assert.Equal(t, "jane.doe0", created.Username)
	assert.True(t, created.FirstLogin)
	assert.True(t, created.IsActive)
	assert.Nil(t, created.ConfirmedAt)
	assert.NotEmpty(t, created.Slug)

	// A confirmation token was delivered as a signup side effect.
	assert.Equal(t, 1, sender.sent())

	authenticated, err := service.Authenticate(ctx, "jane.doe@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, created.ID, authenticated.ID)
}

/*
TestService_SignUp_DuplicateEmail verifies that any letter-casing variant of
an existing email is rejected and no second account is created.
*/
func TestService_SignUp_DuplicateEmail(t *testing.T) {
	service, repository, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	variants := []string{"jane@example.com", "JANE@EXAMPLE.COM", "Jane@Example.com"}
	for _, variant := range variants {
		t.Run(variant, func(t *testing.T) {
			_, err := service.SignUp(ctx, accounts.SignUpInput{Email: variant, Password: "password123"})
			assert.ErrorIs(t, err, accounts.ErrDuplicateEmail)
		})
	}

	count, err := repository.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

/*
TestService_SignUp_WeakCredential verifies that the hasher's policy rejection
surfaces as the typed WeakCredential error.
*/
func TestService_SignUp_WeakCredential(t *testing.T) {
	service, repository, _ := newTestService(t)

	_, err := service.SignUp(context.Background(), accounts.SignUpInput{
		Email:    "short@example.com",
		Password: "short",
	})

	assert.ErrorIs(t, err, accounts.ErrWeakCredential)

	count, countErr := repository.Count(context.Background())
	require.NoError(t, countErr)
	assert.Zero(t, count)
}

/*
TestService_SignUp_UsernameCollisionRetry simulates losing the allocation
race once: the first insert hits the username constraint, the retry
recomputes the count and succeeds.
*/
func TestService_SignUp_UsernameCollisionRetry(t *testing.T) {
	service, repository, _ := newTestService(t)
	ctx := context.Background()

	raceLost := false
	repository.insertHook = func(_ *accounts.Account) error {
		if !raceLost {
			raceLost = true
			return accounts.ErrUsernameTaken
		}
		return nil
	}

	account, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "jane0", account.Username)

	// The retry must re-snapshot the count, not reuse the stale one.
	assert.Equal(t, 2, repository.countCalls)
}

/*
TestService_SignUp_UsernameExhausted verifies that a persistent username
conflict is surfaced as DuplicateUsername after exactly one retry.
*/
func TestService_SignUp_UsernameExhausted(t *testing.T) {
	service, repository, _ := newTestService(t)

	inserts := 0
	repository.insertHook = func(_ *accounts.Account) error {
		inserts++
		return accounts.ErrUsernameTaken
	}

	_, err := service.SignUp(context.Background(), accounts.SignUpInput{
		Email:    "jane@example.com",
		Password: "password123",
	})

	assert.ErrorIs(t, err, accounts.ErrDuplicateUsername)
	assert.Equal(t, 2, inserts)
}

/*
TestService_ConcurrentSignUp_SameEmail runs N parallel signups with an
identical email: exactly one must win, the rest must fail with
DuplicateEmail.
*/
func TestService_ConcurrentSignUp_SameEmail(t *testing.T) {
	service, repository, _ := newTestService(t)
	ctx := context.Background()

	const parallelism = 16
	results := make(chan error, parallelism)

	var wg sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.SignUp(ctx, accounts.SignUpInput{
				Email:    "contested@example.com",
				Password: "password123",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, duplicates := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, accounts.ErrDuplicateEmail):
			duplicates++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, parallelism-1, duplicates)

	count, err := repository.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// # Authentication

/*
TestService_Authenticate_Failures verifies the enumeration-resistant error
collapsing and the inactive-account gate.
*/
func TestService_Authenticate_Failures(t *testing.T) {
	service, repository, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	t.Run("unknown_email", func(t *testing.T) {
		_, err := service.Authenticate(ctx, "nobody@example.com", "password123")
		assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := service.Authenticate(ctx, "jane@example.com", "not-the-password")
		assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	})

	t.Run("inactive_account", func(t *testing.T) {
		repository.mu.Lock()
		stored := repository.byID[created.ID]
		stored.IsActive = false
		repository.byID[created.ID] = stored
		repository.mu.Unlock()

		// Correct credentials against a deactivated account.
		_, err := service.Authenticate(ctx, "jane@example.com", "password123")
		assert.ErrorIs(t, err, accounts.ErrAccountInactive)

		// A wrong password must NOT disclose the inactive state.
		_, err = service.Authenticate(ctx, "jane@example.com", "not-the-password")
		assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	})
}

// # Email Change

/*
TestService_ChangeEmail covers the no-op path, the confirmation reset, the
duplicate guard, and the stale-token consequence of a real change.
*/
func TestService_ChangeEmail(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	// Confirm the address first so the reset is observable.
	token, err := service.IssueConfirmationToken(ctx, created.ID)
	require.NoError(t, err)
	confirmed, err := service.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, confirmed.ConfirmedAt)

	t.Run("same_email_is_noop", func(t *testing.T) {
		account, err := service.ChangeEmail(ctx, created.ID, "JANE@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", account.Email)
		assert.NotNil(t, account.ConfirmedAt)
	})

	t.Run("duplicate_email_rejected", func(t *testing.T) {
		_, err := service.SignUp(ctx, accounts.SignUpInput{Email: "taken@example.com", Password: "password123"})
		require.NoError(t, err)

		_, err = service.ChangeEmail(ctx, created.ID, "taken@example.com")
		assert.ErrorIs(t, err, accounts.ErrDuplicateEmail)
	})

	t.Run("real_change_clears_confirmation", func(t *testing.T) {
		staleToken, err := service.IssueConfirmationToken(ctx, created.ID)
		require.NoError(t, err)

		account, err := service.ChangeEmail(ctx, created.ID, "jane.new@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jane.new@example.com", account.Email)
		assert.Nil(t, account.ConfirmedAt)

		// A token bound to the superseded address must no longer confirm.
		_, err = service.ConfirmEmail(ctx, staleToken)
		assert.ErrorIs(t, err, accounts.ErrInvalidToken)
	})

	t.Run("unknown_account", func(t *testing.T) {
		_, err := service.ChangeEmail(ctx, "missing-id", "whoever@example.com")
		assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
	})
}

// # Password Change

/*
TestService_ChangePassword verifies the confirmation-field guard and that the
stored hash only moves on success.
*/
func TestService_ChangePassword(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	t.Run("mismatch_rejected", func(t *testing.T) {
		_, err := service.ChangePassword(ctx, created.ID, "new-password-1", "new-password-2")
		assert.ErrorIs(t, err, accounts.ErrPasswordMismatch)

		// The old credential still authenticates: the hash never moved.
		_, err = service.Authenticate(ctx, "jane@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("weak_replacement_rejected", func(t *testing.T) {
		_, err := service.ChangePassword(ctx, created.ID, "short", "short")
		assert.ErrorIs(t, err, accounts.ErrWeakCredential)
	})

	t.Run("success_rotates_credential", func(t *testing.T) {
		_, err := service.ChangePassword(ctx, created.ID, "brand-new-password", "brand-new-password")
		require.NoError(t, err)

		_, err = service.Authenticate(ctx, "jane@example.com", "password123")
		assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)

		authenticated, err := service.Authenticate(ctx, "jane@example.com", "brand-new-password")
		require.NoError(t, err)
		assert.Equal(t, created.ID, authenticated.ID)
	})
}

// # Email Confirmation

/*
TestService_ConfirmEmail covers the happy path, double confirmation, and
malformed tokens.
*/
func TestService_ConfirmEmail(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	t.Run("garbage_token", func(t *testing.T) {
		_, err := service.ConfirmEmail(ctx, "not-a-token")
		assert.ErrorIs(t, err, accounts.ErrInvalidToken)
	})

	t.Run("first_confirmation_succeeds", func(t *testing.T) {
		token, err := service.IssueConfirmationToken(ctx, created.ID)
		require.NoError(t, err)

		account, err := service.ConfirmEmail(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, account.ConfirmedAt)
	})

	t.Run("second_confirmation_rejected", func(t *testing.T) {
		// A fresh, perfectly valid token: the rejection is about account
		// state, not token state.
		token, err := service.IssueConfirmationToken(ctx, created.ID)
		require.NoError(t, err)

		_, err = service.ConfirmEmail(ctx, token)
		assert.ErrorIs(t, err, accounts.ErrAlreadyConfirmed)
	})
}

/*
TestService_ResendConfirmation verifies delivery for unconfirmed accounts and
refusal for confirmed ones.
*/
func TestService_ResendConfirmation(t *testing.T) {
	service, _, sender := newTestService(t)
	ctx := context.Background()

	created, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	sentAfterSignup := sender.sent()

	require.NoError(t, service.ResendConfirmation(ctx, created.ID))
	assert.Equal(t, sentAfterSignup+1, sender.sent())

	// Confirm, then resending becomes an error.
	token, err := service.IssueConfirmationToken(ctx, created.ID)
	require.NoError(t, err)
	_, err = service.ConfirmEmail(ctx, token)
	require.NoError(t, err)

	err = service.ResendConfirmation(ctx, created.ID)
	assert.ErrorIs(t, err, accounts.ErrAlreadyConfirmed)
}

// # Lifecycle Hooks

/*
TestService_MarkFirstLoginComplete verifies the one-time flag flip and its
idempotency.
*/
func TestService_MarkFirstLoginComplete(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.SignUp(ctx, accounts.SignUpInput{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	require.True(t, created.FirstLogin)

	require.NoError(t, service.MarkFirstLoginComplete(ctx, created.ID))

	account, err := service.GetAccount(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, account.FirstLogin)

	// Second call is a no-op, and unknown accounts are silently ignored.
	assert.NoError(t, service.MarkFirstLoginComplete(ctx, created.ID))
	assert.NoError(t, service.MarkFirstLoginComplete(ctx, "missing-id"))
}
