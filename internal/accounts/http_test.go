// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package accounts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/baseaccounts/internal/accounts"
	"github.com/taibuivan/baseaccounts/internal/platform/apperr"
	"github.com/taibuivan/baseaccounts/internal/platform/constants"
	"github.com/taibuivan/baseaccounts/internal/platform/middleware"
)

// memSessionRepository is an in-memory SessionRepository. It doubles as the
// middleware's SessionResolver, exactly like the Redis implementation does.
type memSessionRepository struct {
	tokens map[string]string
}

func newMemSessionRepository() *memSessionRepository {
	return &memSessionRepository{tokens: map[string]string{}}
}

func (repository *memSessionRepository) Create(_ context.Context, token, accountID string, _ time.Duration) error {
	repository.tokens[token] = accountID
	return nil
}

func (repository *memSessionRepository) Resolve(_ context.Context, token string) (string, error) {
	accountID, ok := repository.tokens[token]
	if !ok {
		return "", apperr.NotFound("Session")
	}
	return accountID, nil
}

func (repository *memSessionRepository) Delete(_ context.Context, token string) error {
	delete(repository.tokens, token)
	return nil
}

// newTestRouter assembles the handler behind the real session-authentication
// middleware, mirroring the production router shape.
func newTestRouter(t *testing.T) (http.Handler, *memSessionRepository) {
	t.Helper()

	service, _, _ := newTestService(t)
	sessions := newMemSessionRepository()
	handler := accounts.NewHandler(service, sessions, accounts.HandlerOptions{
		PostLoginRedirect:  "/dashboard",
		PostSignupRedirect: "/welcome",
		PostLogoutRedirect: "/bye",
	})

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(sessions))
	router.Mount("/", handler.Routes())
	return router, sessions
}

func postJSON(t *testing.T, router http.Handler, path string, payload any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func sessionCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.SessionCookieName && cookie.MaxAge >= 0 {
			return cookie
		}
	}
	t.Fatal("expected a session cookie in the response")
	return nil
}

/*
TestHandler_SignUp verifies account creation over HTTP: envelope shape,
session cookie injection, and the next-redirect contract.
*/
func TestHandler_SignUp(t *testing.T) {
	router, sessions := newTestRouter(t)

	recorder := postJSON(t, router, "/signup", map[string]any{
		"email":        "Jane@Example.com",
		"password":     "password123",
		"accepted_tos": true,
		"next":         "/onboarding",
	}, nil)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var envelope struct {
		Data struct {
			Account accounts.Account `json:"account"`
			Next    string           `json:"next"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))

	assert.Equal(t, "jane@example.com", envelope.Data.Account.Email)
	assert.Equal(t, "jane0", envelope.Data.Account.Username)
	assert.Equal(t, "/onboarding", envelope.Data.Next)

	// The opaque token in the cookie resolves to the new account.
	cookie := sessionCookie(t, recorder)
	accountID, err := sessions.Resolve(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, envelope.Data.Account.ID, accountID)
}

/*
TestHandler_SignUp_TOSRequired verifies that signup without accepting the
terms of service fails validation before touching the domain service.
*/
func TestHandler_SignUp_TOSRequired(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := postJSON(t, router, "/signup", map[string]any{
		"email":    "jane@example.com",
		"password": "password123",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "accepted_tos")
}

/*
TestHandler_LoginFlow walks login with wrong and right credentials, and
confirms the foreign-next open-redirect guard.
*/
func TestHandler_LoginFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	signup := postJSON(t, router, "/signup", map[string]any{
		"email":        "jane@example.com",
		"password":     "password123",
		"accepted_tos": true,
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)

	t.Run("wrong_password", func(t *testing.T) {
		recorder := postJSON(t, router, "/login", map[string]any{
			"email":    "jane@example.com",
			"password": "wrong",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "INVALID_CREDENTIALS")
	})

	t.Run("success_with_foreign_next", func(t *testing.T) {
		recorder := postJSON(t, router, "/login", map[string]any{
			"email":    "jane@example.com",
			"password": "password123",
			"next":     "https://evil.example/phish",
		}, nil)

		require.Equal(t, http.StatusOK, recorder.Code)
		// Absolute URLs are refused; the configured fallback wins.
		assert.Contains(t, recorder.Body.String(), `"next":"/dashboard"`)
		sessionCookie(t, recorder)
	})
}

/*
TestHandler_Logout verifies session teardown, cookie clearing, and the
first_login flip at the end of the first session.
*/
func TestHandler_Logout(t *testing.T) {
	router, sessions := newTestRouter(t)

	signup := postJSON(t, router, "/signup", map[string]any{
		"email":        "jane@example.com",
		"password":     "password123",
		"accepted_tos": true,
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)
	cookie := sessionCookie(t, signup)

	recorder := postJSON(t, router, "/logout", map[string]any{}, cookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"next":"/bye"`)

	// Server-side session is gone.
	_, err := sessions.Resolve(context.Background(), cookie.Value)
	assert.Error(t, err)

	// The same cookie no longer authenticates.
	me := httptest.NewRequest(http.MethodGet, "/me", nil)
	me.AddCookie(cookie)
	meRecorder := httptest.NewRecorder()
	router.ServeHTTP(meRecorder, me)
	assert.Equal(t, http.StatusUnauthorized, meRecorder.Code)
}

/*
TestHandler_ChangePassword_RotatesSession verifies the rotation contract:
after a password change the OLD token is dead but the response carries a
fresh cookie that still authenticates.
*/
func TestHandler_ChangePassword_RotatesSession(t *testing.T) {
	router, sessions := newTestRouter(t)

	signup := postJSON(t, router, "/signup", map[string]any{
		"email":        "jane@example.com",
		"password":     "password123",
		"accepted_tos": true,
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)
	oldCookie := sessionCookie(t, signup)

	recorder := postJSON(t, router, "/settings/password", map[string]any{
		"new_password":     "brand-new-password",
		"confirm_password": "brand-new-password",
	}, oldCookie)
	require.Equal(t, http.StatusOK, recorder.Code)

	newCookie := sessionCookie(t, recorder)
	assert.NotEqual(t, oldCookie.Value, newCookie.Value)

	// Old token dead, new token live.
	_, err := sessions.Resolve(context.Background(), oldCookie.Value)
	assert.Error(t, err)
	_, err = sessions.Resolve(context.Background(), newCookie.Value)
	assert.NoError(t, err)
}

/*
TestHandler_ConfirmEmailEndpoint verifies the public confirmation endpoint
rejects garbage tokens with the typed error envelope.
*/
func TestHandler_ConfirmEmailEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := postJSON(t, router, "/confirm-email", map[string]any{
		"token": "garbage",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INVALID_TOKEN")
}

/*
TestHandler_ProtectedRoutesRequireAuth verifies that settings endpoints are
inaccessible without a session.
*/
func TestHandler_ProtectedRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/logout", "/resend-confirmation", "/settings/email", "/settings/password"} {
		t.Run(path, func(t *testing.T) {
			recorder := postJSON(t, router, path, map[string]any{}, nil)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		})
	}
}
