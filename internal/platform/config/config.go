// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Signer) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the account-management API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Session Store (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// TokenSecret keys the HMAC used to sign email confirmation tokens.
	TokenSecret string `env:"TOKEN_SECRET,required"`

	// ConfirmationMaxAge is how long an issued confirmation token stays valid.
	ConfirmationMaxAge time.Duration `env:"CONFIRMATION_MAX_AGE" envDefault:"48h"`

	// ConfirmationSalt scopes confirmation tokens to a single purpose so they
	// cannot be replayed against a different token-consuming flow.
	ConfirmationSalt string `env:"CONFIRMATION_SALT" envDefault:"email-confirmation"`

	// MinPasswordLength is the hasher's acceptance policy for new credentials.
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`

	// Redirect targets handed back to browser clients after auth transitions.
	// Pure routing concern of the host application, never consulted by the core.
	PostLoginRedirectURL  string `env:"POST_LOGIN_REDIRECT_URL"  envDefault:"/"`
	PostSignupRedirectURL string `env:"POST_SIGNUP_REDIRECT_URL" envDefault:"/"`
	PostLogoutRedirectURL string `env:"POST_LOGOUT_REDIRECT_URL" envDefault:"/"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the comma-separated EXTRA_ORIGINS as a slice.
func (c *Config) AllowedOrigins() []string {
	if strings.TrimSpace(c.ExtraOrigins) == "" {
		return nil
	}

	origins := strings.Split(c.ExtraOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
