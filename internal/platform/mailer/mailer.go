// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers confirmation tokens out-of-band.

The core account service only PRODUCES tokens; delivering them (email, queue,
push) is a host-application concern. This package ships the default
development implementation, which writes the token to the structured log so
local flows can be completed by copy-paste.

Production hosts replace it by injecting their own implementation of the
domain's ConfirmationSender contract.
*/
package mailer

import (
	"context"
	"log/slog"
)

// LogSender "delivers" confirmation tokens by logging them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates the development token sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendConfirmation logs the confirmation token for the given address.
//
// The token is deliberately logged at Info: in development there is no other
// way to retrieve it, and production deployments do not use this sender.
func (sender *LogSender) SendConfirmation(ctx context.Context, email, token string) error {
	sender.logger.InfoContext(ctx, "confirmation_token_issued",
		slog.String("email", email),
		slog.String("token", token),
	)
	return nil
}
