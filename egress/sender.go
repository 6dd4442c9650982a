// Package egress implements the notification egress (C8): the single
// outbound path shared by C3, C4, C6, and C7, each of which defines its own
// narrow consumer interface that Telegram below satisfies structurally
// (spec.md §4.8).
package egress

import "context"

// Sender is the minimal bot-channel primitive every higher-level notifier in
// this package builds on: a text message with optional inline buttons, and a
// tabular document attachment for C5's export.
type Sender interface {
	Send(ctx context.Context, userID int64, body string, buttons []Button) error
	SendDocument(ctx context.Context, userID int64, filename string, data []byte, caption string) error
}

// Button is one inline action, platform-agnostic.
type Button struct {
	Label string
	URL   string
}
