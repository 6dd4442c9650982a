// Package dispatch implements the message processor (C4): keyword
// filtering, tariff-aware rendering, and bounded-concurrency delivery with
// retries and TTL caches (spec.md §4.3 / SPEC_FULL.md §4.3).
package dispatch

import "time"

// Event is a single inbound chat message handed off by the monitor engine
// (C3). The monitor fills in the project/chat identity and the already-known
// keyword filter; it never blocks on the send. SenderName/SenderHandle are
// best-effort: an unresolvable sender still produces an Event, just with
// both left blank (spec.md §8 "Filter ordering").
type Event struct {
	ProjectID    int64
	ChatID       int64
	ChatHandle   string
	Keywords     string
	Text         string
	SenderName   string
	SenderHandle string
	MessageID    int
	OccurredAt   time.Time
}
