package dispatch

import (
	"fmt"
	"strings"
)

// snippetWindow is the maximum length of the rendered text excerpt.
const snippetWindow = 184

// Button is one inline action attached to a Notification. Egress adapters
// translate it into the platform's own keyboard markup.
type Button struct {
	Label string
	URL   string
}

// Notification is what C4 hands to C8 for delivery. It carries no
// platform-specific markup types so egress implementations stay swappable.
type Notification struct {
	RecipientUserID int64
	ProjectID       int64
	ChatID          int64
	SenderName      string
	SenderHandle    string
	MatchedKeyword  string
	Snippet         string
	SourceLink      string
	SenderLink      string
	Buttons         []Button
	Stub            bool // true when the user's tariff gate denied full rendering
}

// renderSnippet builds the excerpt described by spec.md §4.3: the window
// starts at the first match and runs up to snippetWindow runes, prefixed
// with "..." when the match isn't at the start of the text and suffixed
// with "..." when the window was truncated. With no keywords configured the
// window starts at 0.
func renderSnippet(text string, m matchResult) string {
	runes := []rune(text)
	start := 0
	if m.foundIndex > 0 {
		start = len([]rune(text[:m.foundIndex]))
	}

	end := start + snippetWindow
	truncated := end < len(runes)
	if end > len(runes) {
		end = len(runes)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:end]))
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}

// renderSourceLink builds a t.me deep link to the matched message. Only
// constructible for handle-based (public username) chats.
func renderSourceLink(chatHandle string, messageID int) string {
	if !strings.HasPrefix(chatHandle, "@") {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(chatHandle, "@"), messageID)
}

// renderSenderLink builds a direct-message deep link to the sender.
func renderSenderLink(senderHandle string) string {
	if senderHandle == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s", strings.TrimPrefix(senderHandle, "@"))
}

// renderFull assembles the full notification body for an event that matched
// and whose recipient's tariff is active.
func renderFull(evt Event, m matchResult, senderName, senderHandle string) Notification {
	n := Notification{
		ProjectID:      evt.ProjectID,
		ChatID:         evt.ChatID,
		SenderName:     senderName,
		SenderHandle:   senderHandle,
		MatchedKeyword: m.keyword,
		Snippet:        renderSnippet(evt.Text, m),
		SourceLink:     renderSourceLink(evt.ChatHandle, evt.MessageID),
		SenderLink:     renderSenderLink(senderHandle),
	}
	if n.SourceLink != "" {
		n.Buttons = append(n.Buttons, Button{Label: "Open message", URL: n.SourceLink})
	}
	if n.SenderLink != "" {
		n.Buttons = append(n.Buttons, Button{Label: "Message sender", URL: n.SenderLink})
	}
	return n
}

// renderStub assembles the degraded body sent when the gate in C6 has
// flagged the recipient's tariff as inactive (spec.md §4.5).
func renderStub(evt Event) Notification {
	return Notification{
		ProjectID: evt.ProjectID,
		ChatID:    evt.ChatID,
		Stub:      true,
	}
}
