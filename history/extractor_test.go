package history

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestHistoryTotal(t *testing.T) {
	if got := historyTotal(&tg.MessagesMessagesSlice{Count: 42}); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := historyTotal(&tg.MessagesChannelMessages{Count: 7}); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	msgs := &tg.MessagesMessages{Messages: []tg.MessageClass{&tg.Message{ID: 1}, &tg.Message{ID: 2}}}
	if got := historyTotal(msgs); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestHistoryMessages_CollectsUsersByID(t *testing.T) {
	user := &tg.User{ID: 7, FirstName: "Jane", Username: "jane"}
	resp := &tg.MessagesMessagesSlice{
		Messages: []tg.MessageClass{&tg.Message{ID: 1, Message: "hi"}},
		Users:    []tg.UserClass{user},
	}
	msgs, users := historyMessages(resp)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if _, ok := users[7]; !ok {
		t.Fatal("expected user 7 to be indexed")
	}
}

func TestResolveHistorySender_Resolvable(t *testing.T) {
	users := map[int64]*tg.User{7: {ID: 7, FirstName: "Jane", LastName: "Doe", Username: "jane"}}
	name, handle := resolveHistorySender(&tg.PeerUser{UserID: 7}, users)
	if name != "Jane Doe" || handle != "@jane" {
		t.Fatalf("unexpected sender %q %q", name, handle)
	}
}

func TestResolveHistorySender_UnresolvableIsBlank(t *testing.T) {
	name, handle := resolveHistorySender(&tg.PeerUser{UserID: 99}, map[int64]*tg.User{})
	if name != "" || handle != "" {
		t.Fatal("expected blank sender fields for an unresolvable user")
	}
}

func TestResolveHistorySender_NonUserPeerIsBlank(t *testing.T) {
	name, handle := resolveHistorySender(&tg.PeerChannel{ChannelID: 1}, map[int64]*tg.User{})
	if name != "" || handle != "" {
		t.Fatal("expected blank sender fields for a non-user peer")
	}
}
