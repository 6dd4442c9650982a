package monitor

import (
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadwatch/dispatch"
)

func TestPeerChannelID(t *testing.T) {
	id, ok := peerChannelID(&tg.PeerChannel{ChannelID: 42})
	require.True(t, ok)
	assert.EqualValues(t, 42, id)

	id, ok = peerChannelID(&tg.PeerChat{ChatID: 7})
	require.True(t, ok)
	assert.EqualValues(t, 7, id)

	_, ok = peerChannelID(&tg.PeerUser{UserID: 1})
	assert.False(t, ok)
}

func TestFirstChannelID(t *testing.T) {
	channel := &tg.Channel{ID: 99, AccessHash: 123}

	id, ok := firstChannelID(&tg.Updates{Chats: []tg.ChatClass{channel}})
	require.True(t, ok)
	assert.EqualValues(t, 99, id)

	id, ok = firstChannelID(&tg.UpdatesCombined{Chats: []tg.ChatClass{channel}})
	require.True(t, ok)
	assert.EqualValues(t, 99, id)

	_, ok = firstChannelID(&tg.UpdateShort{})
	assert.False(t, ok)
}

func newTestEngine(events chan dispatch.Event) *Engine {
	return New(nil, nil, nil, events, nil)
}

func TestStopChat_RemovesBindings(t *testing.T) {
	e := newTestEngine(nil)
	e.byChat[1] = &binding{chatID: 1, projectID: 10, peerID: 100, state: StateSubscribed}
	e.byPeer[100] = e.byChat[1]

	e.StopChat(1)

	_, inChat := e.byChat[1]
	_, inPeer := e.byPeer[100]
	assert.False(t, inChat)
	assert.False(t, inPeer)
}

func TestStopChat_UnknownChatIsNoop(t *testing.T) {
	e := newTestEngine(nil)
	assert.NotPanics(t, func() { e.StopChat(999) })
}

func TestStopProject_StopsOnlyMatchingProject(t *testing.T) {
	e := newTestEngine(nil)
	e.byChat[1] = &binding{chatID: 1, projectID: 10, peerID: 100}
	e.byPeer[100] = e.byChat[1]
	e.byChat[2] = &binding{chatID: 2, projectID: 20, peerID: 200}
	e.byPeer[200] = e.byChat[2]

	e.StopProject(10)

	_, gone := e.byChat[1]
	_, kept := e.byChat[2]
	assert.False(t, gone)
	assert.True(t, kept)
}

func TestHandleMessage_DeliversForBoundChat(t *testing.T) {
	events := make(chan dispatch.Event, 1)
	e := newTestEngine(events)
	e.byPeer[42] = &binding{chatID: 1, projectID: 10, keywords: "demo", chatHandle: "@demo", state: StateSubscribed}

	e.handleMessage(&tg.Message{
		ID:      5,
		Message: "hello world",
		PeerID:  &tg.PeerChannel{ChannelID: 42},
		Date:    int(time.Now().Unix()),
	}, tg.Entities{})

	select {
	case got := <-events:
		assert.Equal(t, int64(1), got.ChatID)
		assert.Equal(t, int64(10), got.ProjectID)
		assert.Equal(t, "hello world", got.Text)
	default:
		t.Fatal("expected an event to be delivered")
	}
}

func TestHandleMessage_IgnoresUnboundPeer(t *testing.T) {
	events := make(chan dispatch.Event, 1)
	e := newTestEngine(events)

	e.handleMessage(&tg.Message{ID: 1, PeerID: &tg.PeerChannel{ChannelID: 999}}, tg.Entities{})

	select {
	case <-events:
		t.Fatal("unbound peer must not produce an event")
	default:
	}
}

func TestHandleMessage_IgnoresOutgoing(t *testing.T) {
	events := make(chan dispatch.Event, 1)
	e := newTestEngine(events)
	e.byPeer[42] = &binding{chatID: 1, state: StateSubscribed}

	e.handleMessage(&tg.Message{ID: 1, Out: true, PeerID: &tg.PeerChannel{ChannelID: 42}}, tg.Entities{})

	select {
	case <-events:
		t.Fatal("outgoing messages must not produce an event")
	default:
	}
}

func TestHandleMessage_DropsWhenChannelFull(t *testing.T) {
	events := make(chan dispatch.Event) // unbuffered, never drained
	e := newTestEngine(events)
	e.byPeer[42] = &binding{chatID: 1, state: StateSubscribed}

	assert.NotPanics(t, func() {
		e.handleMessage(&tg.Message{ID: 1, PeerID: &tg.PeerChannel{ChannelID: 42}}, tg.Entities{})
	})
}
