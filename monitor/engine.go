// Package monitor translates the persistent model's active projects and
// chats into live event subscriptions on the session pool, and reacts to
// external mutations within bounded latency (spec.md §4.2 / SPEC_FULL.md
// §4.2).
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gotd/td/tg"

	"leadwatch/dispatch"
	"leadwatch/sessionpool"
	"leadwatch/store"
)

// State is a MonitoredChat's position in the per-chat lifecycle
// (spec.md §4.2): DISABLED -> JOINING -> SUBSCRIBED -> DRAINING -> DISABLED.
type State string

const (
	StateDisabled   State = "disabled"
	StateJoining    State = "joining"
	StateSubscribed State = "subscribed"
	StateDraining   State = "draining"
)

// binding is what the engine remembers about a chat it has subscribed to.
type binding struct {
	chatID     int64
	projectID  int64
	keywords   string
	chatHandle string
	session    string
	peerID     int64
	state      State
}

// Engine is the monitor (C3). One Engine instance owns the realtime session
// pool and the shared update dispatcher; the composition root constructs it
// once.
type Engine struct {
	store      *store.Store
	pool       *sessionpool.Pool
	dispatcher *tg.UpdateDispatcher
	events     chan<- dispatch.Event
	logger     *slog.Logger

	reloadInterval time.Duration

	// mu serialises every state mutation. Per spec.md §5, choose_for_chat and
	// the bindings below are only ever touched from this single control path.
	mu          sync.Mutex
	byChat      map[int64]*binding // chat id -> binding
	byPeer      map[int64]*binding // platform peer id -> binding (handler lookup)

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an Engine and installs its new-message handlers on
// dispatcher. The caller is responsible for passing the same dispatcher into
// the realtime sessionpool.Pool's update handler.
func New(st *store.Store, pool *sessionpool.Pool, dispatcher *tg.UpdateDispatcher, events chan<- dispatch.Event, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:          st,
		pool:           pool,
		dispatcher:     dispatcher,
		events:         events,
		logger:         logger,
		reloadInterval: 6 * time.Hour,
		byChat:         make(map[int64]*binding),
		byPeer:         make(map[int64]*binding),
	}
	e.installHandlers()
	return e
}

func (e *Engine) installHandlers() {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.OnNewChannelMessage(func(ctx context.Context, entities tg.Entities, u *tg.UpdateNewChannelMessage) error {
		e.handleMessage(u.Message, entities)
		return nil
	})
	e.dispatcher.OnNewMessage(func(ctx context.Context, entities tg.Entities, u *tg.UpdateNewMessage) error {
		e.handleMessage(u.Message, entities)
		return nil
	})
}

// handleMessage filters by peer id and hands the event to C4 without
// blocking the update dispatch goroutine (spec.md §5). Sender resolution is
// best-effort against the entities gotd/td attaches to the update; an
// unresolvable sender still produces an event (spec.md §8).
func (e *Engine) handleMessage(raw tg.MessageClass, entities tg.Entities) {
	msg, ok := raw.(*tg.Message)
	if !ok || msg.Out {
		return
	}
	peerID, ok := peerChannelID(msg.PeerID)
	if !ok {
		return
	}

	e.mu.Lock()
	b, bound := e.byPeer[peerID]
	e.mu.Unlock()
	if !bound || b.state != StateSubscribed {
		return
	}

	senderName, senderHandle := resolveSender(msg.FromID, entities)

	event := dispatch.Event{
		ProjectID:    b.projectID,
		ChatID:       b.chatID,
		ChatHandle:   b.chatHandle,
		Keywords:     b.keywords,
		Text:         msg.Message,
		SenderName:   senderName,
		SenderHandle: senderHandle,
		MessageID:    msg.ID,
		OccurredAt:   time.Unix(int64(msg.Date), 0).UTC(),
	}

	select {
	case e.events <- event:
	default:
		e.logger.Warn("monitor: event channel full, dropping message",
			slog.Int64("chat_id", b.chatID), slog.Int("message_id", msg.ID))
	}
}

// resolveSender looks the message's sender up in the entities gotd/td
// attaches to the update. Returns blank strings if fromID is nil or the
// sender isn't present in entities (e.g. never seen before).
func resolveSender(fromID tg.PeerClass, entities tg.Entities) (name, handle string) {
	peerUser, ok := fromID.(*tg.PeerUser)
	if !ok {
		return "", ""
	}
	user, ok := entities.Users[peerUser.UserID]
	if !ok {
		return "", ""
	}
	name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	if user.Username != "" {
		handle = "@" + user.Username
	}
	return name, handle
}

func peerChannelID(peer tg.PeerClass) (int64, bool) {
	switch p := peer.(type) {
	case *tg.PeerChannel:
		return p.ChannelID, true
	case *tg.PeerChat:
		return p.ChatID, true
	default:
		return 0, false
	}
}

// StartProject snapshots the project's active chats and starts each,
// returning the count successfully subscribed (spec.md §4.2).
func (e *Engine) StartProject(ctx context.Context, projectID int64) (int, error) {
	active := true
	chats, err := e.store.ListMonitoredChats(ctx, &store.FindMonitoredChat{ProjectID: &projectID, IsActive: &active})
	if err != nil {
		return 0, fmt.Errorf("monitor: list chats for project %d: %w", projectID, err)
	}

	count := 0
	for _, chat := range chats {
		if err := e.StartChat(ctx, chat.ID, projectID); err != nil {
			e.logger.Warn("monitor: start_chat failed during start_project",
				slog.Int64("chat_id", chat.ID), slog.Int64("project_id", projectID), slog.String("error", err.Error()))
			continue
		}
		count++
	}
	return count, nil
}

// StartChat is idempotent: if the chat is already SUBSCRIBED it only
// re-ensures the chat is present in the active-projects index.
func (e *Engine) StartChat(ctx context.Context, chatID, projectID int64) error {
	e.mu.Lock()
	if existing, ok := e.byChat[chatID]; ok && existing.state == StateSubscribed {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	chat, err := e.store.GetMonitoredChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("monitor: get chat %d: %w", chatID, err)
	}

	e.setState(chatID, StateJoining)

	session, err := e.pool.ChooseForChat(ctx, chat.ChatHandle)
	if err != nil {
		e.setState(chatID, StateDisabled)
		return fmt.Errorf("monitor: choose session for chat %d: %w", chatID, err)
	}

	peerID, err := joinChat(ctx, session, chat)
	if err != nil {
		e.setState(chatID, StateDisabled)
		return fmt.Errorf("monitor: join chat %d: %w", chatID, err)
	}

	b := &binding{
		chatID:     chatID,
		projectID:  projectID,
		keywords:   chat.Keywords,
		chatHandle: chat.ChatHandle,
		session:    session.Name,
		peerID:     peerID,
		state:      StateSubscribed,
	}
	e.mu.Lock()
	e.byChat[chatID] = b
	e.byPeer[peerID] = b
	e.mu.Unlock()
	return nil
}

// ActiveChatCount reports how many chats currently hold a binding, for the
// HTTP surface's active_chats gauge.
func (e *Engine) ActiveChatCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.byChat)
}

// StopChat is idempotent: transitions the chat to DISABLED and removes it
// from both bookkeeping indices.
func (e *Engine) StopChat(chatID int64) {
	e.mu.Lock()
	b, ok := e.byChat[chatID]
	if !ok {
		e.mu.Unlock()
		return
	}
	b.state = StateDraining
	delete(e.byChat, chatID)
	delete(e.byPeer, b.peerID)
	e.mu.Unlock()

	b.state = StateDisabled
}

// StopProject stops every chat bound to projectID.
func (e *Engine) StopProject(projectID int64) {
	e.mu.Lock()
	var ids []int64
	for id, b := range e.byChat {
		if b.projectID == projectID {
			ids = append(ids, id)
		}
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.StopChat(id)
	}
}

// RestartAllActive stops everything cleanly, reloads active projects, and
// re-subscribes. Used at boot and by the periodic maintenance tick.
func (e *Engine) RestartAllActive(ctx context.Context) error {
	e.mu.Lock()
	var ids []int64
	for id := range e.byChat {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		e.StopChat(id)
	}

	active := true
	projects, err := e.store.ListProjects(ctx, &store.FindProject{IsActive: &active})
	if err != nil {
		return fmt.Errorf("monitor: list active projects: %w", err)
	}
	for _, p := range projects {
		if _, err := e.StartProject(ctx, p.ID); err != nil {
			e.logger.Warn("monitor: restart_all_active failed to start project",
				slog.Int64("project_id", p.ID), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (e *Engine) setState(chatID int64, s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.byChat[chatID]; ok {
		b.state = s
	}
}

// joinChat ensures the chosen client participates in the chat — join-by-
// username when the handle starts with "@", invite-hash import when the
// chat record's type is invite — and returns the channel id the update
// handler will see on subsequent events from this chat.
func joinChat(ctx context.Context, session *sessionpool.Session, chat *store.MonitoredChat) (int64, error) {
	api := session.API()

	if chat.Type == store.ChatTypeInvite {
		updates, err := api.MessagesImportChatInvite(ctx, chat.ChatHandle)
		if err != nil {
			return 0, err
		}
		id, ok := firstChannelID(updates)
		if !ok {
			return 0, fmt.Errorf("invite %q did not resolve to a channel", chat.ChatHandle)
		}
		return id, nil
	}

	handle := strings.TrimPrefix(chat.ChatHandle, "@")
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: handle})
	if err != nil {
		return 0, fmt.Errorf("resolve username %q: %w", handle, err)
	}
	for _, c := range resolved.Chats {
		channel, ok := c.(*tg.Channel)
		if !ok {
			continue
		}
		if _, err := api.ChannelsJoinChannel(ctx, &tg.InputChannel{
			ChannelID:  channel.ID,
			AccessHash: channel.AccessHash,
		}); err != nil {
			return 0, err
		}
		return channel.ID, nil
	}
	return 0, fmt.Errorf("username %q did not resolve to a channel", handle)
}

// firstChannelID pulls the first channel id out of an updates response,
// regardless of which concrete tg.UpdatesClass variant the RPC returned.
func firstChannelID(updates tg.UpdatesClass) (int64, bool) {
	var chats []tg.ChatClass
	switch u := updates.(type) {
	case *tg.Updates:
		chats = u.Chats
	case *tg.UpdatesCombined:
		chats = u.Chats
	default:
		return 0, false
	}
	for _, c := range chats {
		if channel, ok := c.(*tg.Channel); ok {
			return channel.ID, true
		}
	}
	return 0, false
}
