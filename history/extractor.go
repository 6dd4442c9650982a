// Package history implements the history extractor (C5): a bounded,
// optionally keyword-filtered backfill of a chat's messages, streamed as
// progress updates and concluded with a tabular artifact (spec.md §4.4).
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"golang.org/x/sync/semaphore"

	"leadwatch/dispatch"
	"leadwatch/sessionpool"
)

const (
	pageSize           = 100
	maxConcurrentPages = int64(3)
	maxConcurrentMsgs  = int64(5)
	progressStep       = 5
)

// Message is one row of the final payload.
type Message struct {
	MessageID    int
	Date         time.Time
	SenderName   string
	SenderHandle string
	Text         string
}

// Summary accompanies the message rows in the final payload.
type Summary struct {
	ChatTitle            string
	TotalMessagesScanned int
	Matched              int
	Keywords             string
	ExtractedAt          time.Time
}

// Payload is the final artifact, emitted exactly once at Progress{Percent: 100}.
// Messages are ordered newest first (descending MessageID).
type Payload struct {
	Messages []Message
	Summary  Summary
}

// Progress is one item on the stream Extract returns. Payload is nil on
// every item except the final one.
type Progress struct {
	Percent int
	Payload *Payload
}

// Extractor runs backfills against the realtime-or-history session pool the
// composition root wires in.
type Extractor struct {
	pool   *sessionpool.Pool
	logger *slog.Logger
}

// New builds an Extractor. pool should be the history-kind sessionpool.Pool
// so backfills don't compete with live monitoring traffic.
func New(pool *sessionpool.Pool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{pool: pool, logger: logger}
}

// Extract runs the backfill in a goroutine and streams progress on the
// returned channel, which is closed after the final item. limit <= 0 means
// no cap; keywords empty means "match everything".
func (e *Extractor) Extract(ctx context.Context, chatHandle string, limit int, keywords string) <-chan Progress {
	out := make(chan Progress, 8)
	go func() {
		defer close(out)
		e.run(ctx, chatHandle, limit, keywords, out)
	}()
	return out
}

func (e *Extractor) run(ctx context.Context, chatHandle string, limit int, keywords string, out chan<- Progress) {
	session, err := e.pool.AcquireTransient(ctx)
	if err != nil {
		e.logger.Warn("history: no session available", slog.String("error", err.Error()))
		out <- Progress{Percent: 100}
		return
	}
	defer func() { _ = e.pool.ReleaseTransient(context.Background(), session) }()

	api := session.API()
	peer, title, err := resolvePeer(ctx, api, chatHandle)
	if err != nil {
		e.logger.Warn("history: resolve chat failed", slog.String("chat", chatHandle), slog.String("error", err.Error()))
		out <- Progress{Percent: 100}
		return
	}

	first, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{Peer: peer, Limit: 1})
	if err != nil {
		if wait, ok := floodWait(err); ok {
			e.sleepFloodWait(ctx, wait)
			out <- Progress{Percent: 100}
			return
		}
		e.logger.Warn("history: initial history probe failed", slog.String("error", err.Error()))
		out <- Progress{Percent: 100}
		return
	}
	total := historyTotal(first)
	if total == 0 {
		out <- Progress{Percent: 100, Payload: &Payload{Summary: Summary{ChatTitle: title, Keywords: keywords, ExtractedAt: time.Now().UTC()}}}
		return
	}
	if limit > 0 && limit < total {
		total = limit
	}

	pages := (total + pageSize - 1) / pageSize

	var (
		mu      sync.Mutex
		rows    []Message
		scanned int64
		matched int64
		lastPct int64
		pageSem = semaphore.NewWeighted(maxConcurrentPages)
		msgSem  = semaphore.NewWeighted(maxConcurrentMsgs)
		pagesWG sync.WaitGroup
		aborted atomic.Bool
	)

	for p := 0; p < pages; p++ {
		if err := pageSem.Acquire(ctx, 1); err != nil {
			aborted.Store(true)
			break
		}

		pagesWG.Add(1)
		go func(offset int) {
			defer pagesWG.Done()
			defer pageSem.Release(1)

			req := &tg.MessagesGetHistoryRequest{Peer: peer, OffsetID: 0, AddOffset: offset, Limit: min(pageSize, total-offset)}
			resp, err := api.MessagesGetHistory(ctx, req)
			if err != nil {
				if wait, ok := floodWait(err); ok {
					e.sleepFloodWait(ctx, wait)
					aborted.Store(true)
					return
				}
				e.logger.Warn("history: page fetch failed", slog.Int("offset", offset), slog.String("error", err.Error()))
				return
			}

			msgs, users := historyMessages(resp)

			var msgWG sync.WaitGroup
			for _, mc := range msgs {
				msg, ok := mc.(*tg.Message)
				if !ok {
					continue
				}
				if err := msgSem.Acquire(ctx, 1); err != nil {
					continue
				}
				msgWG.Add(1)
				go func(m *tg.Message) {
					defer msgWG.Done()
					defer msgSem.Release(1)

					matches := dispatch.MatchKeywords(keywords, m.Message)
					atomic.AddInt64(&scanned, 1)
					if !matches {
						return
					}
					atomic.AddInt64(&matched, 1)
					name, handle := resolveHistorySender(m.FromID, users)

					mu.Lock()
					rows = append(rows, Message{
						MessageID:    m.ID,
						Date:         time.Unix(int64(m.Date), 0).UTC(),
						SenderName:   name,
						SenderHandle: handle,
						Text:         m.Message,
					})
					mu.Unlock()
				}(msg)
			}
			msgWG.Wait()

			pct := int(atomic.LoadInt64(&scanned) * 100 / int64(total))
			prev := atomic.LoadInt64(&lastPct)
			if int64(pct)-prev >= progressStep || pct == 100 {
				if atomic.CompareAndSwapInt64(&lastPct, prev, int64(pct)) {
					out <- Progress{Percent: pct}
				}
			}
		}(p * pageSize)
	}
	pagesWG.Wait()

	if aborted.Load() {
		out <- Progress{Percent: 100}
		return
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].MessageID > rows[j].MessageID })

	out <- Progress{
		Percent: 100,
		Payload: &Payload{
			Messages: rows,
			Summary: Summary{
				ChatTitle:            title,
				TotalMessagesScanned: int(atomic.LoadInt64(&scanned)),
				Matched:              int(atomic.LoadInt64(&matched)),
				Keywords:             keywords,
				ExtractedAt:          time.Now().UTC(),
			},
		},
	}
}

func (e *Extractor) sleepFloodWait(ctx context.Context, wait time.Duration) {
	e.logger.Warn("history: flood wait, terminating extraction", slog.Duration("wait", wait))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// floodWait extracts the advertised wait duration from a FLOOD_WAIT_X RPC
// error, if that's what err is.
func floodWait(err error) (time.Duration, bool) {
	var rpcErr *tgerr.Error
	if !tgerr.As(err, &rpcErr) {
		return 0, false
	}
	if !strings.HasPrefix(rpcErr.Type, "FLOOD_WAIT_") {
		return 0, false
	}
	return time.Duration(rpcErr.Argument) * time.Second, true
}

func resolvePeer(ctx context.Context, api *tg.Client, chatHandle string) (tg.InputPeerClass, string, error) {
	handle := strings.TrimPrefix(chatHandle, "@")
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: handle})
	if err != nil {
		return nil, "", fmt.Errorf("resolve username %q: %w", handle, err)
	}
	for _, c := range resolved.Chats {
		if channel, ok := c.(*tg.Channel); ok {
			return &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, channel.Title, nil
		}
	}
	return nil, "", fmt.Errorf("username %q did not resolve to a channel", handle)
}

func historyTotal(resp tg.MessagesMessagesClass) int {
	switch r := resp.(type) {
	case *tg.MessagesMessagesSlice:
		return r.Count
	case *tg.MessagesChannelMessages:
		return r.Count
	case *tg.MessagesMessages:
		return len(r.Messages)
	default:
		return 0
	}
}

func historyMessages(resp tg.MessagesMessagesClass) ([]tg.MessageClass, map[int64]*tg.User) {
	var msgs []tg.MessageClass
	var userList []tg.UserClass
	switch r := resp.(type) {
	case *tg.MessagesMessagesSlice:
		msgs, userList = r.Messages, r.Users
	case *tg.MessagesChannelMessages:
		msgs, userList = r.Messages, r.Users
	case *tg.MessagesMessages:
		msgs, userList = r.Messages, r.Users
	}

	users := make(map[int64]*tg.User, len(userList))
	for _, uc := range userList {
		if u, ok := uc.(*tg.User); ok {
			users[u.ID] = u
		}
	}
	return msgs, users
}

func resolveHistorySender(fromID tg.PeerClass, users map[int64]*tg.User) (name, handle string) {
	peerUser, ok := fromID.(*tg.PeerUser)
	if !ok {
		return "", ""
	}
	user, ok := users[peerUser.UserID]
	if !ok {
		return "", ""
	}
	name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	if user.Username != "" {
		handle = "@" + user.Username
	}
	return name, handle
}
