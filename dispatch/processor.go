package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/semaphore"

	"leadwatch/store"
)

const (
	defaultWorkerConcurrency   = 20 // CPU-heavy stage: keyword scan + snippet render
	defaultDeliveryConcurrency = 10 // egress sends in flight
	maxDeliveryAttempts        = 4  // first send + 3 retries: 1s -> 2s -> 4s
)

// Sender is C8's contract: deliver one rendered Notification. A non-nil
// error wrapping ErrRecipientUnreachable is treated as non-transient.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// dataSource is the slice of C1 the processor needs. Narrowed from the full
// store.Store so tests can fake it without a real driver.
type dataSource interface {
	GetMonitoredChat(ctx context.Context, id int64) (*store.MonitoredChat, error)
	GetProject(ctx context.Context, id int64) (*store.Project, error)
	GetUser(ctx context.Context, userID int64) (*store.User, error)
	GetUserTariff(ctx context.Context, userID int64) (*store.UserTariff, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)
}

// Processor is the message processor (C4): Resolve -> Filter -> Tariff gate
// -> Render -> Deliver, running on a bounded worker pool so the inbound
// event path from C3 never blocks (spec.md §4.3).
type Processor struct {
	store  dataSource
	sender Sender
	logger *slog.Logger
	caches *caches

	// OnInactiveProject is invoked (off the hot path) when an event's
	// project has been deactivated since the chat was subscribed; the
	// composition root wires this to the monitor's StopChat.
	OnInactiveProject func(chatID int64)

	workSem     *semaphore.Weighted
	deliverySem *semaphore.Weighted
	wg          sync.WaitGroup
}

// New builds a Processor. Callers must call Run to start consuming events.
func New(st dataSource, sender Sender, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:       st,
		sender:      sender,
		logger:      logger,
		caches:      newCaches(),
		workSem:     semaphore.NewWeighted(defaultWorkerConcurrency),
		deliverySem: semaphore.NewWeighted(defaultDeliveryConcurrency),
	}
}

// ClearCaches satisfies monitor.CacheClearer; the maintenance loop calls it
// once per reload cycle.
func (p *Processor) ClearCaches() {
	p.caches.clear()
}

// Run consumes events until the channel closes or ctx is cancelled. Each
// event is handed to the worker pool; Run itself never blocks on processing.
func (p *Processor) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return
		case evt, ok := <-events:
			if !ok {
				p.wg.Wait()
				return
			}
			p.dispatch(ctx, evt)
		}
	}
}

func (p *Processor) dispatch(ctx context.Context, evt Event) {
	if err := p.workSem.Acquire(ctx, 1); err != nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.workSem.Release(1)
		p.process(ctx, evt)
	}()
}

func (p *Processor) process(ctx context.Context, evt Event) {
	lookup, err := p.resolveChat(ctx, evt.ChatID)
	if err != nil {
		p.logger.Warn("dispatch: resolve failed", slog.Int64("chat_id", evt.ChatID), slog.String("error", err.Error()))
		return
	}
	if !lookup.project.IsActive {
		if p.OnInactiveProject != nil {
			p.OnInactiveProject(evt.ChatID)
		}
		return
	}

	m := matchKeywords(evt.Keywords, evt.Text)
	if !m.matched {
		return
	}

	var note Notification
	if p.tariffActive(ctx, lookup.user.UserID) {
		note = renderFull(evt, m, evt.SenderName, evt.SenderHandle)
	} else {
		note = renderStub(evt)
	}
	note.RecipientUserID = lookup.user.UserID

	p.deliver(ctx, lookup.user, note)
}

// resolveChat looks up the chat/project/user triple for evt's chat,
// consulting the 60s lookup cache first (spec.md §4.3).
func (p *Processor) resolveChat(ctx context.Context, chatID int64) (*chatLookup, error) {
	if cached, ok := p.caches.lookups.Get(chatID); ok {
		return cached, nil
	}

	chat, err := p.store.GetMonitoredChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	project, err := p.store.GetProject(ctx, chat.ProjectID)
	if err != nil {
		return nil, err
	}
	user, err := p.store.GetUser(ctx, project.UserID)
	if err != nil {
		return nil, err
	}

	lookup := &chatLookup{chat: chat, project: project, user: user}
	p.caches.lookups.SetDefault(chatID, lookup)
	return lookup, nil
}

// tariffActive answers the gate question, consulting the 600s tariff-status
// cache first. Lookup failures (no row yet) are treated as inactive.
func (p *Processor) tariffActive(ctx context.Context, userID int64) bool {
	if cached, ok := p.caches.tariffs.Get(userID); ok {
		return cached
	}

	active := false
	tariff, err := p.store.GetUserTariff(ctx, userID)
	if err == nil && tariff.IsActive && tariff.EndDate.After(time.Now()) {
		active = true
	}
	p.caches.tariffs.SetDefault(userID, active)
	return active
}

// deliver sends note through the bounded egress semaphore, retrying
// transient failures with 1s -> 2s -> 4s backoff, up to three retries
// after the first attempt. A non-transient failure flips the recipient inactive; a
// successful send on a previously-inactive recipient flips it back
// (spec.md §4.3 bullet 5).
func (p *Processor) deliver(ctx context.Context, user *store.User, note Notification) {
	if err := p.deliverySem.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.deliverySem.Release(1)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 4 * time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		err := p.sender.Send(ctx, note)
		if err == nil {
			if !user.IsActive {
				p.setActive(ctx, user.UserID, true)
			}
			return
		}

		lastErr = err
		if errors.Is(err, ErrRecipientUnreachable) {
			p.setActive(ctx, user.UserID, false)
			return
		}
		if attempt == maxDeliveryAttempts {
			break
		}

		timer := time.NewTimer(bo.NextBackOff())
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	p.logger.Warn("dispatch: delivery exhausted retries",
		slog.Int64("user_id", user.UserID), slog.String("error", lastErr.Error()))
}

func (p *Processor) setActive(ctx context.Context, userID int64, active bool) {
	if _, err := p.store.UpdateUser(ctx, &store.UpdateUser{UserID: userID, IsActive: &active}); err != nil {
		p.logger.Warn("dispatch: failed to update user is_active",
			slog.Int64("user_id", userID), slog.Bool("active", active), slog.String("error", err.Error()))
	}
}
