// Package sessionpool owns the authenticated messaging-platform clients
// shared across tenant chat subscriptions (spec.md §4.1 / SPEC_FULL.md
// §4.1). Two instances are constructed by the composition root: a
// `realtime` pool whose clients stay connected for the process lifetime,
// and a `history` pool whose clients are checked out and released per
// extraction.
package sessionpool

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"golang.org/x/sync/errgroup"
)

// Session is a bound, connected client plus the bookkeeping handle used to
// release or disconnect it.
type Session struct {
	Name       string
	Credential Credential

	api  *tg.Client
	stop func(context.Context) error
}

// API returns the RPC surface bound to this session's client.
func (s *Session) API() *tg.Client { return s.api }

// dialer connects a credential into a running client. The production dialer
// (client.go) drives gotd/td; tests substitute a fake to exercise the pool's
// bookkeeping without a network.
type dialer interface {
	dial(ctx context.Context, cred Credential) (*Session, error)
}

// Descriptor is the read-only snapshot `list_info` hands to admin surfaces.
type Descriptor struct {
	Name       string
	Pool       Kind
	InUse      bool
	Active     bool
	BoundChats int
}

// Pool maintains one messaging-platform client set for either the realtime
// or history role.
type Pool struct {
	kind   Kind
	dir    string
	logger *slog.Logger
	dialer dialer

	mu          sync.Mutex
	credentials []Credential
	inUse       map[string]bool

	active       map[string]*Session          // session name -> connected client
	chatSession  map[string]string            // chat handle -> session name
	sessionChats map[string]map[string]bool   // session name -> bound chat handles
}

// New discovers credentials under dir and returns a Pool ready to serve
// AcquireTransient/ChooseForChat calls. Discovery failures on individual
// credentials are logged and skipped (spec.md §4.1); only a directory read
// failure is returned as an error.
//
// updateHandler, when non-nil, is installed on every client this pool dials
// (the realtime pool wires the monitor's shared tg.UpdateDispatcher here; the
// history pool, which never holds a live subscription, passes nil).
func New(dir string, kind Kind, logger *slog.Logger, updateHandler telegram.UpdateHandler) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	creds, err := DiscoverCredentials(dir, kind)
	if err != nil {
		return nil, err
	}
	return newPool(dir, kind, logger, creds, &gotdDialer{logger: logger, updateHandler: updateHandler}), nil
}

func newPool(dir string, kind Kind, logger *slog.Logger, creds []Credential, d dialer) *Pool {
	return &Pool{
		kind:         kind,
		dir:          dir,
		logger:       logger,
		dialer:       d,
		credentials:  creds,
		inUse:        make(map[string]bool),
		active:       make(map[string]*Session),
		chatSession:  make(map[string]string),
		sessionChats: make(map[string]map[string]bool),
	}
}

// AcquireTransient picks a credential not currently marked in-use, connects,
// and verifies authorization. Candidate order is randomised to spread load;
// a connect failure removes that credential from this call's candidate set
// and the next is tried (spec.md §4.1).
func (p *Pool) AcquireTransient(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	candidates := make([]Credential, 0, len(p.credentials))
	for _, c := range p.credentials {
		if !p.inUse[c.Name] {
			candidates = append(candidates, c)
		}
	}
	p.mu.Unlock()

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, cred := range candidates {
		p.mu.Lock()
		if p.inUse[cred.Name] {
			p.mu.Unlock()
			continue
		}
		p.inUse[cred.Name] = true
		p.mu.Unlock()

		session, err := p.dialer.dial(ctx, cred)
		if err != nil {
			p.logger.Warn("sessionpool: transient connect failed",
				slog.String("session", cred.Name), slog.String("error", err.Error()))
			p.mu.Lock()
			delete(p.inUse, cred.Name)
			p.mu.Unlock()
			continue
		}
		return session, nil
	}
	return nil, ErrNoSessionAvailable
}

// ReleaseTransient disconnects and unmarks a session acquired via
// AcquireTransient.
func (p *Pool) ReleaseTransient(ctx context.Context, session *Session) error {
	if session == nil {
		return ErrUnknownSession
	}
	p.mu.Lock()
	delete(p.inUse, session.Name)
	p.mu.Unlock()

	if session.stop == nil {
		return nil
	}
	return session.stop(ctx)
}

// ChooseForChat implements the least-loaded binding policy: if the chat is
// already bound to a session, return it; else compare the least-loaded
// active client against the option of promoting an unused credential
// (effective load 0), and pick whichever is lower — reusing an active
// session without promoting when its load is already 0, or when promote
// finds no credential it can connect. This operation
// must only be invoked from the monitor's serialised control path (spec.md
// §5), so the mutex below guards bookkeeping consistency rather than true
// contention.
func (p *Pool) ChooseForChat(ctx context.Context, chatHandle string) (*Session, error) {
	p.mu.Lock()
	if name, ok := p.chatSession[chatHandle]; ok {
		session := p.active[name]
		p.mu.Unlock()
		return session, nil
	}

	var best *Session
	bestLoad := -1
	for name, session := range p.active {
		load := len(p.sessionChats[name])
		if bestLoad == -1 || load < bestLoad {
			best, bestLoad = session, load
		}
	}
	p.mu.Unlock()

	// A fresh credential starts at load 0, so it only loses to an active
	// session that already has nothing bound to it.
	if best == nil || bestLoad > 0 {
		promoted, err := p.promote(ctx)
		switch {
		case err == nil:
			best = promoted
		case errors.Is(err, ErrNoSessionAvailable) && best != nil:
			// Nothing left to promote; fall back to the least-loaded active session.
		default:
			return nil, err
		}
	}

	p.mu.Lock()
	p.chatSession[chatHandle] = best.Name
	if p.sessionChats[best.Name] == nil {
		p.sessionChats[best.Name] = make(map[string]bool)
	}
	p.sessionChats[best.Name][chatHandle] = true
	p.mu.Unlock()

	return best, nil
}

// promote connects an as-yet-inactive credential and adds it to the active
// set. Candidates already active or checked out transiently are skipped.
func (p *Pool) promote(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	var candidates []Credential
	for _, c := range p.credentials {
		if _, active := p.active[c.Name]; active {
			continue
		}
		if p.inUse[c.Name] {
			continue
		}
		candidates = append(candidates, c)
	}
	p.mu.Unlock()

	for _, cred := range candidates {
		session, err := p.dialer.dial(ctx, cred)
		if err != nil {
			p.logger.Warn("sessionpool: promote connect failed",
				slog.String("session", cred.Name), slog.String("error", err.Error()))
			continue
		}
		p.mu.Lock()
		p.active[cred.Name] = session
		p.mu.Unlock()
		return session, nil
	}
	return nil, ErrNoSessionAvailable
}

// Orphan marks every chat bound to the named session as unbound, so the next
// ChooseForChat call re-promotes them onto a healthy client. The pool does
// not detect unusable clients itself, and no other package in this module
// calls Orphan; a chat stays bound to its session until a caller does.
func (p *Pool) Orphan(name string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.active, name)
	chats := p.sessionChats[name]
	delete(p.sessionChats, name)

	orphaned := make([]string, 0, len(chats))
	for chat := range chats {
		delete(p.chatSession, chat)
		orphaned = append(orphaned, chat)
	}
	return orphaned
}

// ListInfo returns descriptor tuples for admin surfaces.
func (p *Pool) ListInfo() []Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Descriptor, 0, len(p.credentials))
	for _, c := range p.credentials {
		_, active := p.active[c.Name]
		out = append(out, Descriptor{
			Name:       c.Name,
			Pool:       p.kind,
			InUse:      p.inUse[c.Name],
			Active:     active,
			BoundChats: len(p.sessionChats[c.Name]),
		})
	}
	return out
}

// Shutdown disconnects every active client with a hard per-client timeout,
// force-closing on timeout, and clears all bookkeeping regardless of
// individual disconnect outcomes (spec.md §4.1/§5).
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.active))
	for _, s := range p.active {
		sessions = append(sessions, s)
	}
	p.active = make(map[string]*Session)
	p.chatSession = make(map[string]string)
	p.sessionChats = make(map[string]map[string]bool)
	p.inUse = make(map[string]bool)
	p.mu.Unlock()

	var g errgroup.Group
	for _, session := range sessions {
		s := session
		g.Go(func() error {
			if s.stop == nil {
				return nil
			}
			stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := s.stop(stopCtx); err != nil {
				p.logger.Warn("sessionpool: disconnect failed on shutdown",
					slog.String("session", s.Name), slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()
	return nil
}
