package session

import (
	"context"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
	"github.com/DoyleJ11/ti4-draft-backend/internal/notify"
	"github.com/DoyleJ11/ti4-draft-backend/internal/store"
)

type Msg interface{ isSessionMsg() }

// FromClient applies one intent. DryRun validates without committing.
type FromClient struct {
	Cmd    engine.Command
	DryRun bool
	Reply  chan Result
}

func (FromClient) isSessionMsg() {}

// Propose replaces the draft with a client-built state. The proposal must be
// based on the current version. An admin may rewrite the whole log; anyone
// else may only append picks they could have made as live intents.
type Propose struct {
	BaseVersion int
	Draft       engine.Draft
	Actor       engine.PlayerID
	Caps        engine.Caps
	Reply       chan Result
}

func (Propose) isSessionMsg() {}

type Join struct {
	ClientID string
	Viewer   engine.PlayerID
	Admin    bool
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// Snapshot is the state pushed to one subscriber, redacted for its viewer.
type Snapshot struct {
	Version int
	Draft   engine.Draft
}

type View struct {
	Version    int
	NumClients int
	Draft      engine.Draft
}

// Result answers FromClient and Propose. Warnings carry collaborator
// failures that did not undo the commit.
type Result struct {
	Version  int
	Events   []engine.Event
	Warnings []string
	Err      error
}

type Options struct {
	Store    store.Store
	Notifier notify.Notifier
	Log      *zap.Logger

	InboxSize        int
	PersistTimeout   time.Duration
	PersistRetries   int
	PersistBaseDelay time.Duration
	NotifyTimeout    time.Duration
	// OnClose runs on the actor goroutine after shutdown.
	OnClose func(id string)
}

func (o *Options) defaults() {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.InboxSize <= 0 {
		o.InboxSize = 64
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 5 * time.Second
	}
	if o.PersistBaseDelay <= 0 {
		o.PersistBaseDelay = 100 * time.Millisecond
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 5 * time.Second
	}
}

type client struct {
	viewer engine.PlayerID
	admin  bool
	out    chan Snapshot
}

// Session owns one draft. All mutations run on its goroutine.
type Session struct {
	id      string
	inbox   chan Msg
	draft   engine.Draft
	version int
	clients map[string]client
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, rec store.Record, opts Options) *Session {
	opts.defaults()
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		id:      rec.Draft.ID,
		inbox:   make(chan Msg, opts.InboxSize),
		draft:   rec.Draft,
		version: rec.Version,
		clients: make(map[string]client),
		opts:    opts,
		log:     opts.Log.With(zap.String("draft_id", rec.Draft.ID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Expose the inbox so the transport layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session stops accepting messages.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	defer func() {
		if s.opts.OnClose != nil {
			s.opts.OnClose(s.id)
		}
	}()
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				c := client{viewer: msg.Viewer, admin: msg.Admin, out: msg.Outbox}
				s.clients[msg.ClientID] = c
				s.send(msg.ClientID, c)

			case Leave:
				delete(s.clients, msg.ClientID)

			case FromClient:
				reply(msg.Reply, s.handleIntent(msg))

			case Propose:
				reply(msg.Reply, s.handlePropose(msg))

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					Draft:      s.draft,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func reply(ch chan Result, r Result) {
	if ch == nil {
		return
	}
	select {
	case ch <- r:
	default:
	}
}

func (s *Session) handleIntent(msg FromClient) Result {
	events, next, err := engine.Apply(s.draft, msg.Cmd)
	if err != nil {
		s.log.Debug("intent rejected", zap.Int("actor", int(msg.Cmd.Actor)), zap.Error(err))
		return Result{Version: s.version, Err: err}
	}
	if msg.DryRun {
		return Result{Version: s.version, Events: events}
	}

	warnings := s.commit(next, engine.Grew(events))
	return Result{Version: s.version, Events: events, Warnings: warnings}
}

func (s *Session) handlePropose(msg Propose) Result {
	if msg.BaseVersion != s.version {
		return Result{Version: s.version, Err: ErrVersionConflict}
	}
	if msg.Draft.ID != s.id {
		return Result{Version: s.version, Err: ErrDraftMismatch}
	}

	cur := s.draft.Selections
	proposed := msg.Draft.Selections
	if slices.Equal(cur, proposed) {
		return Result{Version: s.version}
	}
	if s.draft.Staging != nil {
		return Result{Version: s.version, Err: engine.ErrStagingInProgress}
	}

	var next engine.Draft
	var err error
	if msg.Caps.Admin {
		next, err = engine.Rebuild(s.draft, proposed)
	} else {
		if len(proposed) < len(cur) || !slices.Equal(cur, proposed[:len(cur)]) {
			return Result{Version: s.version, Err: ErrRewriteDenied}
		}
		next, err = engine.Extend(s.draft, proposed[len(cur):], msg.Actor, msg.Caps)
	}
	if err != nil {
		return Result{Version: s.version, Err: err}
	}
	warnings := s.commit(next, len(proposed) > len(cur))
	return Result{Version: s.version, Warnings: warnings}
}

// commit installs next, persists it and pushes it to every subscriber.
func (s *Session) commit(next engine.Draft, grew bool) []string {
	s.draft = next
	s.version++

	var warnings []string
	if err := s.persist(); err != nil {
		s.log.Warn("persist failed, keeping in-memory state", zap.Int("version", s.version), zap.Error(err))
		warnings = append(warnings, "persist: "+err.Error())
	}

	s.broadcast()
	if grew {
		s.notify(next)
	}
	return warnings
}

func (s *Session) persist() error {
	if s.opts.Store == nil {
		return nil
	}
	rec := store.Record{Draft: s.draft, Version: s.version, UpdatedAt: time.Now().UTC()}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.opts.PersistBaseDelay
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(0, s.opts.PersistRetries))), s.ctx)

	return backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.PersistTimeout)
		defer cancel()
		return s.opts.Store.Save(ctx, rec)
	}, b)
}

// notify runs off the actor goroutine; failures are only logged.
func (s *Session) notify(d engine.Draft) {
	if s.opts.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.opts.NotifyTimeout)
		defer cancel()
		if err := s.opts.Notifier.Notify(ctx, d); err != nil {
			s.log.Warn("notify failed", zap.Int("selections", len(d.Selections)), zap.Error(err))
		}
	}()
}

func (s *Session) send(id string, c client) {
	snap := Snapshot{Version: s.version, Draft: s.draft.Redacted(c.viewer, c.admin)}
	select {
	case c.out <- snap:
	default:
		// Client is slow/full - drop them.
		s.log.Info("dropping slow client", zap.String("client_id", id))
		close(c.out)
		delete(s.clients, id)
	}
}

func (s *Session) broadcast() {
	for id, c := range s.clients {
		s.send(id, c)
	}
}

func (s *Session) shutdown() {
	for id, c := range s.clients {
		close(c.out) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}
