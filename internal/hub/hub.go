// Package hub tracks the live draft sessions of this process and loads
// drafts from the store on first use.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
	"github.com/DoyleJ11/ti4-draft-backend/internal/session"
	"github.com/DoyleJ11/ti4-draft-backend/internal/store"
)

var (
	ErrExists = errors.New("draft already exists")
	ErrClosed = errors.New("hub closed")
)

type HubMsg interface{ isHubMsg() }

// Register starts a session for Record unless one is already live.
type Register struct {
	Record store.Record
	Fresh  bool // fail with ErrExists instead of returning the live session
	Reply  chan registered
}

type registered struct {
	session *session.Session
	err     error
}

type Lookup struct {
	ID    string
	Reply chan *session.Session
}

// RemoveSession forgets id if its live session has stopped.
type RemoveSession struct {
	ID string
}

type Count struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Register) isHubMsg()      {}
func (Lookup) isHubMsg()        {}
func (RemoveSession) isHubMsg() {}
func (Count) isHubMsg()         {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	store    store.Store
	opts     session.Options
	loads    singleflight.Group
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewHub starts the hub. opts is the template every session is started with.
func NewHub(parent context.Context, st store.Store, opts session.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	opts.Store = st
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		store:    st,
		opts:     opts,
		log:      opts.Log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				if s := h.live(msg.Record.Draft.ID); s != nil {
					if msg.Fresh {
						msg.Reply <- registered{err: ErrExists}
					} else {
						msg.Reply <- registered{session: s}
					}
					break
				}
				s := h.start(msg.Record)
				h.sessions[s.ID()] = s
				msg.Reply <- registered{session: s}

			case Lookup:
				msg.Reply <- h.live(msg.ID) // May be nil

			case RemoveSession:
				h.live(msg.ID)

			case Count:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// live returns the running session for id, dropping it if it has stopped.
func (h *Hub) live(id string) *session.Session {
	s := h.sessions[id]
	if s == nil {
		return nil
	}
	select {
	case <-s.Done():
		delete(h.sessions, id)
		return nil
	default:
		return s
	}
}

func (h *Hub) start(rec store.Record) *session.Session {
	opts := h.opts
	opts.OnClose = func(id string) {
		select {
		case h.inbox <- RemoveSession{ID: id}:
		case <-h.ctx.Done():
		}
	}
	s := session.New(h.ctx, rec, opts)
	h.log.Info("session started", zap.String("draft_id", rec.Draft.ID), zap.Int("version", rec.Version))
	return s
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		select {
		case s.Inbox() <- session.Shutdown{}:
		default:
		}
	}
	clear(h.sessions)
	h.cancel()
}

func (h *Hub) ask(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) register(ctx context.Context, rec store.Record, fresh bool) (*session.Session, error) {
	reply := make(chan registered, 1)
	if err := h.ask(ctx, Register{Record: rec, Fresh: fresh, Reply: reply}); err != nil {
		return nil, err
	}
	r, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return r.session, r.err
}

// Create validates d, persists it at version 0 and starts its session.
func (h *Hub) Create(ctx context.Context, d engine.Draft) (*session.Session, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if _, err := h.store.Load(ctx, d.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, d.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	rec := store.Record{Draft: d, Version: 0, UpdatedAt: time.Now().UTC()}
	if err := h.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	return h.register(ctx, rec, true)
}

// Get returns the live session for id, or nil.
func (h *Hub) Get(ctx context.Context, id string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.ask(ctx, Lookup{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

// Open returns the live session for id, loading the draft from the store if
// no session is running. Concurrent opens of the same draft share one load.
func (h *Hub) Open(ctx context.Context, id string) (*session.Session, error) {
	if s, err := h.Get(ctx, id); err != nil || s != nil {
		return s, err
	}

	v, err, _ := h.loads.Do(id, func() (any, error) {
		rec, err := h.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		return h.register(ctx, rec, false)
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Session), nil
}

func (h *Hub) Len(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.ask(ctx, Count{Reply: reply}); err != nil {
		return 0, err
	}
	return await(ctx, h, reply)
}

// Shutdown stops every session. It does not close the store.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }
