package session

import (
	"context"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
)

func (s *Session) deliver(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, s *Session, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-s.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do sends one intent and waits for the session to answer.
func (s *Session) Do(ctx context.Context, cmd engine.Command, dryRun bool) (Result, error) {
	reply := make(chan Result, 1)
	if err := s.deliver(ctx, FromClient{Cmd: cmd, DryRun: dryRun, Reply: reply}); err != nil {
		return Result{}, err
	}
	return await(ctx, s, reply)
}

func (s *Session) Propose(ctx context.Context, baseVersion int, d engine.Draft, actor engine.PlayerID, caps engine.Caps) (Result, error) {
	reply := make(chan Result, 1)
	if err := s.deliver(ctx, Propose{BaseVersion: baseVersion, Draft: d, Actor: actor, Caps: caps, Reply: reply}); err != nil {
		return Result{}, err
	}
	return await(ctx, s, reply)
}

func (s *Session) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.deliver(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

// Subscribe registers out for redacted snapshots. The session closes out
// when it drops the client or shuts down.
func (s *Session) Subscribe(ctx context.Context, clientID string, viewer engine.PlayerID, admin bool, out chan Snapshot) error {
	return s.deliver(ctx, Join{ClientID: clientID, Viewer: viewer, Admin: admin, Outbox: out})
}

func (s *Session) Unsubscribe(ctx context.Context, clientID string) error {
	return s.deliver(ctx, Leave{ClientID: clientID})
}
