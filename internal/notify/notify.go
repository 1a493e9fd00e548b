// Package notify delivers turn notifications after a draft's log grows.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
)

type Notifier interface {
	Notify(ctx context.Context, d engine.Draft) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, d engine.Draft) error

func (f Func) Notify(ctx context.Context, d engine.Draft) error { return f(ctx, d) }

// Message is the human readable line sent to chat channels.
func Message(d engine.Draft) string {
	phase := d.Phase()
	switch phase.Kind {
	case engine.PhaseFinished:
		return fmt.Sprintf("Draft %s is finished.", d.ID)
	case engine.PhaseSimultaneous:
		return fmt.Sprintf("Draft %s: everyone picks a %s.", d.ID, phase.Simultaneous)
	}
	name := fmt.Sprintf("player %d", phase.ActivePlayer)
	for _, p := range d.Players {
		if p.ID == phase.ActivePlayer && p.Name != "" {
			name = p.Name
		}
	}
	if phase.Ban {
		return fmt.Sprintf("Draft %s: %s is up to ban a faction.", d.ID, name)
	}
	return fmt.Sprintf("Draft %s: %s is up.", d.ID, name)
}

// Log writes notifications to the structured log.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (n *Log) Notify(_ context.Context, d engine.Draft) error {
	n.log.Info(Message(d), zap.String("draft_id", d.ID), zap.Int("selections", len(d.Selections)))
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, d engine.Draft) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Notify(ctx, d))
	}
	return err
}
