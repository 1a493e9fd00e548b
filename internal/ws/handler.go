// Package ws serves the draft sync channel over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
	"github.com/DoyleJ11/ti4-draft-backend/internal/hub"
	"github.com/DoyleJ11/ti4-draft-backend/internal/session"
	"github.com/DoyleJ11/ti4-draft-backend/pkg/types"
)

const (
	writeTimeout   = 3 * time.Second
	requestTimeout = 10 * time.Second
)

type Options struct {
	Gate           session.AdminGate
	Log            *zap.Logger
	OriginPatterns []string
	ReadTimeout    time.Duration
	OutboxSize     int
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 8
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := &connection{
			id:   uuid.NewString(),
			hub:  h,
			opts: opts,
			conn: conn,
			send: make(chan types.ServerMessage, 16),
			ctx:  ctx,
		}
		c.log = opts.Log.With(zap.String("client_id", c.id))
		defer c.leave()

		// Writer goroutine
		go c.writeLoop()

		c.readLoop()
	}
}

type connection struct {
	id   string
	hub  *hub.Hub
	opts Options
	conn *websocket.Conn
	send chan types.ServerMessage
	log  *zap.Logger
	ctx  context.Context

	// current subscription
	sess     *session.Session
	viewer   engine.PlayerID
	stopFeed context.CancelFunc
}

func (c *connection) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.send:
			payload, err := json.Marshal(msg)
			if err != nil {
				c.log.Error("encode server message", zap.Error(err))
				continue
			}
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err = c.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *connection) readLoop() {
	for {
		ctx, cancel := c.ctx, context.CancelFunc(func() {})
		if c.opts.ReadTimeout > 0 {
			ctx, cancel = context.WithTimeout(c.ctx, c.opts.ReadTimeout)
		}
		_, data, err := c.conn.Read(ctx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.push(types.ServerMessage{Type: types.MsgError, Code: "BAD_JSON", Error: "bad json"})
			continue
		}
		c.handle(cm)
	}
}

func (c *connection) push(msg types.ServerMessage) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	}
}

func (c *connection) fail(requestID string, err error) {
	c.push(types.ServerMessage{Type: types.MsgResult, RequestID: requestID, Code: session.Code(err), Error: err.Error()})
}

func (c *connection) handle(cm types.ClientMessage) {
	switch cm.Type {
	case types.MsgJoinDraft:
		c.join(cm)
	case types.MsgLeaveDraft:
		c.leave()
		c.push(types.ServerMessage{Type: types.MsgResult, RequestID: cm.RequestID})
	case types.MsgIntent:
		c.intent(cm)
	case types.MsgSyncDraft:
		c.propose(cm)
	default:
		c.push(types.ServerMessage{Type: types.MsgError, RequestID: cm.RequestID, Code: "UNKNOWN_TYPE", Error: "unknown type"})
	}
}

func (c *connection) join(cm types.ClientMessage) {
	admin, err := c.opts.Gate.Check(cm.AdminSecret)
	if err != nil {
		c.fail(cm.RequestID, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	s, err := c.hub.Open(ctx, cm.DraftID)
	if err != nil {
		c.fail(cm.RequestID, err)
		return
	}
	c.leave()

	var viewer engine.PlayerID
	if cm.PlayerID != nil {
		viewer = *cm.PlayerID
	}
	out := make(chan session.Snapshot, c.opts.OutboxSize)
	if err := s.Subscribe(ctx, c.id, viewer, admin, out); err != nil {
		c.fail(cm.RequestID, err)
		return
	}

	feedCtx, stop := context.WithCancel(c.ctx)
	c.sess, c.viewer, c.stopFeed = s, viewer, stop
	c.push(types.ServerMessage{Type: types.MsgResult, RequestID: cm.RequestID, DraftID: s.ID()})
	go c.feed(feedCtx, s.ID(), out)

	c.log.Info("joined draft", zap.String("draft_id", s.ID()), zap.Int("viewer", int(viewer)), zap.Bool("admin", admin))
}

// feed forwards session snapshots until the session closes out or the
// subscription is cancelled. A closed outbox is not resumed; the client has
// to join again.
func (c *connection) feed(ctx context.Context, draftID string, out <-chan session.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-out:
			if !ok {
				c.push(types.ServerMessage{Type: types.MsgError, DraftID: draftID, Code: "UNSUBSCRIBED", Error: "subscription closed"})
				return
			}
			c.push(types.Snapshot(snap.Version, snap.Draft))
		}
	}
}

func (c *connection) leave() {
	if c.sess == nil {
		return
	}
	c.stopFeed()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), time.Second)
	defer cancel()
	if err := c.sess.Unsubscribe(ctx, c.id); err != nil && !errors.Is(err, session.ErrClosed) {
		c.log.Debug("unsubscribe failed", zap.Error(err))
	}
	c.sess, c.stopFeed = nil, nil
}

func (c *connection) intent(cm types.ClientMessage) {
	if c.sess == nil {
		c.fail(cm.RequestID, session.ErrNotJoined)
		return
	}
	if cm.Intent == nil {
		c.fail(cm.RequestID, engine.ErrUnsupportedCommand)
		return
	}
	admin, err := c.opts.Gate.Check(cm.AdminSecret)
	if err != nil {
		c.fail(cm.RequestID, err)
		return
	}
	actor := c.viewer
	if cm.PlayerID != nil {
		actor = *cm.PlayerID
	}
	cmd, err := cm.Intent.Command(actor, cm.ExpectedSelections, engine.Caps{Admin: admin, PickForAnyone: cm.PickForAnyone})
	if err != nil {
		c.fail(cm.RequestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()
	res, err := c.sess.Do(ctx, cmd, cm.Intent.DryRun)
	if err != nil {
		c.fail(cm.RequestID, err)
		return
	}
	c.reply(cm.RequestID, res)
}

func (c *connection) propose(cm types.ClientMessage) {
	if c.sess == nil {
		c.fail(cm.RequestID, session.ErrNotJoined)
		return
	}
	if cm.Draft == nil {
		c.fail(cm.RequestID, engine.ErrUnsupportedCommand)
		return
	}
	admin, err := c.opts.Gate.Check(cm.AdminSecret)
	if err != nil {
		c.fail(cm.RequestID, err)
		return
	}

	actor := c.viewer
	if cm.PlayerID != nil {
		actor = *cm.PlayerID
	}

	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()
	res, err := c.sess.Propose(ctx, cm.Version, *cm.Draft, actor, engine.Caps{Admin: admin, PickForAnyone: cm.PickForAnyone})
	if err != nil {
		c.fail(cm.RequestID, err)
		return
	}
	c.reply(cm.RequestID, res)
}

func (c *connection) reply(requestID string, res session.Result) {
	msg := types.ServerMessage{Type: types.MsgResult, RequestID: requestID, Version: res.Version, Warnings: res.Warnings}
	if res.Err != nil {
		msg.Code = session.Code(res.Err)
		msg.Error = res.Err.Error()
	}
	c.push(msg)
}
