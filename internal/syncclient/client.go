// Package syncclient is a Go client for the draft sync channel. It keeps a
// local copy of one draft that is replaced wholesale by every server push.
package syncclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
	"github.com/DoyleJ11/ti4-draft-backend/pkg/types"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	updatesBufferSize = 16
)

var (
	ErrDisconnected = errors.New("sync channel disconnected")
	ErrNotJoined    = errors.New("no draft joined")
)

// RemoteError is a rejection reported by the server.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Update is one accepted server state.
type Update struct {
	Version int
	Draft   engine.Draft
	Phase   engine.Phase
}

type Options struct {
	Dialer      *websocket.Dialer
	Header      http.Header
	AdminSecret string
	Log         *zap.Logger
}

type Client struct {
	url  string
	opts Options
	log  *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan types.ServerMessage
	draftID string
	player  *engine.PlayerID
	version int
	draft   engine.Draft
	loaded  bool
	updates chan Update
}

// Dial connects to url (ws:// or wss://). It does not join a draft.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	c := &Client{
		url:     url,
		opts:    opts,
		log:     opts.Log,
		pending: make(map[string]chan types.ServerMessage),
		updates: make(chan Update, updatesBufferSize),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.url, c.opts.Header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readPump(conn)
	return nil
}

// Updates delivers every state the server pushes. Updates are dropped when
// the channel is full; Snapshot always has the latest.
func (c *Client) Updates() <-chan Update { return c.updates }

// Snapshot returns the local copy of the joined draft.
func (c *Client) Snapshot() (int, engine.Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, c.draft.Clone(), c.loaded
}

// Hydrate replaces the local copy. Older versions are ignored.
func (c *Client) Hydrate(draftID string, version int, d engine.Draft) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if draftID != c.draftID || (c.loaded && version < c.version) {
		return false
	}
	c.version, c.draft, c.loaded = version, d, true
	return true
}

func (c *Client) readPump(conn *websocket.Conn) {
	defer c.disconnected(conn)
	for {
		var msg types.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch {
		case msg.Type == types.MsgSyncDraft && msg.Draft != nil:
			if !c.Hydrate(msg.DraftID, msg.Version, *msg.Draft) {
				continue
			}
			u := Update{Version: msg.Version, Draft: *msg.Draft}
			if msg.Phase != nil {
				u.Phase = *msg.Phase
			}
			select {
			case c.updates <- u:
			default:
				c.log.Warn("updates buffer full, update dropped", zap.Int("version", msg.Version))
			}
		case msg.RequestID != "":
			c.mu.Lock()
			ch := c.pending[msg.RequestID]
			delete(c.pending, msg.RequestID)
			c.mu.Unlock()
			if ch != nil {
				ch <- msg
			}
		default:
			c.log.Info("server error", zap.String("code", msg.Code), zap.String("error", msg.Error))
		}
	}
}

// disconnected fails every request waiting on conn. The client stays
// disconnected until Reconnect.
func (c *Client) disconnected(conn *websocket.Conn) {
	conn.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) request(ctx context.Context, msg types.ClientMessage) (types.ServerMessage, error) {
	msg.RequestID = uuid.NewString()
	if msg.AdminSecret == "" {
		msg.AdminSecret = c.opts.AdminSecret
	}
	reply := make(chan types.ServerMessage, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return types.ServerMessage{}, ErrDisconnected
	}
	c.pending[msg.RequestID] = reply
	c.mu.Unlock()

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(msg.RequestID)
		return types.ServerMessage{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	select {
	case res, ok := <-reply:
		if !ok {
			return types.ServerMessage{}, ErrDisconnected
		}
		if res.Code != "" {
			return res, &RemoteError{Code: res.Code, Message: res.Error}
		}
		return res, nil
	case <-ctx.Done():
		c.forget(msg.RequestID)
		return types.ServerMessage{}, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Join subscribes to draftID. player is the viewer for redaction; nil joins
// as a spectator.
func (c *Client) Join(ctx context.Context, draftID string, player *engine.PlayerID) error {
	c.mu.Lock()
	if c.draftID != draftID {
		c.version, c.draft, c.loaded = 0, engine.Draft{}, false
	}
	c.draftID, c.player = draftID, player
	c.mu.Unlock()

	_, err := c.request(ctx, types.ClientMessage{Type: types.MsgJoinDraft, DraftID: draftID, PlayerID: player})
	return err
}

func (c *Client) Leave(ctx context.Context) error {
	_, err := c.request(ctx, types.ClientMessage{Type: types.MsgLeaveDraft})
	c.mu.Lock()
	c.draftID, c.player, c.loaded = "", nil, false
	c.mu.Unlock()
	return err
}

// SendIntent submits an intent for the joined draft. The local log length is
// sent along so the server can reject intents based on stale state.
func (c *Client) SendIntent(ctx context.Context, in types.IntentMessage, pickForAnyone bool) (types.ServerMessage, error) {
	c.mu.Lock()
	joined, loaded := c.draftID != "", c.loaded
	expected := len(c.draft.Selections)
	c.mu.Unlock()
	if !joined {
		return types.ServerMessage{}, ErrNotJoined
	}

	msg := types.ClientMessage{Type: types.MsgIntent, Intent: &in, PickForAnyone: pickForAnyone}
	if loaded {
		msg.ExpectedSelections = &expected
	}
	return c.request(ctx, msg)
}

// Propose sends a full draft built from the local copy, based on the local
// version.
func (c *Client) Propose(ctx context.Context, d engine.Draft) (types.ServerMessage, error) {
	c.mu.Lock()
	joined, base := c.draftID != "", c.version
	c.mu.Unlock()
	if !joined {
		return types.ServerMessage{}, ErrNotJoined
	}
	return c.request(ctx, types.ClientMessage{Type: types.MsgSyncDraft, Version: base, Draft: &d})
}

// Reconnect drops the current connection, dials again and rejoins the last
// joined draft.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	old := c.conn
	draftID, player := c.draftID, c.player
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	// wait for the old read pump to fail its requests
	for {
		c.mu.Lock()
		gone := c.conn != old || old == nil
		c.mu.Unlock()
		if gone {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := c.connect(ctx); err != nil {
		return err
	}
	if draftID == "" {
		return nil
	}
	return c.Join(ctx, draftID, player)
}

// Connected reports whether the socket is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return conn.Close()
}
