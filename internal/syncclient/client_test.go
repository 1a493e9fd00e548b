package syncclient

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
	"github.com/DoyleJ11/ti4-draft-backend/internal/hub"
	"github.com/DoyleJ11/ti4-draft-backend/internal/session"
	"github.com/DoyleJ11/ti4-draft-backend/internal/store"
	"github.com/DoyleJ11/ti4-draft-backend/internal/ws"
	"github.com/DoyleJ11/ti4-draft-backend/pkg/types"
)

func serve(t *testing.T) (string, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, store.NewMemoryStore(), session.Options{})
	d, err := engine.NewDraft("d-1", engine.Settings{}, []engine.Player{{ID: 1}, {ID: 2}})
	require.NoError(t, err)
	d.Slices = make([]engine.Slice, 2)
	d.AvailableFactions = []string{"sol", "hacan"}
	_, err = h.Create(ctx, d)
	require.NoError(t, err)

	srv := httptest.NewServer(ws.Handler(h, ws.Options{Gate: session.NewAdminGate("s3cret")}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), ctx
}

func dialJoin(t *testing.T, ctx context.Context, url string, player engine.PlayerID, opts Options) *Client {
	t.Helper()
	c, err := Dial(ctx, url, opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Join(ctx, "d-1", &player))
	waitVersion(t, c, 0)
	return c
}

// waitVersion drains updates until the client holds version v.
func waitVersion(t *testing.T, c *Client, v int) Update {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case u := <-c.Updates():
			if u.Version == v {
				return u
			}
		case <-timeout:
			got, _, _ := c.Snapshot()
			t.Fatalf("timed out waiting for version %d, have %d", v, got)
			return Update{}
		}
	}
}

func pick(t *testing.T, sel engine.Selection) types.IntentMessage {
	t.Helper()
	in, err := types.PickIntent(sel)
	require.NoError(t, err)
	return in
}

func TestJoinHydratesLocalCopy(t *testing.T) {
	url, ctx := serve(t)
	c := dialJoin(t, ctx, url, 1, Options{})

	version, d, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0, version)
	assert.Equal(t, "d-1", d.ID)
	assert.Empty(t, d.Selections)
}

func TestIntentReachesEveryClient(t *testing.T) {
	url, ctx := serve(t)
	a := dialJoin(t, ctx, url, 1, Options{})
	b := dialJoin(t, ctx, url, 2, Options{})

	res, err := a.SendIntent(ctx, pick(t, engine.SelectSlice{PlayerID: 1, SliceIdx: 0}), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)

	u := waitVersion(t, b, 1)
	require.Len(t, u.Draft.Selections, 1)
	assert.Equal(t, engine.PlayerID(2), u.Phase.ActivePlayer)

	_, err = b.SendIntent(ctx, pick(t, engine.SelectSlice{PlayerID: 2, SliceIdx: 0}), false)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "VALUE_CLAIMED", remote.Code)
}

func TestProposeFromLocalCopy(t *testing.T) {
	url, ctx := serve(t)
	a := dialJoin(t, ctx, url, 1, Options{})
	b := dialJoin(t, ctx, url, 2, Options{})

	_, local, _ := a.Snapshot()
	local.Selections = append(local.Selections, engine.SelectSlice{PlayerID: 1, SliceIdx: 1})
	res, err := a.Propose(ctx, local)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	waitVersion(t, b, 1)
	waitVersion(t, a, 1)

	// b proposes against version 0 after the server moved on
	stale := local.Clone()
	stale.Selections = engine.Log{engine.SelectSlice{PlayerID: 1, SliceIdx: 0}}
	b.mu.Lock()
	b.version = 0
	b.mu.Unlock()
	_, err = b.Propose(ctx, stale)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "VERSION_CONFLICT", remote.Code)
}

func TestAdminSecretIsSent(t *testing.T) {
	url, ctx := serve(t)
	bad := dialJoin(t, ctx, url, 1, Options{})
	bad.opts.AdminSecret = "guess"
	_, err := bad.SendIntent(ctx, types.IntentMessage{Type: types.IntentUndoLastPick}, false)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "ADMIN_DENIED", remote.Code)
}

func TestNoResumeUntilReconnect(t *testing.T) {
	url, ctx := serve(t)
	c := dialJoin(t, ctx, url, 1, Options{})

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	conn.Close()

	assert.Eventually(t, func() bool { return !c.Connected() }, time.Second, 5*time.Millisecond)
	_, err := c.SendIntent(ctx, pick(t, engine.SelectSlice{PlayerID: 1, SliceIdx: 0}), false)
	require.ErrorIs(t, err, ErrDisconnected)

	require.NoError(t, c.Reconnect(ctx))
	res, err := c.SendIntent(ctx, pick(t, engine.SelectSlice{PlayerID: 1, SliceIdx: 0}), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	waitVersion(t, c, 1)
}

func TestSendIntentRequiresJoin(t *testing.T) {
	url, ctx := serve(t)
	c, err := Dial(ctx, url, Options{})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.SendIntent(ctx, types.IntentMessage{Type: types.IntentUndoLastPick}, false)
	assert.ErrorIs(t, err, ErrNotJoined)
}
