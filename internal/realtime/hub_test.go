package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, v.(Frame))
	return nil
}

func TestChannelRoundTrip(t *testing.T) {
	id, ok := ParseChannel(Channel(42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = ParseChannel("group_1")
	assert.False(t, ok)
	_, ok = ParseChannel("user_x")
	assert.False(t, ok)
}

func TestHubDeliversToUserConnectionsOnly(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a1, a2, b := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register(1, a1)
	unregister := hub.Register(1, a2)
	hub.Register(2, b)

	n := hub.Deliver(1, Frame{Event: "new_request", Data: map[string]any{"request_id": 5}})

	assert.Equal(t, 2, n)
	assert.Len(t, a1.frames, 1)
	assert.Len(t, a2.frames, 1)
	assert.Empty(t, b.frames)

	unregister()
	assert.Equal(t, 1, hub.Connected(1))
}

func TestHubSkipsBrokenConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.Register(1, &fakeConn{err: errors.New("closed")})
	ok := &fakeConn{}
	hub.Register(1, ok)

	assert.Equal(t, 1, hub.Deliver(1, Frame{Event: "x"}))
	assert.Len(t, ok.frames, 1)
}

func TestLocalBroker(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &fakeConn{}
	hub.Register(7, conn)

	require.NoError(t, NewLocalBroker(hub).Publish(context.Background(), 7, "request_rejected", map[string]any{"request_id": 1}))

	require.Len(t, conn.frames, 1)
	assert.Equal(t, "request_rejected", conn.frames[0].Event)
}

func TestRedisDispatchForwardsRawData(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &fakeConn{}
	hub.Register(3, conn)
	broker := NewRedisBroker(nil, hub, zap.NewNop())

	broker.dispatch(&redis.Message{Channel: "user_3", Payload: `{"event":"proposal_confirmed","data":{"meeting_id":9}}`})
	broker.dispatch(&redis.Message{Channel: "user_3", Payload: `not json`})
	broker.dispatch(&redis.Message{Channel: "user_4", Payload: `{"event":"x","data":{}}`})

	require.Len(t, conn.frames, 1)
	assert.Equal(t, "proposal_confirmed", conn.frames[0].Event)
	raw, err := json.Marshal(conn.frames[0].Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"meeting_id":9}`, string(raw))
}
