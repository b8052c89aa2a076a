package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("buffer full")
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	envs := make([]Envelope, 0, len(c.payloads))
	for _, payload := range c.payloads {
		var env Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		envs = append(envs, env)
	}
	return envs
}

func newTestHub() *Hub {
	hub := NewHub(nil)
	hub.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return hub
}

func TestBroadcastToTopicReachesSubscribersOnly(t *testing.T) {
	hub := newTestHub()
	subscriber, bystander := &fakeConn{}, &fakeConn{}
	hub.Register("a", subscriber)
	hub.Register("b", bystander)
	hub.Subscribe("a", "trading")

	sent := hub.BroadcastToTopic("trading", Envelope{Type: "trading_update"})
	assert.Equal(t, 1, sent)

	envs := subscriber.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, "trading_update", envs[0].Type)
	assert.Equal(t, "trading", envs[0].Topic)
	assert.Empty(t, bystander.envelopes(t))
}

func TestBroadcastToTopicFallsBackToAllClients(t *testing.T) {
	hub := newTestHub()
	a, b := &fakeConn{}, &fakeConn{}
	hub.Register("a", a)
	hub.Register("b", b)

	sent := hub.BroadcastToTopic("metrics", Envelope{Type: "metrics_update"})
	assert.Equal(t, 2, sent)
	assert.Len(t, a.envelopes(t), 1)
	assert.Len(t, b.envelopes(t), 1)
}

func TestRemoveDropsSubscriptions(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Register("a", conn)
	hub.Subscribe("a", "content")
	hub.Remove("a")

	assert.Equal(t, 0, hub.ClientCount())
	assert.Empty(t, hub.Topics("a"))

	sent := hub.BroadcastToTopic("content", Envelope{Type: "content_update"})
	assert.Equal(t, 0, sent)
	assert.Empty(t, conn.envelopes(t))
}

func TestHandleMessagePing(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Register("a", conn)

	hub.HandleMessage("a", []byte(`{"type":"ping"}`))

	envs := conn.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, "pong", envs[0].Type)
	assert.Equal(t, int64(1700000000000), envs[0].Timestamp)
}

func TestHandleMessageSubscribeConfirms(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Register("a", conn)

	hub.HandleMessage("a", []byte(`{"type":"subscribe","topic":"trading"}`))
	assert.Equal(t, []string{"trading"}, hub.Topics("a"))

	hub.HandleMessage("a", []byte(`{"type":"unsubscribe","topic":"trading"}`))
	assert.Empty(t, hub.Topics("a"))

	envs := conn.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, "subscribed", envs[0].Type)
	assert.Equal(t, "trading", envs[0].Topic)
	assert.Equal(t, int64(1700000000000), envs[0].Timestamp)
	assert.Equal(t, "unsubscribed", envs[1].Type)
	assert.Equal(t, int64(1700000000000), envs[1].Timestamp)
}

func TestHandleMessageUnsubscribeUnknownTopicIsSilent(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Register("a", conn)

	hub.HandleMessage("a", []byte(`{"type":"unsubscribe","topic":"never-subscribed"}`))

	assert.Empty(t, conn.envelopes(t))
}

func TestHandleMessageIgnoresGarbage(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Register("a", conn)

	hub.HandleMessage("a", []byte(`not json`))
	hub.HandleMessage("a", []byte(`{"type":"subscribe"}`))
	hub.HandleMessage("a", []byte(`{"type":"mystery"}`))

	assert.Empty(t, conn.envelopes(t))
}

func TestPublishHitsUserAndCategoryTopics(t *testing.T) {
	hub := newTestHub()
	mine, category := &fakeConn{}, &fakeConn{}
	hub.Register("me", mine)
	hub.Register("watcher", category)
	hub.Subscribe("me", UserTopic(7))
	hub.Subscribe("watcher", TopicTrading)

	hub.SendTradingUpdate(7, map[string]string{"asset": "BTC"})

	myEnvs := mine.envelopes(t)
	require.Len(t, myEnvs, 1)
	assert.Equal(t, "trading_update", myEnvs[0].Type)
	assert.Equal(t, "user-7", myEnvs[0].Topic)
	assert.Equal(t, int64(7), myEnvs[0].UserID)
	assert.Equal(t, map[string]interface{}{"asset": "BTC"}, myEnvs[0].TradingCall)
	assert.Nil(t, myEnvs[0].Content)
	assert.Equal(t, int64(1700000000000), myEnvs[0].Timestamp)

	watcherEnvs := category.envelopes(t)
	require.Len(t, watcherEnvs, 1)
	assert.Equal(t, TopicTrading, watcherEnvs[0].Topic)
}

func TestContentUpdateWireShape(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Register("me", conn)
	hub.Subscribe("me", UserTopic(3))

	hub.SendContentUpdate(3, map[string]string{"id": "1"})

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.payloads, 1)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.payloads[0], &raw))
	assert.Equal(t, "content_update", raw["type"])
	assert.Equal(t, float64(3), raw["userId"])
	assert.Equal(t, map[string]interface{}{"id": "1"}, raw["content"])
	assert.Contains(t, raw, "timestamp")
	assert.NotContains(t, raw, "data")
	assert.NotContains(t, raw, "tradingCall")
}

func TestConnectionGreetingWireShape(t *testing.T) {
	payload, err := json.Marshal(Envelope{
		Type:      "connection",
		Status:    "connected",
		ClientID:  "abc",
		Timestamp: 1700000000000,
	})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "connection", raw["type"])
	assert.Equal(t, "connected", raw["status"])
	assert.Equal(t, "abc", raw["clientId"])
	assert.NotContains(t, raw, "topic")
	assert.NotContains(t, raw, "userId")
}

func TestSendFailureDoesNotStopFanout(t *testing.T) {
	hub := newTestHub()
	broken, healthy := &fakeConn{fail: true}, &fakeConn{}
	hub.Register("broken", broken)
	hub.Register("healthy", healthy)

	sent := hub.Broadcast(Envelope{Type: "content_update"})
	assert.Equal(t, 1, sent)
	assert.Len(t, healthy.envelopes(t), 1)
}

func TestReconnectReplacesConnectionKeepsSubscriptions(t *testing.T) {
	hub := newTestHub()
	old, fresh := &fakeConn{}, &fakeConn{}
	hub.Register("a", old)
	hub.Subscribe("a", "content")
	hub.Register("a", fresh)

	hub.BroadcastToTopic("content", Envelope{Type: "content_update"})
	assert.Empty(t, old.envelopes(t))
	assert.Len(t, fresh.envelopes(t), 1)
	assert.Equal(t, 1, hub.ClientCount())
}
