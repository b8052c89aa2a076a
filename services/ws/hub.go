package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Conn is the hub's view of a connected client: an enqueue that must not
// block. The gorilla-backed implementation reports an error when the
// client's send buffer is full.
type Conn interface {
	Send(payload []byte) error
}

// Envelope is the wire shape of every server-to-client message. Update
// events carry their payload under a per-category key (content, tradingCall,
// metrics) next to the owning userId rather than a generic data field, so
// dashboard handlers can destructure messages by type alone.
type Envelope struct {
	Type        string      `json:"type"`
	Topic       string      `json:"topic,omitempty"`
	Status      string      `json:"status,omitempty"`
	ClientID    string      `json:"clientId,omitempty"`
	UserID      int64       `json:"userId,omitempty"`
	Content     interface{} `json:"content,omitempty"`
	TradingCall interface{} `json:"tradingCall,omitempty"`
	Metrics     interface{} `json:"metrics,omitempty"`
	Timestamp   int64       `json:"timestamp,omitempty"`
}

// Client-to-server message types.
const (
	msgPing        = "ping"
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
)

// Topics content, trading and metrics events fan out to, in addition to the
// per-user topic.
const (
	TopicContent = "content"
	TopicTrading = "trading"
	TopicMetrics = "metrics"
)

// UserTopic is the per-user topic name events for one dashboard land on.
func UserTopic(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// Hub tracks connected clients and their topic subscriptions and fans
// published events out to them. All maps are guarded by one RWMutex; sends
// happen under the read lock and never block thanks to the Conn contract.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Conn
	topics  map[string]map[string]struct{}

	logger *slog.Logger
	now    func() time.Time
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: map[string]Conn{},
		topics:  map[string]map[string]struct{}{},
		logger:  logger,
		now:     time.Now,
	}
}

// Register adds a client. A reconnect with the same id replaces the old
// connection; its subscriptions carry over.
func (h *Hub) Register(id string, conn Conn) {
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	h.logger.Info("ws client connected", "clientId", id)
}

// Remove drops the client and all its subscriptions.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	for topic, subscribers := range h.topics {
		delete(subscribers, id)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()
	h.logger.Info("ws client disconnected", "clientId", id)
}

func (h *Hub) Subscribe(id, topic string) {
	h.mu.Lock()
	if _, ok := h.clients[id]; ok {
		if h.topics[topic] == nil {
			h.topics[topic] = map[string]struct{}{}
		}
		h.topics[topic][id] = struct{}{}
	}
	h.mu.Unlock()
}

// Unsubscribe reports whether the topic existed, so callers can decide
// whether a confirmation is owed.
func (h *Hub) Unsubscribe(id, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.topics[topic]
	if !ok {
		return false
	}
	delete(subscribers, id)
	if len(subscribers) == 0 {
		delete(h.topics, topic)
	}
	return true
}

// Topics returns the topics the client is subscribed to.
func (h *Hub) Topics(id string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	topics := []string{}
	for topic, subscribers := range h.topics {
		if _, ok := subscribers[id]; ok {
			topics = append(topics, topic)
		}
	}
	return topics
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo delivers one envelope to one client.
func (h *Hub) SendTo(id string, env Envelope) bool {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("ws marshal failed", "error", err)
		return false
	}
	h.mu.RLock()
	conn, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if err := conn.Send(payload); err != nil {
		h.logger.Warn("ws send failed", "clientId", id, "error", err)
		return false
	}
	return true
}

// Broadcast delivers the envelope to every connected client.
func (h *Hub) Broadcast(env Envelope) int {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("ws marshal failed", "error", err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for id, conn := range h.clients {
		if err := conn.Send(payload); err != nil {
			h.logger.Warn("ws send failed", "clientId", id, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// BroadcastToTopic delivers to the topic's subscribers. A topic nobody has
// subscribed to falls back to a full broadcast, so dashboards that never
// sent a subscribe message still get updates.
func (h *Hub) BroadcastToTopic(topic string, env Envelope) int {
	env.Topic = topic

	h.mu.RLock()
	subscribers := h.topics[topic]
	hasSubscribers := len(subscribers) > 0
	h.mu.RUnlock()

	if !hasSubscribers {
		return h.Broadcast(env)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("ws marshal failed", "error", err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for id := range subscribers {
		conn, ok := h.clients[id]
		if !ok {
			continue
		}
		if err := conn.Send(payload); err != nil {
			h.logger.Warn("ws send failed", "clientId", id, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// HandleMessage processes one client-to-server message: ping, subscribe or
// unsubscribe. Malformed or unrecognized messages are logged and dropped;
// the connection stays up and nothing is sent back.
func (h *Hub) HandleMessage(id string, raw []byte) {
	var msg struct {
		Type  string `json:"type"`
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("ws message parse failed", "clientId", id, "error", err)
		return
	}

	switch msg.Type {
	case msgPing:
		h.SendTo(id, Envelope{Type: "pong", Timestamp: h.now().UnixMilli()})
	case msgSubscribe:
		if msg.Topic == "" {
			return
		}
		h.Subscribe(id, msg.Topic)
		h.SendTo(id, Envelope{Type: "subscribed", Topic: msg.Topic, Timestamp: h.now().UnixMilli()})
	case msgUnsubscribe:
		if msg.Topic == "" {
			return
		}
		if h.Unsubscribe(id, msg.Topic) {
			h.SendTo(id, Envelope{Type: "unsubscribed", Topic: msg.Topic, Timestamp: h.now().UnixMilli()})
		}
	default:
		h.logger.Warn("ws unknown message type", "clientId", id, "type", msg.Type)
	}
}

// SendContentUpdate publishes a content event to the user's topic and the
// shared content topic.
func (h *Hub) SendContentUpdate(userID int64, content interface{}) {
	h.publish(userID, TopicContent, Envelope{Type: "content_update", UserID: userID, Content: content})
}

// SendTradingUpdate publishes a trading event.
func (h *Hub) SendTradingUpdate(userID int64, tradingCall interface{}) {
	h.publish(userID, TopicTrading, Envelope{Type: "trading_update", UserID: userID, TradingCall: tradingCall})
}

// SendMetricsUpdate publishes a metrics event.
func (h *Hub) SendMetricsUpdate(userID int64, metrics interface{}) {
	h.publish(userID, TopicMetrics, Envelope{Type: "metrics_update", UserID: userID, Metrics: metrics})
}

func (h *Hub) publish(userID int64, topic string, env Envelope) {
	env.Timestamp = h.now().UnixMilli()
	h.BroadcastToTopic(UserTopic(userID), env)
	h.BroadcastToTopic(topic, env)
}
