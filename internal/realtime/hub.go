package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are the heartbeat periods in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Feed event names emitted by the hub itself.
const (
	EventViewers = "viewers"
	EventPong    = "pong"
)

// Hub maintains event_id -> set of organiser connections and broadcasts messages.
// Local broadcast is mirrored to Redis pub/sub so every instance reaches its own clients.
type Hub struct {
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancels the Redis subscription per event
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes feed events for other instances.
type RedisPublisher interface {
	PublishEventMessage(eventID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to an event channel and invokes handler for incoming messages.
type RedisSubscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a hub. Both Redis sides may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its event room and subscribes to Redis for the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.EventID] == nil {
		h.rooms[c.EventID] = make(map[string]*Client)
		if h.redisSub != nil {
			eventID := c.EventID
			cancel, err := h.redisSub.SubscribeEvent(eventID, func(event string, payload []byte) {
				h.BroadcastToEvent(eventID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("event_id", eventID.String()))
			} else {
				h.subs[eventID] = cancel
			}
		}
	}
	h.rooms[c.EventID][c.ID] = c
	count := len(h.rooms[c.EventID])
	h.mu.Unlock()

	h.BroadcastToEvent(c.EventID, EventViewers, map[string]int{"count": count})
	h.logger.Debug("client joined event feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Unregister removes a client. The Redis subscription is cancelled when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	count := 0
	if m, ok := h.rooms[c.EventID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()

	if count > 0 {
		h.BroadcastToEvent(c.EventID, EventViewers, map[string]int{"count": count})
	}
	h.logger.Debug("client left event feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// BroadcastToEvent sends a message to the local clients of an event. Slow clients drop messages.
func (h *Hub) BroadcastToEvent(eventID uuid.UUID, event string, payload interface{}) {
	msg, ok := h.message(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// BroadcastToEventAndPublish delivers to every instance. When this instance is subscribed to the event channel the
// local delivery comes back through Redis, so the message is only published.
func (h *Hub) BroadcastToEventAndPublish(eventID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("feed payload not encodable", zap.Error(err), zap.String("event", event))
		return
	}
	h.mu.RLock()
	_, subscribed := h.subs[eventID]
	h.mu.RUnlock()

	if h.redis != nil {
		err := h.redis.PublishEventMessage(eventID, event, data)
		if err == nil && subscribed {
			return
		}
		if err != nil {
			h.logger.Warn("redis publish failed", zap.Error(err), zap.String("event_id", eventID.String()))
		}
	}
	h.BroadcastToEvent(eventID, event, json.RawMessage(data))
}

// ViewerCount returns the number of local clients watching an event.
func (h *Hub) ViewerCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// sendTo delivers a message to one client.
func (h *Hub) sendTo(c *Client, event string, payload interface{}) {
	msg, ok := h.message(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.EventID][c.ID]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) message(event string, payload interface{}) (WSMessage, bool) {
	var data []byte
	switch v := payload.(type) {
	case nil:
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("feed payload not encodable", zap.Error(err), zap.String("event", event))
			return WSMessage{}, false
		}
	}
	return WSMessage{Event: event, Data: data}, true
}
