package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/models"
)

const (
	// FeedbackChannel is the Redis pub/sub channel shared by all instances
	FeedbackChannel = "feedback:events"

	EventFeedbackCreated = "feedback.created"
	EventFeedbackUpdated = "feedback.updated"

	defaultSubscriberBuffer = 16
	maxSubscriberBackoff    = 30 * time.Second
)

// FeedbackEvent is the payload broadcast over Redis and WebSocket.
type FeedbackEvent struct {
	Type      string           `json:"type"`
	Feedback  *models.Feedback `json:"feedback,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event FeedbackEvent) error
}

// Subscription is one listener on the hub. Its channel is closed when the
// listener is removed, either by Unsubscribe or for falling behind.
type Subscription struct {
	ch chan []byte
}

func (s *Subscription) Events() <-chan []byte {
	return s.ch
}

// Hub fans events out to the dashboards connected to this instance.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(s)
}

// remove must be called with h.mu held.
func (h *Hub) remove(s *Subscription) {
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Broadcast never blocks: a subscriber whose buffer is full is dropped.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- msg:
		default:
			h.remove(s)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.remove(s)
	}
}

// RedisEvents publishes feedback events to Redis and relays the channel
// into the local hub, so every instance sees every mutation.
type RedisEvents struct {
	client *redis.Client
	hub    *Hub
	log    *zap.Logger
	once   sync.Once
}

func NewRedisEvents(client *redis.Client, hub *Hub, log *zap.Logger) *RedisEvents {
	return &RedisEvents{client: client, hub: hub, log: log}
}

func (e *RedisEvents) Publish(ctx context.Context, event FeedbackEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.client.Publish(ctx, FeedbackChannel, data).Err()
}

// Start runs a single shared subscriber per instance until ctx is done.
func (e *RedisEvents) Start(ctx context.Context) {
	e.once.Do(func() {
		go e.run(ctx)
	})
}

func (e *RedisEvents) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pubsub := e.client.Subscribe(ctx, FeedbackChannel)
		e.log.Info("feedback event subscriber started", zap.String("channel", FeedbackChannel))

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				_ = pubsub.Close()
				if ctx.Err() != nil {
					return
				}
				e.log.Warn("feedback event subscriber error", zap.Error(err), zap.Duration("retry_in", backoff))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > maxSubscriberBackoff {
					backoff = maxSubscriberBackoff
				}
				break
			}

			backoff = time.Second
			e.hub.Broadcast([]byte(msg.Payload))
		}
	}
}
