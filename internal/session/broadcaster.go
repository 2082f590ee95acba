package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/tarea-editor/pkg/http/ws"
)

// event is the Redis Pub/Sub envelope shared by every editor instance.
type event struct {
	Topic   string      `json:"topic"`
	Close   bool        `json:"close,omitempty"`
	Message *ws.Message `json:"message,omitempty"`
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher sends session events through Redis so that subscribers connected
// to any instance receive them. Pair it with a Broadcaster on every instance.
type RedisPublisher struct {
	client  redisPublisher
	channel string
}

func NewRedisPublisher(client redisPublisher, channel string) *RedisPublisher {
	if channel == "" {
		channel = "editor:events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(topic string, msg ws.Message) error {
	return p.send(event{Topic: topic, Message: &msg})
}

func (p *RedisPublisher) CloseTopic(topic string) {
	_ = p.send(event{Topic: topic, Close: true})
}

func (p *RedisPublisher) send(evt event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.Publish(context.Background(), p.channel, payload).Err()
}

// Broadcaster listens on the events channel and hands every event to the local hub.
type Broadcaster struct {
	redis   *redis.Client
	local   Publisher
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(client *redis.Client, local Publisher, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "editor:events"
	}
	return &Broadcaster{
		redis:   client,
		local:   local,
		channel: channel,
		logger:  logger.With().Str("component", "session_broadcaster").Logger(),
	}
}

// Run subscribes to the events channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode session event")
		return
	}
	if evt.Topic == "" {
		return
	}
	if evt.Close {
		b.local.CloseTopic(evt.Topic)
		return
	}
	if evt.Message == nil {
		return
	}
	// Delivery errors are per connection and already logged by the hub.
	_ = b.local.Publish(evt.Topic, *evt.Message)
}
