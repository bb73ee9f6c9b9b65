package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"roamly-chat/pkg/logger"
)

const userChannelPrefix = "channel:user:"

// RedisPublisher publishes envelopes to per-user Redis channels so that
// whichever instance holds the user's connection can deliver them.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishToUser(userID string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Publish(context.Background(), userChannelPrefix+userID, data).Err()
}

// RedisBridge subscribes to all user channels and forwards frames to the
// local connection registry. Frames for users connected elsewhere fall
// through Send and are dropped here.
type RedisBridge struct {
	client   *redis.Client
	registry ConnectionRegistry
	log      *logger.Logger
	pubsub   *redis.PubSub
	cancel   context.CancelFunc
}

func NewRedisBridge(client *redis.Client, registry ConnectionRegistry, log *logger.Logger) *RedisBridge {
	return &RedisBridge{client: client, registry: registry, log: log}
}

func (b *RedisBridge) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.pubsub = b.client.PSubscribe(ctx, userChannelPrefix+"*")
	go b.listen(ctx)
}

func (b *RedisBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.pubsub != nil {
		_ = b.pubsub.Close()
	}
}

func (b *RedisBridge) listen(ctx context.Context) {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID := strings.TrimPrefix(msg.Channel, userChannelPrefix)
			if userID == "" {
				continue
			}
			// A false return means the user is connected to another
			// instance or offline; either way the frame is dropped here.
			b.registry.Send(userID, []byte(msg.Payload))
		}
	}
}
