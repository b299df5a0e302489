package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel used by the relay.
const DefaultChannel = "mdt:events"

// OpenRedis connects to the Redis server at url and pings it.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisRelay publishes events on a Redis channel and feeds the events seen on
// that channel into a hub.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	log     zerolog.Logger
}

// NewRedisRelay returns a relay on channel (DefaultChannel when blank).
func NewRedisRelay(rdb *redis.Client, channel string, log zerolog.Logger) *RedisRelay {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{rdb: rdb, channel: channel, log: log}
}

// Send publishes ev.
func (r *RedisRelay) Send(ctx context.Context, ev Event) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, msg).Err()
}

// Run subscribes to the channel and delivers every decoded event to hub
// until ctx ends.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				r.log.Warn().Err(err).Msg("dropping malformed broadcast message")
				continue
			}
			hub.Deliver(ev)
		}
	}
}

func encodeEvent(ev Event) (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEvent(s string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		return Event{}, err
	}
	if ev.Name == "" {
		return Event{}, fmt.Errorf("event without name")
	}
	return ev, nil
}
