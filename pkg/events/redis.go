package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

const snapshotTopic = "snapshot"

// redisTransport is the subset of pkg/redis.Client the bus needs.
type redisTransport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	EventsChannel(topic string) string
}

// RedisBus relays events between processes over Redis pub/sub.
type RedisBus struct {
	client  redisTransport
	channel string
	logg    *logger.Logger
	buffer  int
}

// NewRedisBus builds a bus on the shared Redis client.
func NewRedisBus(client redisTransport, logg *logger.Logger) (*RedisBus, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisBus{
		client:  client,
		channel: client.EventsChannel(snapshotTopic),
		logg:    logg,
		buffer:  defaultBuffer,
	}, nil
}

// Publish encodes evt as JSON and publishes it.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	payload, err := encode(evt)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection and decodes messages onto
// the returned channel. Undecodable messages are logged and dropped.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	ps, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return nil, nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Event, b.buffer)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				evt, err := decode([]byte(msg.Payload))
				if err != nil {
					if b.logg != nil {
						b.logg.Warn(b.logg.WithField(subCtx, "channel", msg.Channel), err.Error())
					}
					continue
				}
				select {
				case out <- evt:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
