package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	goredis "github.com/redis/go-redis/v9"
)

// Redis publishes each event as JSON on the conversation channel. Subscribers (the
// websocket gateway) fan it out to clients.
type Redis struct {
	rdb *goredis.Client
}

var _ interfaces.RealtimePublisher = &Redis{}

func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	if addr == "" {
		return nil, goerr.New("redis address is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, goerr.Wrap(err, "failed to ping redis", goerr.V("addr", addr))
	}

	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Publish(ctx context.Context, convID model.ConversationID, event model.RealtimeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return goerr.Wrap(err, "failed to encode realtime event", goerr.V("conversation_id", convID))
	}

	channel := ChannelName(convID)
	if err := r.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		return goerr.Wrap(err, "failed to publish realtime event",
			goerr.V("channel", channel),
			goerr.V("type", event.Type))
	}
	return nil
}

// Subscribe opens a subscription on the conversation channel. The caller closes it.
func (r *Redis) Subscribe(ctx context.Context, convID model.ConversationID) (*goredis.PubSub, error) {
	sub := r.rdb.Subscribe(ctx, ChannelName(convID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, goerr.Wrap(err, "failed to subscribe", goerr.V("conversation_id", convID))
	}
	return sub, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
