package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelName is the Redis pub/sub channel every instance shares.
const channelName = "chat.events"

// frame is the cross-instance wire shape: the target uids plus the
// already-serialized envelope.
type frame struct {
	UIDs    []int32         `json:"uids"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge fans events out across instances via Redis pub/sub. Every
// instance, including the publisher, receives each published frame and
// delivers it to its local registry, so a member connected to any instance
// sees the event. If publishing fails the event is delivered locally only.
type Bridge struct {
	rdb    *redis.Client
	local  Broadcaster
	logger *zap.Logger
}

func NewBridge(rdb *redis.Client, local Broadcaster, logger *zap.Logger) *Bridge {
	return &Bridge{rdb: rdb, local: local, logger: logger}
}

// Broadcast publishes the frame; local delivery happens when our own
// subscription receives it back.
func (b *Bridge) Broadcast(uids []int32, payload []byte) {
	body, err := json.Marshal(frame{UIDs: uids, Payload: payload})
	if err != nil {
		b.logger.Error("marshal event frame", zap.Error(err))
		b.local.Broadcast(uids, payload)
		return
	}
	if err := b.rdb.Publish(context.Background(), channelName, body).Err(); err != nil {
		b.logger.Warn("publish event frame, delivering locally only", zap.Error(err))
		b.local.Broadcast(uids, payload)
	}
}

// Run consumes the shared channel until ctx is cancelled, handing each
// frame to the local registry. Meant to run in its own goroutine.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var f frame
			if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
				b.logger.Warn("malformed event frame", zap.Error(err))
				continue
			}
			b.local.Broadcast(f.UIDs, f.Payload)
		}
	}
}
