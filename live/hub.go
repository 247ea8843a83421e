package live

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "lms:changes:"

// Hub fans out collection change notifications over redis pub/sub. A
// subscriber gets a signal whenever the collection changed and re-reads
// the data it cares about; the payload carries only the collection key,
// not documents.
type Hub struct {
	client *redis.Client
	log    *zap.Logger
}

func NewHub(client *redis.Client, log *zap.Logger) *Hub {
	return &Hub{client: client, log: log}
}

// Notify publishes a change signal for a collection. A nil hub is a
// no-op so write paths do not have to care whether live updates are
// configured.
func (h *Hub) Notify(ctx context.Context, collection string) {
	if h == nil {
		return
	}
	if err := h.client.Publish(ctx, channelPrefix+collection, "changed").Err(); err != nil {
		h.log.Warn("publish change notification failed",
			zap.String("collection", collection),
			zap.Error(err))
	}
}

// Subscribe returns a signal channel for a collection and a release
// func. The channel closes when the subscription is released or the
// context ends; callers must call release to avoid leaking the
// underlying pub/sub connection.
func (h *Hub) Subscribe(ctx context.Context, collection string) (<-chan struct{}, func()) {
	pubsub := h.client.Subscribe(ctx, channelPrefix+collection)
	signals := make(chan struct{}, 1)

	go func() {
		defer close(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				// Coalesce: one pending signal is enough.
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}()

	release := func() {
		_ = pubsub.Close()
	}
	return signals, release
}
