package gateway

import (
	"context"
	"strings"

	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const changeChannelPrefix = "neighbor:changes:"

// RedisFeed fans change signals out to every server instance through Redis
// pub/sub. Local watchers are fed from the subscription, so a publisher sees its
// own writes the same way remote instances do.
type RedisFeed struct {
	client *redis.Client
	local  *LocalFeed
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisFeed(ctx context.Context, client *redis.Client) (*RedisFeed, error) {
	pubsub := client.PSubscribe(ctx, changeChannelPrefix+"*")
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	f := &RedisFeed{
		client: client,
		local:  NewLocalFeed(),
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	go f.loop()
	return f, nil
}

func (f *RedisFeed) loop() {
	defer close(f.done)
	for msg := range f.pubsub.Channel() {
		f.local.notify(strings.TrimPrefix(msg.Channel, changeChannelPrefix))
	}
}

func (f *RedisFeed) Publish(ctx context.Context, collection string) {
	if err := f.client.Publish(ctx, changeChannelPrefix+collection, "1").Err(); err != nil {
		logger.Warn().Err(err).Str("collection", collection).Msg("Failed to publish change signal, delivering locally")
		f.local.notify(collection)
	}
}

func (f *RedisFeed) Watch(collection string) (<-chan struct{}, func()) {
	return f.local.Watch(collection)
}

func (f *RedisFeed) Close() error {
	err := f.pubsub.Close()
	<-f.done
	return err
}
