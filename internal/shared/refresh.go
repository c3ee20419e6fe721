package shared

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	refreshKeyPrefix = "refresh:gen:"
	refreshChannel   = "refresh.bump"
)

// RefreshBroadcaster tracks a per-domain generation counter in Redis. Writers
// bump the counter after committing; list views and cached reports read the
// generation into their cache keys so a bump invalidates everything derived
// from that domain.
type RefreshBroadcaster struct {
	client *redis.Client
}

// NewRefreshBroadcaster constructs the broadcaster.
func NewRefreshBroadcaster(client *redis.Client) *RefreshBroadcaster {
	return &RefreshBroadcaster{client: client}
}

// Generation returns the current generation for a domain, initialising to 1.
func (b *RefreshBroadcaster) Generation(ctx context.Context, domain string) (int64, error) {
	if b == nil || b.client == nil {
		return 0, nil
	}
	gen, err := b.client.Get(ctx, refreshKeyPrefix+domain).Int64()
	if err == redis.Nil {
		if err := b.client.Set(ctx, refreshKeyPrefix+domain, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// Bump increments the generation for each domain and publishes the change.
func (b *RefreshBroadcaster) Bump(ctx context.Context, domains ...string) error {
	if b == nil || b.client == nil {
		return nil
	}
	for _, domain := range domains {
		gen, err := b.client.Incr(ctx, refreshKeyPrefix+domain).Result()
		if err != nil {
			return err
		}
		payload := domain + ":" + strconv.FormatInt(gen, 10)
		if err := b.client.Publish(ctx, refreshChannel, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe invokes fn with the domain name for every published bump until ctx
// is cancelled.
func (b *RefreshBroadcaster) Subscribe(ctx context.Context, fn func(domain string)) {
	if b == nil || b.client == nil || fn == nil {
		return
	}
	pubsub := b.client.Subscribe(ctx, refreshChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				domain, _, _ := strings.Cut(msg.Payload, ":")
				if domain != "" {
					fn(domain)
				}
			}
		}
	}()
}
