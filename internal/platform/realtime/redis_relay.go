package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRelayBuffer is the number of envelopes queued for Redis before
	// new ones are dropped.
	DefaultRelayBuffer = 1024

	relayPublishTimeout = 2 * time.Second
)

// envelope is the inter-instance message. An empty Scope means global.
type envelope struct {
	Origin string `json:"origin"`
	Scope  string `json:"scope,omitempty"`
	Event  Event  `json:"event"`
}

// RedisRelay is a Publisher that delivers to local connections and mirrors
// every event on a Redis channel so that other instances deliver it to
// theirs. Messages an instance published itself are ignored on receipt.
//
// Publishers never wait on Redis: envelopes go through a bounded queue that
// Run drains, and are dropped when the queue is full.
type RedisRelay struct {
	local    *Broadcaster
	client   *redis.Client
	channel  string
	origin   string
	outbound chan []byte
	dropped  atomic.Int64
	logger   zerolog.Logger
}

// NewRedisRelay creates a relay publishing on channel.
func NewRedisRelay(local *Broadcaster, client *redis.Client, channel string, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		local:    local,
		client:   client,
		channel:  channel,
		origin:   uuid.NewString(),
		outbound: make(chan []byte, DefaultRelayBuffer),
		logger:   logger.With().Str("component", "redis_relay").Logger(),
	}
}

// Dropped returns how many envelopes were discarded because the outbound
// queue was full.
func (r *RedisRelay) Dropped() int64 {
	return r.dropped.Load()
}

// Connect parses url and pings the server, retrying up to attempts times.
func Connect(ctx context.Context, url string, attempts int, interval time.Duration) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for n := 0; n < attempts; n++ {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()
		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("redis not ready: %w", lastErr)
}

// ToScope implements Publisher.
func (r *RedisRelay) ToScope(scope, event string, payload interface{}) int {
	e, err := NewEvent(event, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("scope", scope).Msg("drop event")
		return 0
	}
	n := r.local.PublishScope(scope, e)
	r.publish(envelope{Origin: r.origin, Scope: scope, Event: e})
	return n
}

// ToAll implements Publisher.
func (r *RedisRelay) ToAll(event string, payload interface{}) int {
	e, err := NewEvent(event, payload)
	if err != nil {
		r.logger.Error().Err(err).Msg("drop event")
		return 0
	}
	n := r.local.PublishAll(e)
	r.publish(envelope{Origin: r.origin, Event: e})
	return n
}

// Dual implements Publisher.
func (r *RedisRelay) Dual(scope, scopedEvent, globalEvent string, payload interface{}) {
	r.ToScope(scope, scopedEvent, payload)
	r.ToAll(globalEvent, payload)
}

func (r *RedisRelay) publish(env envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		r.logger.Error().Err(err).Str("event", env.Event.Name).Msg("encode envelope")
		return
	}
	select {
	case r.outbound <- body:
	default:
		n := r.dropped.Add(1)
		r.logger.Warn().Str("event", env.Event.Name).Int64("dropped", n).Msg("relay queue full, dropping event")
	}
}

// Run drains the outbound queue to Redis and delivers foreign events from
// the relay channel locally until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		r.drain(gctx)
		return nil
	})
	g.Go(func() error {
		defer stop()
		return r.subscribe(gctx)
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (r *RedisRelay) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case body := <-r.outbound:
			pctx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
			err := r.client.Publish(pctx, r.channel, body).Err()
			cancel()
			if err != nil && ctx.Err() == nil {
				r.logger.Warn().Err(err).Msg("relay publish failed")
			}
		}
	}
}

func (r *RedisRelay) subscribe(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info().Str("channel", r.channel).Str("origin", r.origin).Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

// handle delivers one relayed envelope and returns the delivery count.
func (r *RedisRelay) handle(payload string) int {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Debug().Err(err).Msg("malformed relay message")
		return 0
	}
	if env.Origin == r.origin || env.Event.Name == "" {
		return 0
	}
	// Re-encode so the shared frame is built once for local recipients. A
	// typed nil RawMessage would otherwise encode as "data":null.
	var data interface{}
	if len(env.Event.Data) > 0 {
		data = env.Event.Data
	}
	e, err := NewEvent(env.Event.Name, data)
	if err != nil {
		r.logger.Debug().Err(err).Msg("relay event")
		return 0
	}
	if env.Scope == "" {
		return r.local.PublishAll(e)
	}
	return r.local.PublishScope(env.Scope, e)
}
