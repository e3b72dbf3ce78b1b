package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

// RedisOptions configures the Redis Streams transport.
type RedisOptions struct {
	StreamPrefix  string
	Group         string
	Consumer      string
	BatchSize     int64
	Block         time.Duration
	ClaimMinIdle  time.Duration
	ClaimInterval time.Duration
	MaxDeliveries int64
	Now           func() time.Time
}

func (o *RedisOptions) setDefaults() {
	if o.StreamPrefix == "" {
		o.StreamPrefix = "ticketing"
	}
	if o.Group == "" {
		o.Group = "projections"
	}
	if o.Consumer == "" {
		o.Consumer = "projector-1"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	if o.Block <= 0 {
		o.Block = 5 * time.Second
	}
	if o.ClaimMinIdle <= 0 {
		o.ClaimMinIdle = 30 * time.Second
	}
	if o.ClaimInterval <= 0 {
		o.ClaimInterval = 5 * time.Second
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 5
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Redis is a bus over Redis Streams. Each event type has its own stream
// and its own consumer group, so types are consumed independently.
// Messages are acknowledged only after their handler succeeds; a failed
// message stays pending and is reclaimed once it has been idle for
// ClaimMinIdle. After MaxDeliveries it is copied to "<stream>:dead" and
// acknowledged.
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
	logger *slog.Logger
}

// NewRedis builds a Redis Streams bus.
func NewRedis(client redis.UniversalClient, logger *slog.Logger, opts RedisOptions) *Redis {
	opts.setDefaults()
	return &Redis{
		client: client,
		opts:   opts,
		logger: logger.With("component", "bus.redis", "group", opts.Group, "consumer", opts.Consumer),
	}
}

// Stream returns the stream name for eventType.
func (r *Redis) Stream(eventType string) string {
	return r.opts.StreamPrefix + ":" + eventType
}

// Publish appends one stream entry per event in a single pipeline.
func (r *Redis) Publish(ctx context.Context, events ...domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, evt := range events {
		msg, err := NewMessage(evt, r.opts.Now())
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.Stream(msg.Type),
			Values: encodeValues(msg),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

// Run consumes every routed stream until ctx is cancelled.
func (r *Redis) Run(ctx context.Context, router *Router) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, eventType := range router.Types() {
		stream := r.Stream(eventType)
		if err := r.ensureGroup(ctx, stream); err != nil {
			return err
		}
		g.Go(func() error { return r.consume(ctx, stream, router) })
		g.Go(func() error { return r.reclaim(ctx, stream, router) })
	}
	return g.Wait()
}

func (r *Redis) ensureGroup(ctx context.Context, stream string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, r.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", r.opts.Group, stream, err)
	}
	return nil
}

func (r *Redis) consume(ctx context.Context, stream string, router *Router) error {
	log := r.logger.With("stream", stream)
	log.Info("consuming")
	for {
		if ctx.Err() != nil {
			return nil
		}
		streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.opts.Group,
			Consumer: r.opts.Consumer,
			Streams:  []string{stream, ">"},
			Count:    r.opts.BatchSize,
			Block:    r.opts.Block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("read group failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		for _, s := range streams {
			for _, xm := range s.Messages {
				r.deliver(ctx, stream, router, xm, 1)
			}
		}
	}
}

// reclaim picks up messages whose handler failed (or whose consumer died)
// and redelivers them. Claims are paced by a limiter so a poison message
// cannot spin the loop.
func (r *Redis) reclaim(ctx context.Context, stream string, router *Router) error {
	log := r.logger.With("stream", stream)
	limiter := rate.NewLimiter(rate.Every(r.opts.ClaimInterval), 1)
	start := "0-0"
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		msgs, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    r.opts.Group,
			Consumer: r.opts.Consumer,
			MinIdle:  r.opts.ClaimMinIdle,
			Start:    start,
			Count:    r.opts.BatchSize,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("autoclaim failed", "error", err)
			continue
		}
		start = next
		for _, xm := range msgs {
			attempts, err := r.deliveryCount(ctx, stream, xm.ID)
			if err != nil {
				log.Error("pending lookup failed", "entry", xm.ID, "error", err)
				continue
			}
			if attempts > r.opts.MaxDeliveries {
				r.deadLetter(ctx, stream, xm, fmt.Errorf("exceeded %d deliveries", r.opts.MaxDeliveries))
				continue
			}
			r.deliver(ctx, stream, router, xm, int(attempts))
		}
	}
}

func (r *Redis) deliver(ctx context.Context, stream string, router *Router, xm redis.XMessage, attempt int) {
	msg, err := decodeValues(xm.Values)
	if err != nil {
		r.deadLetter(ctx, stream, xm, err)
		return
	}
	msg.Attempt = attempt
	if err := router.Route(ctx, msg); err != nil {
		r.logger.Warn("delivery failed; left pending for redelivery",
			"stream", stream, "entry", xm.ID, "id", msg.ID, "attempt", attempt, "error", err)
		return
	}
	if err := r.client.XAck(ctx, stream, r.opts.Group, xm.ID).Err(); err != nil {
		r.logger.Error("ack failed", "stream", stream, "entry", xm.ID, "error", err)
	}
}

func (r *Redis) deliveryCount(ctx context.Context, stream, entryID string) (int64, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  r.opts.Group,
		Start:  entryID,
		End:    entryID,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 1, nil
	}
	return pending[0].RetryCount, nil
}

func (r *Redis) deadLetter(ctx context.Context, stream string, xm redis.XMessage, cause error) {
	values := make(map[string]interface{}, len(xm.Values)+2)
	for k, v := range xm.Values {
		values[k] = v
	}
	values["entry"] = xm.ID
	values["error"] = cause.Error()

	r.logger.Error("dead-lettering entry", "stream", stream, "entry", xm.ID, "error", cause)
	if err := r.client.XAdd(ctx, &redis.XAddArgs{Stream: stream + ":dead", Values: values}).Err(); err != nil {
		r.logger.Error("dead-letter write failed; entry stays pending", "stream", stream, "entry", xm.ID, "error", err)
		return
	}
	if err := r.client.XAck(ctx, stream, r.opts.Group, xm.ID).Err(); err != nil {
		r.logger.Error("ack failed", "stream", stream, "entry", xm.ID, "error", err)
	}
}

func encodeValues(msg Message) map[string]interface{} {
	return map[string]interface{}{
		"id":      msg.ID,
		"type":    msg.Type,
		"key":     msg.Key,
		"at":      msg.OccurredAt.UTC().Format(time.RFC3339Nano),
		"payload": string(msg.Payload),
	}
}

func decodeValues(values map[string]interface{}) (Message, error) {
	field := func(name string) (string, error) {
		v, ok := values[name].(string)
		if !ok {
			return "", fmt.Errorf("stream entry missing %q", name)
		}
		return v, nil
	}
	var msg Message
	var err error
	if msg.ID, err = field("id"); err != nil {
		return Message{}, err
	}
	if msg.Type, err = field("type"); err != nil {
		return Message{}, err
	}
	if msg.Key, err = field("key"); err != nil {
		return Message{}, err
	}
	at, err := field("at")
	if err != nil {
		return Message{}, err
	}
	if msg.OccurredAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return Message{}, fmt.Errorf("stream entry time: %w", err)
	}
	payload, err := field("payload")
	if err != nil {
		return Message{}, err
	}
	msg.Payload = []byte(payload)
	return msg, nil
}
