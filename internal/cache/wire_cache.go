package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corplandlords/wireboard/internal/models"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WireCache is a read-through cache for single wires.
type WireCache interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
	Set(ctx context.Context, wire *models.Wire) error
	Invalidate(ctx context.Context, id primitive.ObjectID) error
}

type redisWireCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisWireCache stores wires as JSON under "<prefix>wire:<id>". A non-positive
// ttl disables caching and returns nil.
func NewRedisWireCache(client *redis.Client, prefix string, ttl time.Duration) WireCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &redisWireCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisWireCache) key(id primitive.ObjectID) string {
	return fmt.Sprintf("%swire:%s", c.prefix, id.Hex())
}

// Get returns (nil, nil) on a miss.
func (c *redisWireCache) Get(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", id.Hex(), err)
	}
	var w models.Wire
	if err := json.Unmarshal(data, &w); err != nil {
		// corrupt entry; drop it and report a miss
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil, nil
	}
	return &w, nil
}

func (c *redisWireCache) Set(ctx context.Context, wire *models.Wire) error {
	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", wire.ID.Hex(), err)
	}
	if err := c.client.Set(ctx, c.key(wire.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", wire.ID.Hex(), err)
	}
	return nil
}

func (c *redisWireCache) Invalidate(ctx context.Context, id primitive.ObjectID) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", id.Hex(), err)
	}
	return nil
}
