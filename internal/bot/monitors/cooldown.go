package monitors

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"github.com/robalyx/warden/pkg/utils"
)

// CooldownKeyPrefix namespaces team rating cooldown keys in Redis.
const CooldownKeyPrefix = "rmt_cooldown"

// Cooldown gates how often a key may fire.
type Cooldown interface {
	// Claim starts the cooldown of key, reporting false if it is already running.
	Claim(ctx context.Context, key string) (bool, error)
}

// MemoryCooldown keeps cooldowns in process memory.
type MemoryCooldown struct {
	entries *utils.TTLMap[string, struct{}]
}

// NewMemoryCooldown creates an in-process cooldown of the given length.
func NewMemoryCooldown(ttl time.Duration) *MemoryCooldown {
	return &MemoryCooldown{entries: utils.NewTTLMap[string, struct{}](ttl)}
}

// Claim starts the cooldown of key unless it is running.
func (m *MemoryCooldown) Claim(_ context.Context, key string) (bool, error) {
	return m.entries.Claim(key, struct{}{}), nil
}

// RedisCooldown keeps cooldowns in Redis so every bot process shares them.
type RedisCooldown struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedisCooldown creates a Redis backed cooldown of the given length.
func NewRedisCooldown(client rueidis.Client, ttl time.Duration) *RedisCooldown {
	return &RedisCooldown{
		client: client,
		ttl:    ttl,
	}
}

// Claim sets the key only if it is absent.
func (r *RedisCooldown) Claim(ctx context.Context, key string) (bool, error) {
	err := r.client.Do(ctx, r.client.B().Set().
		Key(fmt.Sprintf("%s:%s", CooldownKeyPrefix, key)).
		Value("1").
		Nx().
		Px(r.ttl).
		Build()).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim cooldown: %w", err)
	}
	return true, nil
}
