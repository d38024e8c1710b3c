package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/ujian-proctor/internal/config"
)

// RedisSessionRegistry keeps each participant's current token ID in Redis.
type RedisSessionRegistry struct {
	rdb *redis.Client
}

// NewRedisSessionRegistry creates a new RedisSessionRegistry.
func NewRedisSessionRegistry(rdb *redis.Client) *RedisSessionRegistry {
	return &RedisSessionRegistry{rdb: rdb}
}

func (r *RedisSessionRegistry) Register(ctx context.Context, participantID int, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, config.CacheKey.ParticipantSessionKey(participantID), jti, ttl).Err()
}

// Current returns the registered token ID, or "" if none.
func (r *RedisSessionRegistry) Current(ctx context.Context, participantID int) (string, error) {
	jti, err := r.rdb.Get(ctx, config.CacheKey.ParticipantSessionKey(participantID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return jti, err
}

func (r *RedisSessionRegistry) Reset(ctx context.Context, participantID int) error {
	return r.rdb.Del(ctx, config.CacheKey.ParticipantSessionKey(participantID)).Err()
}
