package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// ExamCache memoizes PIN → active exam resolution. Misses and errors fall
// through to the database.
type ExamCache interface {
	Get(ctx context.Context, pin string) (*model.Exam, bool)
	Set(ctx context.Context, pin string, exam *model.Exam)
	Invalidate(ctx context.Context, pin string)
}

const examCacheTTL = time.Minute

// RedisExamCache stores resolved exams as JSON under config.CacheKey.ActiveExamByPINKey.
type RedisExamCache struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisExamCache creates a new RedisExamCache.
func NewRedisExamCache(rdb *redis.Client, log zerolog.Logger) *RedisExamCache {
	return &RedisExamCache{rdb: rdb, log: log.With().Str("component", "exam_cache").Logger()}
}

func (c *RedisExamCache) Get(ctx context.Context, pin string) (*model.Exam, bool) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.ActiveExamByPINKey(pin)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("exam cache read failed")
		}
		return nil, false
	}
	var e model.Exam
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	return &e, true
}

func (c *RedisExamCache) Set(ctx context.Context, pin string, exam *model.Exam) {
	raw, err := json.Marshal(exam)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, config.CacheKey.ActiveExamByPINKey(pin), raw, examCacheTTL).Err(); err != nil {
		c.log.Warn().Err(err).Msg("exam cache write failed")
	}
}

func (c *RedisExamCache) Invalidate(ctx context.Context, pin string) {
	if err := c.rdb.Del(ctx, config.CacheKey.ActiveExamByPINKey(pin)).Err(); err != nil {
		c.log.Warn().Err(err).Str("pin", pin).Msg("exam cache invalidation failed")
	}
}

type noopExamCache struct{}

func (noopExamCache) Get(context.Context, string) (*model.Exam, bool) { return nil, false }
func (noopExamCache) Set(context.Context, string, *model.Exam)        {}
func (noopExamCache) Invalidate(context.Context, string)              {}
