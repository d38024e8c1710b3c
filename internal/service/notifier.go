package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/metrics"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// Notifier is the outbound notification sink. Notify never fails the caller:
// delivery problems are logged and swallowed.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// QueueNotifier pushes notifications onto the Redis list drained by the
// notification worker.
type QueueNotifier struct {
	rdb     *redis.Client
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewQueueNotifier creates a new QueueNotifier.
func NewQueueNotifier(rdb *redis.Client, m *metrics.Metrics, log zerolog.Logger) *QueueNotifier {
	return &QueueNotifier{
		rdb:     rdb,
		metrics: m,
		log:     log.With().Str("component", "notifier").Logger(),
	}
}

func (q *QueueNotifier) Notify(ctx context.Context, n model.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	data, err := json.Marshal(n)
	if err != nil {
		q.log.Error().Err(err).Str("kind", string(n.Kind)).Msg("Failed to encode notification")
		return
	}

	// The request context may already be cancelled once the response is written.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := q.rdb.LPush(pushCtx, config.WorkerKey.NotifyTelegramQueue, data).Err(); err != nil {
		q.metrics.ObserveNotification(string(n.Kind), "failed")
		q.log.Error().Err(err).Str("kind", string(n.Kind)).Msg("Failed to enqueue notification")
		return
	}
	q.metrics.ObserveNotification(string(n.Kind), "queued")
}

// LogNotifier writes notifications to the log only. Used when no Telegram
// credentials are configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (l *LogNotifier) Notify(_ context.Context, n model.Notification) {
	l.log.Info().Str("kind", string(n.Kind)).Str("text", n.Text).Msg("Notification (delivery disabled)")
}
