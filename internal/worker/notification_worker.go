package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/metrics"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/telegram"
)

const (
	PollTimeout         = 1 * time.Second // Must be >= 1s to satisfy Redis
	MaxDeliveryAttempts = 3
	SendTimeout         = 10 * time.Second
)

// Sender delivers one formatted message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) (int64, error)
}

// queuedNotification is the queue payload. Attempts counts failed deliveries.
type queuedNotification struct {
	model.Notification
	Attempts int `json:"attempts,omitempty"`
}

// NotificationWorker drains the notification queue into Telegram.
type NotificationWorker struct {
	rdb     *redis.Client
	sender  Sender
	chatID  int64
	metrics *metrics.Metrics
	log     zerolog.Logger
	backoff time.Duration
}

func NewNotificationWorker(rdb *redis.Client, sender Sender, chatID int64, m *metrics.Metrics, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		rdb:     rdb,
		sender:  sender,
		chatID:  chatID,
		metrics: m,
		log:     log.With().Str("component", "notification_worker").Logger(),
		backoff: 2 * time.Second,
	}
}

func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Int64("chat_id", w.chatID).Msg("NotificationWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("NotificationWorker stopping")
			return
		default:
		}

		// BLPop blocks for up to PollTimeout. Returns immediately if data exists.
		// Producers LPUSH, so popping from the left is newest-first; ordering
		// of alerts is not significant.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.NotifyTelegramQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		if retry := w.handle(ctx, result[1]); retry != nil {
			w.requeue(ctx, retry)
		}
	}
}

// handle delivers one raw queue item. It returns the payload to push back
// when delivery failed but may succeed later, or nil when the item is done.
func (w *NotificationWorker) handle(ctx context.Context, raw string) []byte {
	var item queuedNotification
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		// Malformed JSON can never be delivered. Log and discard.
		w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed notification")
		w.metrics.ObserveNotification("unknown", "dropped")
		return nil
	}
	kind := string(item.Kind)

	sendCtx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	msgID, err := w.sender.SendMessage(sendCtx, w.chatID, item.Text, telegram.ParseModeHTML)
	if err == nil {
		w.metrics.ObserveNotification(kind, "sent")
		w.log.Debug().Str("kind", kind).Int64("message_id", msgID).Msg("Notification delivered")
		return nil
	}

	item.Attempts++
	if !retryable(err) || item.Attempts >= MaxDeliveryAttempts {
		w.metrics.ObserveNotification(kind, "dropped")
		w.log.Error().Err(err).Str("kind", kind).Int("attempts", item.Attempts).Msg("Dropping notification")
		return nil
	}

	w.metrics.ObserveNotification(kind, "retry")
	w.log.Warn().Err(err).Str("kind", kind).Int("attempts", item.Attempts).Msg("Delivery failed, requeueing")
	data, err := json.Marshal(item)
	if err != nil {
		return nil
	}
	return data
}

// retryable treats Bot API client errors as permanent, except rate limiting.
func retryable(err error) bool {
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return true
}

func (w *NotificationWorker) requeue(ctx context.Context, data []byte) {
	// RPush puts the item at the far end so fresh alerts are not held up.
	if err := w.rdb.RPush(ctx, config.WorkerKey.NotifyTelegramQueue, data).Err(); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue notification. Message lost.")
		return
	}
	// Sleep a bit to avoid thrashing if Telegram is down hard
	select {
	case <-ctx.Done():
	case <-time.After(w.backoff):
	}
}
