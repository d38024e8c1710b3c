package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// NotificationService relays browser alerts and admin test messages to the sink.
type NotificationService struct {
	notifier   Notifier
	siteHeader string
	log        zerolog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notifier Notifier, siteHeader string, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		notifier:   notifier,
		siteHeader: siteHeader,
		log:        log.With().Str("component", "alerts").Logger(),
	}
}

// RelayAlert formats a browser alert, writes an alert log line and enqueues it.
func (s *NotificationService) RelayAlert(ctx context.Context, req *model.TelegramAlertRequest) model.NotificationKind {
	kind, text := FormatAlert(req)
	s.logAlert(kind, req)
	s.notifier.Notify(ctx, model.Notification{Kind: kind, Text: text})
	return kind
}

// LogViolation only records a browser violation alert, without delivery.
func (s *NotificationService) LogViolation(req *model.TelegramAlertRequest) {
	s.logAlert(model.NotifyViolation, req)
}

// SendTest enqueues a test message.
func (s *NotificationService) SendTest(ctx context.Context) {
	s.notifier.Notify(ctx, model.Notification{Kind: model.NotifyTest, Text: FormatTest(s.siteHeader)})
}

func (s *NotificationService) logAlert(kind model.NotificationKind, req *model.TelegramAlertRequest) {
	s.log.Info().
		Str("type", string(kind)).
		Str("timestamp", req.Timestamp).
		Str("student", req.Student).
		Str("class", req.Class).
		Str("exam", req.Exam).
		Str("violation", req.ViolationType).
		Str("details", req.Details).
		Msg("Alert received")
}
