// Package notify delivers topic-scoped push notifications.
package notify

import (
	"clipboard-sync/internal/config"
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks clipboard-sync/internal/notify Sender

// Message is a push notification addressed to a topic.
type Message struct {
	Topic string            `json:"topic"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender delivers a message to every subscriber of its topic.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks the sender for the configured method.
func NewSender(cfg config.NotifyConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Method {
	case config.NotifyNone, "":
		return NopSender{}, nil
	case config.NotifyLog:
		return &LogSender{logger: logger}, nil
	case config.NotifyWebhook:
		return NewWebhookSender(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout}), nil
	default:
		return nil, fmt.Errorf("unsupported notification method: %s", cfg.Method)
	}
}

// NopSender drops every message.
type NopSender struct{}

func (NopSender) Send(context.Context, Message) error { return nil }

// LogSender only logs what would have been sent.
type LogSender struct {
	logger *zap.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Push notification",
		zap.String("topic", msg.Topic),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data))
	return nil
}
