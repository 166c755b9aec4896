package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type NotificationKind string

const (
	NotificationTrophyAwarded NotificationKind = "trophy_awarded"
	NotificationBadgeAwarded  NotificationKind = "badge_awarded"
)

type NotificationPayload struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	ClubID    string `json:"club_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Rank      int    `json:"rank,omitempty"`
	BadgeKind string `json:"badge_kind,omitempty"`
}

// Notifier delivers a user-facing push. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind NotificationKind, payload NotificationPayload) error
}

type webhookMessage struct {
	UserID  string              `json:"user_id"`
	Kind    NotificationKind    `json:"kind"`
	Payload NotificationPayload `json:"payload"`
	SentAt  time.Time           `json:"sent_at"`
}

type webhookNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier posts each notification as JSON to a push gateway.
func NewWebhookNotifier(webhookURL string, timeout time.Duration, logger *slog.Logger) Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhookNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (n *webhookNotifier) Notify(ctx context.Context, userID string, kind NotificationKind, payload NotificationPayload) error {
	body, err := json.Marshal(webhookMessage{UserID: userID, Kind: kind, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway responded with status %d", ErrNotificationFailed, resp.StatusCode)
	}
	n.logger.Debug("notification sent", slog.String("user_id", userID), slog.String("kind", string(kind)))
	return nil
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier is used when no push gateway is configured.
func NewLogNotifier(logger *slog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(_ context.Context, userID string, kind NotificationKind, payload NotificationPayload) error {
	n.logger.Info("notification (no gateway configured)",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("event_id", payload.EventID))
	return nil
}
