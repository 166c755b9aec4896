package listeners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/club-events/metrics"
	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
	"github.com/lib/pq"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// statusNotification is the pg_notify payload of the events trigger.
type statusNotification struct {
	EventID      string             `json:"event_id"`
	BeforeStatus models.EventStatus `json:"before_status"`
	AfterStatus  models.EventStatus `json:"after_status"`
}

// PostgresListener turns NOTIFY messages from the events trigger into status changes.
// Notifications sent while disconnected are lost; the reconciler covers them.
type PostgresListener struct {
	dsn     string
	channel string
	events  repositories.EventRepository
	handler StatusChangeHandler
	logger  *slog.Logger
}

func NewPostgresListener(dsn, channel string, events repositories.EventRepository, handler StatusChangeHandler, logger *slog.Logger) *PostgresListener {
	return &PostgresListener{dsn: dsn, channel: channel, events: events, handler: handler, logger: logger}
}

// Run blocks until ctx is canceled.
func (l *PostgresListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			l.logger.Info("status listener connected", slog.String("channel", l.channel))
		case pq.ListenerEventDisconnected:
			l.logger.Warn("status listener disconnected", slog.Any("error", err))
		case pq.ListenerEventReconnected:
			l.logger.Info("status listener reconnected", slog.String("channel", l.channel))
		case pq.ListenerEventConnectionAttemptFailed:
			l.logger.Error("status listener connection attempt failed", slog.Any("error", err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("failed to LISTEN on %s: %w", l.channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("status listener stopping")
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			if err := l.handleNotification(ctx, n.Extra); err != nil {
				l.logger.Error("failed to handle status notification",
					slog.String("payload", n.Extra), slog.Any("error", err))
			}
		case <-time.After(pingInterval):
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("status listener ping failed", slog.Any("error", err))
				}
			}()
		}
	}
}

func (l *PostgresListener) handleNotification(ctx context.Context, payload string) error {
	var note statusNotification
	if err := json.Unmarshal([]byte(payload), &note); err != nil {
		metrics.StatusChangesReceived.WithLabelValues("postgres", outcomeMalformed).Inc()
		return fmt.Errorf("malformed status notification: %w", err)
	}
	if note.EventID == "" {
		metrics.StatusChangesReceived.WithLabelValues("postgres", outcomeMalformed).Inc()
		return errors.New("status notification without event_id")
	}
	if note.AfterStatus != models.EventStatusCompleted {
		metrics.StatusChangesReceived.WithLabelValues("postgres", outcomeIgnored).Inc()
		return nil
	}

	event, err := l.events.GetByID(ctx, note.EventID)
	if err != nil {
		metrics.StatusChangesReceived.WithLabelValues("postgres", outcomeFailed).Inc()
		return fmt.Errorf("load event %s: %w", note.EventID, err)
	}

	change := models.StatusChange{
		EventID: note.EventID,
		Before:  &models.Event{ID: note.EventID, Status: note.BeforeStatus},
		After:   event,
	}
	if _, err := l.handler.HandleStatusChange(ctx, change); err != nil {
		metrics.StatusChangesReceived.WithLabelValues("postgres", outcomeFailed).Inc()
		return err
	}
	metrics.StatusChangesReceived.WithLabelValues("postgres", outcomeHandled).Inc()
	return nil
}
