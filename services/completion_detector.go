package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
)

// CompletionDetector turns event status changes into reward runs.
type CompletionDetector struct {
	events   repositories.EventRepository
	rewarder Rewarder
	logger   *slog.Logger
}

func NewCompletionDetector(events repositories.EventRepository, rewarder Rewarder, logger *slog.Logger) *CompletionDetector {
	return &CompletionDetector{events: events, rewarder: rewarder, logger: logger}
}

// HandleStatusChange rewards the event when it has just become completed.
// It returns a nil result for every delivery that is not a completion.
func (d *CompletionDetector) HandleStatusChange(ctx context.Context, change models.StatusChange) (*RewardResult, error) {
	if change.After == nil {
		return nil, fmt.Errorf("%w: status change for event %q carries no event", ErrValidationFailed, change.EventID)
	}
	if change.After.Status != models.EventStatusCompleted {
		return nil, nil
	}
	if change.Before != nil && change.Before.Status == models.EventStatusCompleted {
		d.logger.Debug("ignoring completed to completed write", slog.String("event_id", change.After.ID))
		return nil, nil
	}
	return d.dispatch(ctx, *change.After)
}

// ReplayCompletion re-runs rewards for an already completed event.
func (d *CompletionDetector) ReplayCompletion(ctx context.Context, eventID string) (*RewardResult, error) {
	event, err := d.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, handleRepositoryError(err, "replay completion of event %s", eventID)
	}
	if event.Status != models.EventStatusCompleted {
		return nil, fmt.Errorf("event %s has status %s: %w", eventID, event.Status, ErrEventNotCompleted)
	}
	result, err := d.dispatch(ctx, *event)
	if err != nil {
		return result, err
	}
	if result == nil {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNoChampion)
	}
	return result, nil
}

func (d *CompletionDetector) dispatch(ctx context.Context, event models.Event) (*RewardResult, error) {
	res := ResolveWinners(event)
	if !res.ChampionDeclared {
		d.logger.Warn("completed event has no champion, skipping rewards", slog.String("event_id", event.ID))
		return nil, nil
	}
	if !res.HasChampion() {
		// Битый id чемпиона уходит в Failures, остальные все равно награждаются.
		d.logger.Warn("champion could not be resolved, rewarding remaining placements",
			slog.String("event_id", event.ID),
			slog.Any("resolution_errors", res.Errors))
	}

	d.logger.Info("event completed, rewarding",
		slog.String("event_id", event.ID),
		slog.String("club_id", event.ClubID),
		slog.Int("placements", len(res.Placements)),
		slog.Int("eligible", len(res.Eligible)))

	result := d.rewarder.Reward(ctx, event, res)
	return result, result.Err()
}
