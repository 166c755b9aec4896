package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/club-events/brackets"
	"github.com/Dosada05/club-events/metrics"
	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
	"golang.org/x/sync/errgroup"
)

const defaultRewardConcurrency = 4

// Reward steps reported in RewardFailure.Step.
const (
	StepResolve       = "resolve"
	StepTrophy        = "trophy"
	StepBadge         = "badge"
	StepRecentWinners = "recent_winners"
)

// EventBroadcaster pushes a message to everyone watching an event.
type EventBroadcaster interface {
	PublishEvent(eventID, messageType string, payload interface{})
}

type RewardFailure struct {
	ParticipantID string `json:"participant_id"`
	Step          string `json:"step"`
	Message       string `json:"error"`
	err           error
}

func (f RewardFailure) Error() string {
	return fmt.Sprintf("%s for %s: %s", f.Step, f.ParticipantID, f.Message)
}

func (f RewardFailure) Unwrap() error {
	return f.err
}

// RewardResult summarizes one reward run. Counts cover only what this run created.
type RewardResult struct {
	EventID             string          `json:"event_id"`
	TrophiesCreated     int             `json:"trophies_created"`
	BadgesAwarded       int             `json:"badges_awarded"`
	RecentWinnerAdded   bool            `json:"recent_winner_added"`
	NotificationsFailed int             `json:"notifications_failed"`
	Failures            []RewardFailure `json:"failures,omitempty"`
}

// Partial reports whether some participants were not fully rewarded.
func (r *RewardResult) Partial() bool {
	return len(r.Failures) > 0
}

// Err joins the failures a retry could fix. Malformed participants are
// excluded since redelivery cannot change them.
func (r *RewardResult) Err() error {
	var errs []error
	for _, f := range r.Failures {
		if f.Step == StepResolve {
			continue
		}
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Rewarder is the completion path's view of the orchestrator.
type Rewarder interface {
	Reward(ctx context.Context, event models.Event, res Resolution) *RewardResult
}

type RewardOrchestrator struct {
	trophies    repositories.TrophyRepository
	badges      BadgeChecker
	clubs       repositories.ClubRepository
	notifier    Notifier
	broadcaster EventBroadcaster
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

func NewRewardOrchestrator(
	trophies repositories.TrophyRepository,
	badges BadgeChecker,
	clubs repositories.ClubRepository,
	notifier Notifier,
	broadcaster EventBroadcaster,
	concurrency int,
	logger *slog.Logger,
) *RewardOrchestrator {
	if concurrency <= 0 {
		concurrency = defaultRewardConcurrency
	}
	return &RewardOrchestrator{
		trophies:    trophies,
		badges:      badges,
		clubs:       clubs,
		notifier:    notifier,
		broadcaster: broadcaster,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Reward grants trophies, badges and the club's recent-winners entry for a
// completed event. Every write is idempotent so the same event may be
// rewarded any number of times.
func (o *RewardOrchestrator) Reward(ctx context.Context, event models.Event, res Resolution) *RewardResult {
	start := o.now()
	result := &RewardResult{EventID: event.ID}
	var mu sync.Mutex

	for _, rerr := range res.Errors {
		result.Failures = append(result.Failures, RewardFailure{
			ParticipantID: rerr.ParticipantID, Step: StepResolve, Message: rerr.Reason, err: rerr,
		})
	}

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)

	for _, p := range res.Placements {
		p := p
		g.Go(func() error {
			o.rewardPlacement(ctx, event, p, result, &mu)
			return nil
		})
	}
	for _, p := range res.Eligible {
		p := p
		g.Go(func() error {
			o.checkBadges(ctx, event, p, result, &mu)
			return nil
		})
	}
	_ = g.Wait()

	if res.Champion != nil {
		o.recordRecentWinner(ctx, event, *res.Champion, result, &mu)
	}

	if o.broadcaster != nil && res.Champion != nil && (result.TrophiesCreated > 0 || result.RecentWinnerAdded) {
		o.broadcaster.PublishEvent(event.ID, brackets.MessageChampionCrowned, map[string]interface{}{
			"event_id":    event.ID,
			"event_name":  event.Name,
			"champion":    res.Champion,
			"final_score": event.FinalScore,
		})
	}

	metrics.RewardFailures.Add(float64(len(result.Failures)))
	metrics.RewardDuration.Observe(o.now().Sub(start).Seconds())

	logAttrs := []any{
		slog.String("event_id", event.ID),
		slog.Int("trophies_created", result.TrophiesCreated),
		slog.Int("badges_awarded", result.BadgesAwarded),
		slog.Bool("recent_winner_added", result.RecentWinnerAdded),
		slog.Int("failures", len(result.Failures)),
	}
	if result.Partial() {
		o.logger.Warn("event rewarded with failures", logAttrs...)
	} else {
		o.logger.Info("event rewarded", logAttrs...)
	}
	return result
}

func (o *RewardOrchestrator) rewardPlacement(ctx context.Context, event models.Event, p Placement, result *RewardResult, mu *sync.Mutex) {
	title := models.TrophyTitleRunnerUp
	if p.Rank == 1 {
		title = models.TrophyTitleWinner
	}
	trophy := &models.Trophy{
		ParticipantID: p.ParticipantID,
		EventID:       event.ID,
		EventName:     event.Name,
		ClubID:        event.ClubID,
		TeamID:        p.TeamID,
		Rank:          p.Rank,
		Title:         title,
	}

	created, err := o.trophies.CreateIfAbsent(ctx, trophy)
	if err != nil {
		o.fail(result, mu, p.ParticipantID, StepTrophy, err)
	} else if created {
		metrics.RewardsGranted.WithLabelValues("trophy").Inc()
		mu.Lock()
		result.TrophiesCreated++
		mu.Unlock()
		o.notify(ctx, p.ParticipantID, NotificationTrophyAwarded, NotificationPayload{
			EventID: event.ID, EventName: event.Name, ClubID: event.ClubID, Title: title, Rank: p.Rank,
		}, result, mu)
	}

	o.checkBadges(ctx, event, p, result, mu)
}

func (o *RewardOrchestrator) checkBadges(ctx context.Context, event models.Event, p Placement, result *RewardResult, mu *sync.Mutex) {
	awarded, err := o.badges.CheckAndAward(ctx, BadgeContext{ParticipantID: p.ParticipantID, Event: event, Rank: p.Rank})
	if err != nil {
		o.fail(result, mu, p.ParticipantID, StepBadge, err)
	}
	if len(awarded) == 0 {
		return
	}

	metrics.RewardsGranted.WithLabelValues("badge").Add(float64(len(awarded)))
	mu.Lock()
	result.BadgesAwarded += len(awarded)
	mu.Unlock()
	for _, kind := range awarded {
		o.notify(ctx, p.ParticipantID, NotificationBadgeAwarded, NotificationPayload{
			EventID: event.ID, EventName: event.Name, ClubID: event.ClubID, BadgeKind: string(kind), Rank: p.Rank,
		}, result, mu)
	}
}

func (o *RewardOrchestrator) recordRecentWinner(ctx context.Context, event models.Event, champion models.PlacementRef, result *RewardResult, mu *sync.Mutex) {
	entry := winnerEntry(event, champion, o.now().UTC())
	added := false
	_, err := repositories.TransactionalUpdate(ctx, o.clubs, event.ClubID, func(club models.Club) (models.Club, error) {
		next, err := PrependRecentWinner(club, entry)
		added = err == nil
		return next, err
	})
	if err != nil {
		o.fail(result, mu, champion.ParticipantID, StepRecentWinners, handleRepositoryError(err, "club %s", event.ClubID))
		return
	}
	result.RecentWinnerAdded = added
}

func (o *RewardOrchestrator) notify(ctx context.Context, userID string, kind NotificationKind, payload NotificationPayload, result *RewardResult, mu *sync.Mutex) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, userID, kind, payload); err != nil {
		metrics.NotificationFailures.Inc()
		mu.Lock()
		result.NotificationsFailed++
		mu.Unlock()
		o.logger.Warn("notification failed",
			slog.String("user_id", userID),
			slog.String("kind", string(kind)),
			slog.String("event_id", payload.EventID),
			slog.Any("error", err))
	}
}

func (o *RewardOrchestrator) fail(result *RewardResult, mu *sync.Mutex, participantID, step string, err error) {
	o.logger.Error("reward step failed",
		slog.String("event_id", result.EventID),
		slog.String("participant_id", participantID),
		slog.String("step", step),
		slog.Any("error", err))
	mu.Lock()
	result.Failures = append(result.Failures, RewardFailure{
		ParticipantID: participantID, Step: step, Message: err.Error(), err: err,
	})
	mu.Unlock()
}
