package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/club-events/repositories"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"
)

// CompletionReplayer re-runs the completion path for one event.
type CompletionReplayer interface {
	ReplayCompletion(ctx context.Context, eventID string) (*RewardResult, error)
}

type ReconcileSummary struct {
	Scanned  int `json:"scanned"`
	Rewarded int `json:"rewarded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Reconciler replays recent completions to pick up signals that were lost
// while no listener was connected.
type Reconciler struct {
	events      repositories.EventRepository
	replayer    CompletionReplayer
	lookback    time.Duration
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

func NewReconciler(events repositories.EventRepository, replayer CompletionReplayer, lookback time.Duration, concurrency int, logger *slog.Logger) *Reconciler {
	if concurrency <= 0 {
		concurrency = defaultRewardConcurrency
	}
	return &Reconciler{
		events:      events,
		replayer:    replayer,
		lookback:    lookback,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileSummary, error) {
	var summary ReconcileSummary

	since := r.now().Add(-r.lookback)
	events, err := r.events.ListCompletedSince(ctx, since)
	if err != nil {
		return summary, fmt.Errorf("reconcile: list completed events: %w", err)
	}
	summary.Scanned = len(events)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for _, e := range events {
		eventID := e.ID
		g.Go(func() error {
			result, err := r.replayer.ReplayCompletion(ctx, eventID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrNoChampion):
				summary.Skipped++
			case err != nil:
				summary.Failed++
				r.logger.Warn("reconcile: replay failed", slog.String("event_id", eventID), slog.Any("error", err))
			case result != nil && (result.TrophiesCreated > 0 || result.BadgesAwarded > 0 || result.RecentWinnerAdded):
				summary.Rewarded++
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("reconcile run finished",
		slog.Time("since", since),
		slog.Int("scanned", summary.Scanned),
		slog.Int("rewarded", summary.Rewarded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

// StartScheduler runs RunOnce every interval until the returned scheduler is shut down.
func (r *Reconciler) StartScheduler(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("reconcile run failed", slog.Any("error", err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register reconcile job: %w", err)
	}

	sched.Start()
	r.logger.Info("reconcile scheduler started", slog.Duration("interval", interval), slog.Duration("lookback", r.lookback))
	return sched, nil
}
