package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/club-events/models"
)

type countingRewarder struct {
	calls  int
	result *RewardResult
}

func (r *countingRewarder) Reward(_ context.Context, event models.Event, _ Resolution) *RewardResult {
	r.calls++
	if r.result != nil {
		return r.result
	}
	return &RewardResult{EventID: event.ID}
}

func eventWithStatus(status models.EventStatus) *models.Event {
	e := finalEvent()
	e.Status = status
	return &e
}

func TestHandleStatusChange(t *testing.T) {
	noChampion := eventWithStatus(models.EventStatusCompleted)
	noChampion.Champion, noChampion.RunnerUp, noChampion.Rankings = nil, nil, nil

	tests := []struct {
		name       string
		change     models.StatusChange
		wantReward bool
	}{
		{"playoffs to completed", models.StatusChange{Before: eventWithStatus(models.EventStatusPlayoffs), After: eventWithStatus(models.EventStatusCompleted)}, true},
		{"unknown before", models.StatusChange{After: eventWithStatus(models.EventStatusCompleted)}, true},
		{"completed to completed", models.StatusChange{Before: eventWithStatus(models.EventStatusCompleted), After: eventWithStatus(models.EventStatusCompleted)}, false},
		{"not completed", models.StatusChange{Before: eventWithStatus(models.EventStatusRegistration), After: eventWithStatus(models.EventStatusInProgress)}, false},
		{"no champion", models.StatusChange{Before: eventWithStatus(models.EventStatusPlayoffs), After: noChampion}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rewarder := &countingRewarder{}
			d := NewCompletionDetector(newMemEventRepo(), rewarder, discardLogger())

			result, err := d.HandleStatusChange(context.Background(), tt.change)
			if err != nil {
				t.Fatalf("HandleStatusChange: %v", err)
			}
			if got := rewarder.calls == 1; got != tt.wantReward {
				t.Fatalf("rewarded = %v, want %v", got, tt.wantReward)
			}
			if (result != nil) != tt.wantReward {
				t.Fatalf("result = %+v", result)
			}
		})
	}
}

func TestHandleStatusChangeWithoutEvent(t *testing.T) {
	d := NewCompletionDetector(newMemEventRepo(), &countingRewarder{}, discardLogger())
	_, err := d.HandleStatusChange(context.Background(), models.StatusChange{EventID: "e1"})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
}

func TestHandleStatusChangeReportsRetryableFailure(t *testing.T) {
	rewarder := &countingRewarder{result: &RewardResult{
		EventID:  "e1",
		Failures: []RewardFailure{{ParticipantID: "u1", Step: StepTrophy, Message: "down", err: errStoreDown}},
	}}
	d := NewCompletionDetector(newMemEventRepo(), rewarder, discardLogger())

	result, err := d.HandleStatusChange(context.Background(), models.StatusChange{After: eventWithStatus(models.EventStatusCompleted)})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want store error", err)
	}
	if result == nil || !result.Partial() {
		t.Fatalf("result = %+v", result)
	}
}

func TestReplayCompletion(t *testing.T) {
	completed := eventWithStatus(models.EventStatusCompleted)
	running := eventWithStatus(models.EventStatusInProgress)
	running.ID = "e2"
	empty := eventWithStatus(models.EventStatusCompleted)
	empty.ID = "e3"
	empty.Champion, empty.RunnerUp, empty.Rankings = nil, nil, nil

	rewarder := &countingRewarder{}
	d := NewCompletionDetector(newMemEventRepo(completed, running, empty), rewarder, discardLogger())
	ctx := context.Background()

	if _, err := d.ReplayCompletion(ctx, "e1"); err != nil {
		t.Fatalf("replay completed event: %v", err)
	}
	if rewarder.calls != 1 {
		t.Fatalf("rewarder calls = %d, want 1", rewarder.calls)
	}
	if _, err := d.ReplayCompletion(ctx, "e2"); !errors.Is(err, ErrEventNotCompleted) {
		t.Fatalf("running event err = %v", err)
	}
	if _, err := d.ReplayCompletion(ctx, "e3"); !errors.Is(err, ErrNoChampion) {
		t.Fatalf("event without champion err = %v", err)
	}
	if _, err := d.ReplayCompletion(ctx, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("missing event err = %v", err)
	}
}

func TestDetectorWithOrchestratorEndToEnd(t *testing.T) {
	f := newRewardFixture()
	d := NewCompletionDetector(newMemEventRepo(), f.orch, discardLogger())
	change := models.StatusChange{EventID: "e1", Before: eventWithStatus(models.EventStatusPlayoffs), After: eventWithStatus(models.EventStatusCompleted)}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := d.HandleStatusChange(ctx, change); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if f.trophies.count() != 3 || f.badges.count() != 8 {
		t.Fatalf("trophies = %d badges = %d after redelivery", f.trophies.count(), f.badges.count())
	}
	if club := f.clubs.snapshot("c1"); len(club.RecentWinners) != 1 {
		t.Fatalf("recent winners = %+v", club.RecentWinners)
	}
}

func TestMalformedChampionStillRewardsOthers(t *testing.T) {
	f := newRewardFixture()
	d := NewCompletionDetector(newMemEventRepo(), f.orch, discardLogger())

	after := eventWithStatus(models.EventStatusCompleted)
	broken := ref("a_b_c", "Broken", 1)
	after.Champion = &broken
	after.Rankings = []models.PlacementRef{broken, *after.RunnerUp, ref("u4", "Dee", 3)}

	result, err := d.HandleStatusChange(context.Background(), models.StatusChange{
		Before: eventWithStatus(models.EventStatusPlayoffs),
		After:  after,
	})
	if err != nil {
		t.Fatalf("HandleStatusChange: %v", err)
	}
	if result == nil {
		t.Fatal("malformed champion must not suppress the reward run")
	}
	for _, id := range []string{"u2", "u3"} {
		if _, ok := f.trophies.get(id, "e1"); !ok {
			t.Errorf("runner-up %s not rewarded", id)
		}
	}
	if !f.badges.has("u4", "e1", models.BadgeCompetitor) {
		t.Error("eligible participant u4 got no competitor badge")
	}
	if len(result.Failures) != 1 || result.Failures[0].ParticipantID != "a_b_c" || result.Failures[0].Step != StepResolve {
		t.Fatalf("failures = %+v, want one resolve failure for a_b_c", result.Failures)
	}
	if !errors.Is(result.Failures[0], ErrMalformedParticipantID) {
		t.Fatal("failure must wrap ErrMalformedParticipantID")
	}
	if club := f.clubs.snapshot("c1"); len(club.RecentWinners) != 0 {
		t.Fatalf("recent winners = %+v, want none without a valid champion", club.RecentWinners)
	}
	if len(f.broadcaster.messages) != 0 {
		t.Fatal("no champion must be crowned")
	}
}
