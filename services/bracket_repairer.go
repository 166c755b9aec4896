package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/club-events/brackets"
	"github.com/Dosada05/club-events/metrics"
	"github.com/Dosada05/club-events/repositories"
	"github.com/Dosada05/club-events/storage"
)

// ReportArchiver keeps repair reports that need manual follow-up.
type ReportArchiver interface {
	Archive(ctx context.Context, scope string, report interface{}) (*storage.UploadResult, error)
}

type RepairReport struct {
	EventID           string                      `json:"event_id"`
	WinnersFilled     int                         `json:"winners_filled"`
	LinksFilled       int                         `json:"links_filled"`
	IntegrityIssues   []brackets.IntegrityIssue   `json:"integrity_issues,omitempty"`
	StructuralDefects []brackets.StructuralDefect `json:"structural_defects,omitempty"`
	ArchivedAt        string                      `json:"archived_at,omitempty"`
	RepairedAt        time.Time                   `json:"repaired_at"`
}

// Writes is the number of matches changed by the repair.
func (r *RepairReport) Writes() int {
	return r.WinnersFilled + r.LinksFilled
}

func (r *RepairReport) HasIssues() bool {
	return len(r.IntegrityIssues) > 0 || len(r.StructuralDefects) > 0
}

type BracketRepairer struct {
	matches     repositories.MatchRepository
	archiver    ReportArchiver
	broadcaster EventBroadcaster
	logger      *slog.Logger
	now         func() time.Time
}

// NewBracketRepairer accepts a nil archiver and a nil broadcaster.
func NewBracketRepairer(matches repositories.MatchRepository, archiver ReportArchiver, broadcaster EventBroadcaster, logger *slog.Logger) *BracketRepairer {
	return &BracketRepairer{
		matches:     matches,
		archiver:    archiver,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// Repair backfills missing winners and nextMatch pointers from one snapshot of
// the event's matches and writes them in a single batch. Running it on a
// consistent bracket writes nothing.
func (r *BracketRepairer) Repair(ctx context.Context, eventID string) (*RepairReport, error) {
	matches, err := r.matches.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, handleRepositoryError(err, "load bracket of event %s", eventID)
	}

	plan := brackets.New(eventID, matches).RepairPlan()
	report := &RepairReport{
		EventID:           eventID,
		IntegrityIssues:   plan.IntegrityIssues,
		StructuralDefects: plan.StructuralDefects,
		RepairedAt:        r.now().UTC(),
	}

	updates := mergeRepairUpdates(plan, report)
	if err := r.matches.BatchUpdate(ctx, eventID, updates); err != nil {
		return nil, handleRepositoryError(err, "write repair of event %s", eventID)
	}

	metrics.BracketWrites.WithLabelValues("winner").Add(float64(report.WinnersFilled))
	metrics.BracketWrites.WithLabelValues("next_match").Add(float64(report.LinksFilled))
	metrics.BracketIssues.WithLabelValues("integrity").Add(float64(len(report.IntegrityIssues)))
	metrics.BracketIssues.WithLabelValues("structural").Add(float64(len(report.StructuralDefects)))

	for _, issue := range report.IntegrityIssues {
		r.logger.Warn("bracket integrity issue",
			slog.String("event_id", eventID),
			slog.String("match_id", issue.MatchID),
			slog.Int("round", issue.Round),
			slog.String("reason", issue.Reason))
	}
	for _, d := range report.StructuralDefects {
		r.logger.Warn("malformed bracket round", slog.String("event_id", eventID), slog.String("defect", d.Error()))
	}

	if report.HasIssues() && r.archiver != nil {
		if res, err := r.archiver.Archive(ctx, eventID, report); err != nil {
			r.logger.Error("failed to archive repair report", slog.String("event_id", eventID), slog.Any("error", err))
		} else {
			report.ArchivedAt = res.Key
		}
	}

	if report.Writes() > 0 && r.broadcaster != nil {
		r.broadcaster.PublishEvent(eventID, brackets.MessageBracketRepaired, report)
	}

	r.logger.Info("bracket repaired",
		slog.String("event_id", eventID),
		slog.Int("winners_filled", report.WinnersFilled),
		slog.Int("links_filled", report.LinksFilled),
		slog.Int("integrity_issues", len(report.IntegrityIssues)),
		slog.Int("structural_defects", len(report.StructuralDefects)))

	return report, report.Err()
}

// Err is non-nil when parts of the bracket were left for manual review.
// The fixable parts have already been written.
func (r *RepairReport) Err() error {
	var errs []error
	if len(r.IntegrityIssues) > 0 {
		errs = append(errs, fmt.Errorf("%w: %d match(es) need manual review", ErrDataIntegrity, len(r.IntegrityIssues)))
	}
	if len(r.StructuralDefects) > 0 {
		errs = append(errs, fmt.Errorf("%w: %d round pair(s) cannot be linked", ErrMalformedBracket, len(r.StructuralDefects)))
	}
	return errors.Join(errs...)
}

// mergeRepairUpdates folds winner and link fixes into one update per match, in plan order.
func mergeRepairUpdates(plan brackets.RepairPlan, report *RepairReport) []repositories.MatchUpdate {
	var (
		updates []repositories.MatchUpdate
		index   = make(map[string]int)
	)
	at := func(matchID string) *repositories.MatchUpdate {
		if i, ok := index[matchID]; ok {
			return &updates[i]
		}
		index[matchID] = len(updates)
		updates = append(updates, repositories.MatchUpdate{MatchID: matchID})
		return &updates[len(updates)-1]
	}

	for _, w := range plan.Winners {
		winner := w.Winner
		at(w.MatchID).Winner = &winner
		report.WinnersFilled++
	}
	for _, l := range plan.Links {
		next := l.Next
		at(l.MatchID).NextMatch = &next
		report.LinksFilled++
	}
	return updates
}
