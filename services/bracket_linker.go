package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/club-events/brackets"
	"github.com/Dosada05/club-events/metrics"
	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
	"golang.org/x/sync/errgroup"
)

// LinkReport describes one linking pass.
type LinkReport struct {
	EventID           string                      `json:"event_id"`
	Linked            int                         `json:"linked"`
	Unchanged         int                         `json:"unchanged"`
	StructuralDefects []brackets.StructuralDefect `json:"structural_defects,omitempty"`
}

type BracketLinker struct {
	matches repositories.MatchRepository
	logger  *slog.Logger
}

func NewBracketLinker(matches repositories.MatchRepository, logger *slog.Logger) *BracketLinker {
	return &BracketLinker{matches: matches, logger: logger}
}

// LinkRounds sets nextMatch on every match of round into round+1. Both rounds
// are read before anything is written. A malformed pair is left untouched.
// The final round has no destination and is rejected with ErrInvalidRound.
func (l *BracketLinker) LinkRounds(ctx context.Context, eventID string, round int) (*LinkReport, error) {
	if round < 1 {
		return nil, ErrInvalidRound
	}

	var src, dst []*models.Match
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		src, err = l.matches.ListByRound(gCtx, eventID, round)
		return handleRepositoryError(err, "list round %d of event %s", round, eventID)
	})
	g.Go(func() error {
		var err error
		dst, err = l.matches.ListByRound(gCtx, eventID, round+1)
		return handleRepositoryError(err, "list round %d of event %s", round+1, eventID)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("event %s round %d: %w", eventID, round, ErrRoundNotFound)
	}

	if len(dst) == 0 {
		final, err := l.isFinalRound(ctx, eventID, round)
		if err != nil {
			return nil, err
		}
		if final {
			return nil, fmt.Errorf("%w: round %d is the final round of event %s and links nowhere", ErrInvalidRound, round, eventID)
		}
	}

	bracket := brackets.New(eventID, append(src, dst...))
	srcRound, _ := bracket.Round(round)
	dstRound, ok := bracket.Round(round + 1)
	if !ok {
		dstRound = brackets.Round{Number: round + 1}
	}

	report := &LinkReport{EventID: eventID}
	links, defect := brackets.LinkPair(eventID, srcRound, dstRound)
	if defect != nil {
		l.reportDefect(*defect)
		report.StructuralDefects = append(report.StructuralDefects, *defect)
		return report, fmt.Errorf("%w: %s", ErrMalformedBracket, defect.Error())
	}

	if err := l.apply(ctx, eventID, links, report); err != nil {
		return nil, err
	}
	return report, nil
}

// LinkEvent links every adjacent pair of rounds present in the event. Pairs
// that are malformed are reported and skipped; the others are still written.
func (l *BracketLinker) LinkEvent(ctx context.Context, eventID string) (*LinkReport, error) {
	matches, err := l.matches.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, handleRepositoryError(err, "list matches of event %s", eventID)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrRoundNotFound)
	}

	links, defects := brackets.New(eventID, matches).LinkPlan()
	report := &LinkReport{EventID: eventID, StructuralDefects: defects}
	for _, d := range defects {
		l.reportDefect(d)
	}

	if err := l.apply(ctx, eventID, links, report); err != nil {
		return nil, err
	}
	if len(defects) > 0 {
		return report, fmt.Errorf("%w: %d round pair(s) skipped", ErrMalformedBracket, len(defects))
	}
	return report, nil
}

func (l *BracketLinker) apply(ctx context.Context, eventID string, links []brackets.LinkAssignment, report *LinkReport) error {
	updates := make([]repositories.MatchUpdate, 0, len(links))
	for _, a := range links {
		if a.Agrees() {
			report.Unchanged++
			continue
		}
		next := a.Next
		updates = append(updates, repositories.MatchUpdate{MatchID: a.MatchID, NextMatch: &next})
	}

	if err := l.matches.BatchUpdate(ctx, eventID, updates); err != nil {
		return handleRepositoryError(err, "write links of event %s", eventID)
	}
	report.Linked = len(updates)
	metrics.BracketWrites.WithLabelValues("next_match").Add(float64(len(updates)))

	l.logger.Info("bracket linked",
		slog.String("event_id", eventID),
		slog.Int("linked", report.Linked),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("defects", len(report.StructuralDefects)))
	return nil
}

// isFinalRound отличает последний раунд от пропуска в сетке.
func (l *BracketLinker) isFinalRound(ctx context.Context, eventID string, round int) (bool, error) {
	matches, err := l.matches.ListByEvent(ctx, eventID)
	if err != nil {
		return false, handleRepositoryError(err, "list matches of event %s", eventID)
	}
	for _, m := range matches {
		if m.RoundNumber > round {
			return false, nil
		}
	}
	return true, nil
}

func (l *BracketLinker) reportDefect(d brackets.StructuralDefect) {
	metrics.BracketIssues.WithLabelValues("structural").Inc()
	l.logger.Warn("malformed bracket round, skipping",
		slog.String("event_id", d.EventID),
		slog.Int("round", d.Round),
		slog.Int("source_matches", d.SourceMatches),
		slog.Int("destination_matches", d.DestinationMatches),
		slog.Int("required", d.Required))
}
