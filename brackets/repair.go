package brackets

import (
	"fmt"

	"github.com/Dosada05/club-events/models"
)

// IntegrityIssue is a match whose stored data contradicts itself and
// cannot be fixed without a human.
type IntegrityIssue struct {
	MatchID string `json:"match_id"`
	Round   int    `json:"round"`
	Reason  string `json:"reason"`
}

func (i IntegrityIssue) Error() string {
	return fmt.Sprintf("match %s (round %d): %s", i.MatchID, i.Round, i.Reason)
}

// WinnerFill sets a missing winner from the recorded score.
type WinnerFill struct {
	MatchID string                `json:"match_id"`
	Round   int                   `json:"round"`
	Winner  models.ParticipantRef `json:"winner"`
}

// RepairPlan is everything a repair pass would write, computed from one snapshot.
type RepairPlan struct {
	EventID           string             `json:"event_id"`
	Winners           []WinnerFill       `json:"winners,omitempty"`
	Links             []LinkAssignment   `json:"links,omitempty"`
	IntegrityIssues   []IntegrityIssue   `json:"integrity_issues,omitempty"`
	StructuralDefects []StructuralDefect `json:"structural_defects,omitempty"`
}

// Empty reports whether applying the plan would write nothing.
func (p RepairPlan) Empty() bool {
	return len(p.Winners) == 0 && len(p.Links) == 0
}

// HasIssues reports whether anything needs manual attention.
func (p RepairPlan) HasIssues() bool {
	return len(p.IntegrityIssues) > 0 || len(p.StructuralDefects) > 0
}

// RepairPlan derives missing winners from scores and missing nextMatch
// pointers from the pairing rule. It only fills gaps: a stored pointer that
// disagrees with the rule is reported as an IntegrityIssue, never rewritten.
func (b *Bracket) RepairPlan() RepairPlan {
	plan := RepairPlan{EventID: b.EventID}

	for _, r := range b.Rounds {
		for _, m := range r.Matches {
			fill, issue := backfillWinner(m)
			if issue != nil {
				plan.IntegrityIssues = append(plan.IntegrityIssues, *issue)
			}
			if fill != nil {
				plan.Winners = append(plan.Winners, *fill)
			}
		}
	}

	links, defects := b.LinkPlan()
	plan.StructuralDefects = defects
	for _, l := range links {
		switch {
		case l.Agrees():
			continue
		case l.Current != nil:
			plan.IntegrityIssues = append(plan.IntegrityIssues, IntegrityIssue{MatchID: l.MatchID, Round: l.Round,
				Reason: fmt.Sprintf("nextMatch is %s/%s but seed order gives %s/%s",
					l.Current.MatchID, l.Current.Position, l.Next.MatchID, l.Next.Position)})
		default:
			plan.Links = append(plan.Links, l)
		}
	}
	return plan
}

func backfillWinner(m *models.Match) (*WinnerFill, *IntegrityIssue) {
	if m.Winner != nil {
		if !occupies(m, m.Winner.ID) {
			return nil, &IntegrityIssue{MatchID: m.ID, Round: m.RoundNumber,
				Reason: fmt.Sprintf("winner %q is neither player1 nor player2", m.Winner.ID)}
		}
		return nil, nil
	}
	if m.Status != models.MatchStatusCompleted || m.Score == nil || m.Score.Winner == "" {
		return nil, nil
	}
	if !m.Score.Winner.Valid() {
		return nil, &IntegrityIssue{MatchID: m.ID, Round: m.RoundNumber,
			Reason: fmt.Sprintf("score names unknown winner slot %q", m.Score.Winner)}
	}
	p := m.PlayerIn(m.Score.Winner)
	if p == nil || p.ID == "" {
		return nil, &IntegrityIssue{MatchID: m.ID, Round: m.RoundNumber,
			Reason: fmt.Sprintf("score winner is %s but that slot is empty", m.Score.Winner)}
	}
	return &WinnerFill{MatchID: m.ID, Round: m.RoundNumber, Winner: *p}, nil
}

func occupies(m *models.Match, participantID string) bool {
	return (m.Player1 != nil && m.Player1.ID == participantID) ||
		(m.Player2 != nil && m.Player2.ID == participantID)
}
