// club-events/brackets/bracket.go
package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/club-events/models"
)

// Destination maps the match at index i (0-based, seed order) of round R
// to its match index in round R+1 and the slot its winner takes there.
func Destination(index int) (int, models.Slot) {
	if index%2 == 0 {
		return index / 2, models.SlotPlayer1
	}
	return index / 2, models.SlotPlayer2
}

// RequiredDestinations is how many matches round R+1 needs to absorb n matches of round R.
func RequiredDestinations(n int) int {
	return (n + 1) / 2
}

type Round struct {
	Number  int
	Matches []*models.Match
}

// Bracket is a read-only snapshot of an event's matches grouped by round.
// Rounds are sorted by number and matches inside a round by seed order.
type Bracket struct {
	EventID string
	Rounds  []Round
}

// New builds a bracket snapshot. Matches are copied so later planning never
// touches the caller's values.
func New(eventID string, matches []*models.Match) *Bracket {
	byRound := make(map[int][]*models.Match)
	for _, m := range matches {
		if m == nil {
			continue
		}
		cp := *m
		byRound[cp.RoundNumber] = append(byRound[cp.RoundNumber], &cp)
	}

	numbers := make([]int, 0, len(byRound))
	for n := range byRound {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	b := &Bracket{EventID: eventID, Rounds: make([]Round, 0, len(numbers))}
	for _, n := range numbers {
		ms := byRound[n]
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].OrderInRound != ms[j].OrderInRound {
				return ms[i].OrderInRound < ms[j].OrderInRound
			}
			if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
				return ms[i].CreatedAt.Before(ms[j].CreatedAt)
			}
			return ms[i].ID < ms[j].ID
		})
		b.Rounds = append(b.Rounds, Round{Number: n, Matches: ms})
	}
	return b
}

// Round returns the round with the given number.
func (b *Bracket) Round(number int) (Round, bool) {
	for _, r := range b.Rounds {
		if r.Number == number {
			return r, true
		}
	}
	return Round{}, false
}

// LastRound is the highest round number present, 0 for an empty bracket.
func (b *Bracket) LastRound() int {
	if len(b.Rounds) == 0 {
		return 0
	}
	return b.Rounds[len(b.Rounds)-1].Number
}

// StructuralDefect is a round pair whose destination round cannot absorb the source round.
type StructuralDefect struct {
	EventID            string `json:"event_id"`
	Round              int    `json:"round"`
	SourceMatches      int    `json:"source_matches"`
	DestinationMatches int    `json:"destination_matches"`
	Required           int    `json:"required"`
}

func (d StructuralDefect) Error() string {
	return fmt.Sprintf("event %s: round %d has %d matches, round %d needs %d but has %d",
		d.EventID, d.Round, d.SourceMatches, d.Round+1, d.Required, d.DestinationMatches)
}

// LinkAssignment is the computed nextMatch pointer for one source match.
// Current holds the pointer stored on the match at snapshot time.
type LinkAssignment struct {
	MatchID string            `json:"match_id"`
	Round   int               `json:"round"`
	Index   int               `json:"index"`
	Next    models.NextMatch  `json:"next"`
	Current *models.NextMatch `json:"current,omitempty"`
}

// Agrees reports whether the stored pointer already equals the computed one.
func (a LinkAssignment) Agrees() bool {
	return a.Current != nil && *a.Current == a.Next
}

// LinkPair computes pointers from src into dst. dst must be round src.Number+1.
// If dst is too small nothing is assigned and the defect is returned.
func LinkPair(eventID string, src, dst Round) ([]LinkAssignment, *StructuralDefect) {
	required := RequiredDestinations(len(src.Matches))
	if dst.Number != src.Number+1 || len(dst.Matches) < required {
		defect := &StructuralDefect{
			EventID:            eventID,
			Round:              src.Number,
			SourceMatches:      len(src.Matches),
			DestinationMatches: len(dst.Matches),
			Required:           required,
		}
		if dst.Number != src.Number+1 {
			defect.DestinationMatches = 0
		}
		return nil, defect
	}

	out := make([]LinkAssignment, 0, len(src.Matches))
	for i, m := range src.Matches {
		di, slot := Destination(i)
		out = append(out, LinkAssignment{
			MatchID: m.ID,
			Round:   src.Number,
			Index:   i,
			Next:    models.NextMatch{MatchID: dst.Matches[di].ID, Position: slot},
			Current: m.NextMatch,
		})
	}
	return out, nil
}

// LinkPlan computes pointers for every adjacent round pair present.
// The last round never links forward. A round followed by a gap is a defect.
func (b *Bracket) LinkPlan() ([]LinkAssignment, []StructuralDefect) {
	var (
		links   []LinkAssignment
		defects []StructuralDefect
	)
	for i := 0; i < len(b.Rounds)-1; i++ {
		src := b.Rounds[i]
		dst := b.Rounds[i+1]
		if dst.Number != src.Number+1 {
			dst = Round{Number: src.Number + 1}
		}
		pair, defect := LinkPair(b.EventID, src, dst)
		if defect != nil {
			defects = append(defects, *defect)
			continue
		}
		links = append(links, pair...)
	}
	return links, defects
}
