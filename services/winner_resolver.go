package services

import (
	"fmt"
	"strings"

	"github.com/Dosada05/club-events/models"
)

// teamNameSeparators split a doubles team name into its two members.
var teamNameSeparators = []string{" & ", " / "}

// Placement is one individual user owed a reward. Rank is 0 for unranked entries.
type Placement struct {
	ParticipantID   string  `json:"participant_id"`
	ParticipantName string  `json:"participant_name"`
	Rank            int     `json:"rank"`
	TeamID          *string `json:"team_id,omitempty"`
}

// ResolutionError marks a participant that could not be resolved.
type ResolutionError struct {
	ParticipantID string `json:"participant_id"`
	Reason        string `json:"reason"`
}

func (e ResolutionError) Error() string {
	return fmt.Sprintf("participant %q: %s", e.ParticipantID, e.Reason)
}

func (e ResolutionError) Unwrap() error {
	return ErrMalformedParticipantID
}

type Resolution struct {
	// Placements holds rank 1 and 2, with teams expanded to their members.
	Placements []Placement
	// Eligible are ranked or unranked entries outside the top two.
	Eligible []Placement
	// Champion is the rank-1 entry as stored, before team expansion.
	// It stays nil when the entry is malformed.
	Champion *models.PlacementRef
	// ChampionDeclared is set when the event names a rank-1 entry at all,
	// valid or not.
	ChampionDeclared bool
	Errors           []ResolutionError
}

func (r Resolution) HasChampion() bool {
	return r.Champion != nil
}

// ResolveWinners derives the placed and eligible participants of an event.
// champion/runnerUp take priority; rankings ranks 1 and 2 are used only when
// both are absent.
func ResolveWinners(event models.Event) Resolution {
	var (
		res    Resolution
		placed = make(map[string]bool)
	)

	type top struct {
		ref  models.PlacementRef
		rank int
	}
	var tops []top
	if event.Champion != nil || event.RunnerUp != nil {
		if event.Champion != nil {
			tops = append(tops, top{*event.Champion, 1})
		}
		if event.RunnerUp != nil {
			tops = append(tops, top{*event.RunnerUp, 2})
		}
	} else {
		for _, r := range event.Rankings {
			if r.Rank != nil && (*r.Rank == 1 || *r.Rank == 2) {
				tops = append(tops, top{r, *r.Rank})
			}
		}
	}

	for _, t := range tops {
		if t.rank == 1 {
			res.ChampionDeclared = true
		}
		members, rerr := expandParticipant(t.ref, t.rank)
		if rerr != nil {
			res.Errors = append(res.Errors, *rerr)
			continue
		}
		if t.rank == 1 && res.Champion == nil {
			champion := t.ref
			champion.Rank = intPtr(1)
			res.Champion = &champion
		}
		for _, m := range members {
			if placed[m.ParticipantID] {
				continue
			}
			placed[m.ParticipantID] = true
			res.Placements = append(res.Placements, m)
		}
	}

	for _, r := range event.Rankings {
		if r.Rank != nil && (*r.Rank == 1 || *r.Rank == 2) {
			continue
		}
		rank := 0
		if r.Rank != nil {
			rank = *r.Rank
		}
		members, rerr := expandParticipant(r, rank)
		if rerr != nil {
			res.Errors = append(res.Errors, *rerr)
			continue
		}
		for _, m := range members {
			if placed[m.ParticipantID] {
				continue
			}
			placed[m.ParticipantID] = true
			res.Eligible = append(res.Eligible, m)
		}
	}
	return res
}

// expandParticipant splits a doubles id "a_b" into two placements of the same rank.
func expandParticipant(ref models.PlacementRef, rank int) ([]Placement, *ResolutionError) {
	id := strings.TrimSpace(ref.ParticipantID)
	if id == "" {
		return nil, &ResolutionError{ParticipantID: ref.ParticipantID, Reason: "empty participant id"}
	}
	if !strings.Contains(id, models.TeamSeparator) {
		return []Placement{{ParticipantID: id, ParticipantName: ref.ParticipantName, Rank: rank}}, nil
	}

	ids := strings.Split(id, models.TeamSeparator)
	if len(ids) != 2 || ids[0] == "" || ids[1] == "" {
		return nil, &ResolutionError{ParticipantID: id,
			Reason: fmt.Sprintf("team id must join exactly two user ids with %q", models.TeamSeparator)}
	}

	names := splitTeamName(ref.ParticipantName)
	teamID := id
	return []Placement{
		{ParticipantID: ids[0], ParticipantName: names[0], Rank: rank, TeamID: &teamID},
		{ParticipantID: ids[1], ParticipantName: names[1], Rank: rank, TeamID: &teamID},
	}, nil
}

func splitTeamName(name string) [2]string {
	for _, sep := range teamNameSeparators {
		parts := strings.Split(name, sep)
		if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" && strings.TrimSpace(parts[1]) != "" {
			return [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
		}
	}
	return [2]string{name, name}
}
