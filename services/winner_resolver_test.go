package services

import (
	"errors"
	"testing"

	"github.com/Dosada05/club-events/models"
)

func ref(id, name string, rank int) models.PlacementRef {
	return models.PlacementRef{ParticipantID: id, ParticipantName: name, Rank: intPtr(rank)}
}

func unranked(id string) models.PlacementRef {
	return models.PlacementRef{ParticipantID: id, ParticipantName: id}
}

func placementIDs(ps []Placement) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ParticipantID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestResolveWinnersPrefersChampionOverRankings(t *testing.T) {
	champion := ref("u1", "Ann", 1)
	event := models.Event{
		ID:       "e1",
		Champion: &champion,
		Rankings: []models.PlacementRef{ref("u9", "Stale", 1), ref("u8", "Old", 2), ref("u7", "Third", 3)},
	}

	res := ResolveWinners(event)
	if got := placementIDs(res.Placements); !equalIDs(got, []string{"u1"}) {
		t.Fatalf("placements = %v, want [u1]", got)
	}
	if res.Champion == nil || res.Champion.ParticipantID != "u1" {
		t.Fatalf("champion = %+v", res.Champion)
	}
	if got := placementIDs(res.Eligible); !equalIDs(got, []string{"u7"}) {
		t.Fatalf("eligible = %v, want [u7]", got)
	}
}

func TestResolveWinnersFallsBackToRankings(t *testing.T) {
	event := models.Event{
		ID:       "e1",
		Rankings: []models.PlacementRef{ref("u2", "Bob", 2), ref("u1", "Ann", 1), unranked("u3")},
	}

	res := ResolveWinners(event)
	if len(res.Placements) != 2 {
		t.Fatalf("placements = %+v", res.Placements)
	}
	ranks := map[string]int{}
	for _, p := range res.Placements {
		ranks[p.ParticipantID] = p.Rank
	}
	if ranks["u1"] != 1 || ranks["u2"] != 2 {
		t.Fatalf("ranks = %v", ranks)
	}
	if res.Champion == nil || res.Champion.ParticipantID != "u1" {
		t.Fatalf("champion = %+v", res.Champion)
	}
	if got := placementIDs(res.Eligible); !equalIDs(got, []string{"u3"}) {
		t.Fatalf("eligible = %v", got)
	}
	if res.Eligible[0].Rank != 0 {
		t.Fatalf("unranked eligible rank = %d, want 0", res.Eligible[0].Rank)
	}
}

func TestResolveWinnersExpandsTeams(t *testing.T) {
	runnerUp := ref("u2_u3", "Bo & Cy", 2)
	champion := ref("u1", "Ann", 1)
	res := ResolveWinners(models.Event{ID: "e1", Champion: &champion, RunnerUp: &runnerUp})

	if got := placementIDs(res.Placements); !equalIDs(got, []string{"u1", "u2", "u3"}) {
		t.Fatalf("placements = %v", got)
	}
	for _, p := range res.Placements[1:] {
		if p.Rank != 2 {
			t.Errorf("%s rank = %d, want 2", p.ParticipantID, p.Rank)
		}
		if p.TeamID == nil || *p.TeamID != "u2_u3" {
			t.Errorf("%s team = %v, want u2_u3", p.ParticipantID, p.TeamID)
		}
	}
	if res.Placements[1].ParticipantName != "Bo" || res.Placements[2].ParticipantName != "Cy" {
		t.Fatalf("names = %q, %q", res.Placements[1].ParticipantName, res.Placements[2].ParticipantName)
	}
}

func TestResolveWinnersKeepsTeamChampionUnexpanded(t *testing.T) {
	champion := ref("u4_u5", "Di / Ed", 1)
	res := ResolveWinners(models.Event{ID: "e1", Champion: &champion})
	if res.Champion == nil || res.Champion.ParticipantID != "u4_u5" || res.Champion.ParticipantName != "Di / Ed" {
		t.Fatalf("champion = %+v", res.Champion)
	}
	if got := placementIDs(res.Placements); !equalIDs(got, []string{"u4", "u5"}) {
		t.Fatalf("placements = %v", got)
	}
}

func TestResolveWinnersMalformedTeamID(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"three members", "a_b_c"},
		{"empty first", "_b"},
		{"empty second", "a_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			champion := ref("u1", "Ann", 1)
			runnerUp := ref(tt.id, "Broken", 2)
			res := ResolveWinners(models.Event{ID: "e1", Champion: &champion, RunnerUp: &runnerUp})

			if len(res.Errors) != 1 || res.Errors[0].ParticipantID != tt.id {
				t.Fatalf("errors = %+v", res.Errors)
			}
			if !errors.Is(res.Errors[0], ErrMalformedParticipantID) {
				t.Fatalf("error does not wrap ErrMalformedParticipantID")
			}
			if got := placementIDs(res.Placements); !equalIDs(got, []string{"u1"}) {
				t.Fatalf("other placements must survive, got %v", got)
			}
		})
	}
}

func TestResolveWinnersWithoutRankOne(t *testing.T) {
	runnerUp := ref("u2", "Bob", 2)
	res := ResolveWinners(models.Event{ID: "e1", RunnerUp: &runnerUp})
	if res.HasChampion() || res.ChampionDeclared {
		t.Fatalf("champion = %+v, want none", res.Champion)
	}
	if len(res.Placements) != 1 {
		t.Fatalf("placements = %+v", res.Placements)
	}
}

func TestSplitTeamName(t *testing.T) {
	tests := map[string][2]string{
		"Bo & Cy":   {"Bo", "Cy"},
		"Di / Ed":   {"Di", "Ed"},
		"The Twins": {"The Twins", "The Twins"},
		"A & B & C": {"A & B & C", "A & B & C"},
	}
	for in, want := range tests {
		if got := splitTeamName(in); got != want {
			t.Errorf("splitTeamName(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolveWinnersMalformedChampionIsDeclared(t *testing.T) {
	champion := ref("a_b_c", "Broken", 1)
	runnerUp := ref("u2", "Bob", 2)
	res := ResolveWinners(models.Event{ID: "e1", Champion: &champion, RunnerUp: &runnerUp})
	if res.HasChampion() {
		t.Fatalf("malformed champion must not resolve, got %+v", res.Champion)
	}
	if !res.ChampionDeclared {
		t.Fatal("champion entry was present and must count as declared")
	}
	if got := placementIDs(res.Placements); !equalIDs(got, []string{"u2"}) {
		t.Fatalf("placements = %v", got)
	}
}
