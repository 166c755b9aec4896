package models

import (
	"strings"
	"time"
)

// EventStatus mirrors the status column of the events table.
type EventStatus string

const (
	EventStatusScheduled    EventStatus = "scheduled"
	EventStatusRegistration EventStatus = "registration"
	EventStatusInProgress   EventStatus = "in_progress"
	EventStatusPlayoffs     EventStatus = "playoffs"
	EventStatusCompleted    EventStatus = "completed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusScheduled, EventStatusRegistration, EventStatusInProgress, EventStatusPlayoffs, EventStatusCompleted:
		return true
	}
	return false
}

type EventKind string

const (
	EventKindTournament EventKind = "tournament"
	EventKindLeague     EventKind = "league"
)

// TeamSeparator joins the two user ids of a doubles entry into one participant id.
const TeamSeparator = "_"

// PlacementRef is where a participant finished, as stored on the event.
type PlacementRef struct {
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	Rank            *int   `json:"rank,omitempty"`
}

// IsTeam reports whether the participant id is a composite doubles id.
func (p PlacementRef) IsTeam() bool {
	return strings.Contains(p.ParticipantID, TeamSeparator)
}

// Event is a tournament or a league run by a club.
type Event struct {
	ID          string         `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Kind        EventKind      `json:"kind" db:"kind"`
	Status      EventStatus    `json:"status" db:"status"`
	ClubID      string         `json:"club_id" db:"club_id"`
	ClubName    string         `json:"club_name" db:"club_name"`
	Champion    *PlacementRef  `json:"champion,omitempty" db:"champion"`
	RunnerUp    *PlacementRef  `json:"runner_up,omitempty" db:"runner_up"`
	Rankings    []PlacementRef `json:"rankings,omitempty" db:"rankings"`
	FinalScore  *string        `json:"final_score,omitempty" db:"final_score"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// StatusChange is one delivery of an event write: the document before and after it.
// Before is nil when the prior state is unknown.
type StatusChange struct {
	EventID string `json:"event_id"`
	Before  *Event `json:"before,omitempty"`
	After   *Event `json:"after,omitempty"`
}
