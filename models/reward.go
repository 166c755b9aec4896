package models

import "time"

const (
	TrophyTitleWinner   = "Winner"
	TrophyTitleRunnerUp = "Runner-up"
)

// Trophy is unique per (ParticipantID, EventID).
type Trophy struct {
	ID            string    `json:"id" db:"id"`
	ParticipantID string    `json:"participant_id" db:"participant_id"`
	EventID       string    `json:"event_id" db:"event_id"`
	EventName     string    `json:"event_name" db:"event_name"`
	ClubID        string    `json:"club_id" db:"club_id"`
	TeamID        *string   `json:"team_id,omitempty" db:"team_id"`
	Rank          int       `json:"rank" db:"rank"`
	Title         string    `json:"title" db:"title"`
	AwardedAt     time.Time `json:"awarded_at" db:"awarded_at"`
}

type BadgeKind string

const (
	BadgeChampion    BadgeKind = "champion"
	BadgeFinalist    BadgeKind = "finalist"
	BadgeCompetitor  BadgeKind = "competitor"
	BadgeTripleCrown BadgeKind = "triple_crown"
)

// Badge is unique per (ParticipantID, EventID, Kind).
type Badge struct {
	ID            string    `json:"id" db:"id"`
	ParticipantID string    `json:"participant_id" db:"participant_id"`
	EventID       string    `json:"event_id" db:"event_id"`
	Kind          BadgeKind `json:"kind" db:"kind"`
	AwardedAt     time.Time `json:"awarded_at" db:"awarded_at"`
}
