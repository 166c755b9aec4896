package models

import "time"

// RecentWinnersLimit bounds Club.RecentWinners.
const RecentWinnersLimit = 5

// Winner is one entry of a club's recent winners, most recent first.
type Winner struct {
	EventID         string    `json:"event_id"`
	EventName       string    `json:"event_name"`
	ParticipantID   string    `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	CompletedAt     time.Time `json:"completed_at"`
	FinalScore      *string   `json:"final_score,omitempty"`
}

type Club struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	RecentWinners []Winner  `json:"recent_winners" db:"recent_winners"`
	Version       int64     `json:"-" db:"version"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
