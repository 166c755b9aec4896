package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCanceled   MatchStatus = "canceled"
)

// Slot names one of the two player positions of a match.
type Slot string

const (
	SlotPlayer1 Slot = "player1"
	SlotPlayer2 Slot = "player2"
)

func (s Slot) Valid() bool {
	return s == SlotPlayer1 || s == SlotPlayer2
}

// ParticipantRef points at whoever occupies a match slot: a user or a doubles team.
type ParticipantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MatchScore struct {
	Winner Slot   `json:"winner"`
	Detail string `json:"detail,omitempty"`
}

// NextMatch is the slot in round+1 that this match's winner advances into.
type NextMatch struct {
	MatchID  string `json:"match_id"`
	Position Slot   `json:"position"`
}

type Match struct {
	ID           string          `json:"id" db:"id"`
	EventID      string          `json:"event_id" db:"event_id"`
	RoundNumber  int             `json:"round_number" db:"round_number"`
	OrderInRound int             `json:"order_in_round" db:"order_in_round"`
	Status       MatchStatus     `json:"status" db:"status"`
	Player1      *ParticipantRef `json:"player1,omitempty" db:"player1"`
	Player2      *ParticipantRef `json:"player2,omitempty" db:"player2"`
	Winner       *ParticipantRef `json:"winner,omitempty" db:"winner"`
	Score        *MatchScore     `json:"score,omitempty" db:"score"`
	NextMatch    *NextMatch      `json:"next_match,omitempty" db:"next_match"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// IsResolved reports whether the match has a winner recorded.
func (m *Match) IsResolved() bool {
	return m.Winner != nil
}

// PlayerIn returns the occupant of the given slot, nil when the slot is empty.
func (m *Match) PlayerIn(slot Slot) *ParticipantRef {
	switch slot {
	case SlotPlayer1:
		return m.Player1
	case SlotPlayer2:
		return m.Player2
	}
	return nil
}
