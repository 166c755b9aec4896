package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	ErrEventNotFound = errors.New("event not found")
	ErrClubNotFound  = errors.New("club not found")
	ErrMatchNotFound = errors.New("match not found")

	// Bracket errors
	ErrMalformedBracket = errors.New("bracket is structurally malformed")
	ErrDataIntegrity    = errors.New("bracket data integrity violation")
	ErrInvalidRound     = errors.New("round number must be 1 or greater")
	ErrRoundNotFound    = errors.New("round has no matches")

	// Reward errors
	ErrMalformedParticipantID = errors.New("malformed participant id")
	ErrEventNotCompleted      = errors.New("event is not completed")
	ErrNoChampion             = errors.New("event has no rank-1 placement")
	ErrNotificationFailed     = errors.New("notification delivery failed")
)
