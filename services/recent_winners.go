package services

import (
	"time"

	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
)

// PrependRecentWinner puts w at the head of the club's recent winners and keeps
// at most models.RecentWinnersLimit entries. The input club is not modified.
// It returns repositories.ErrNoChange when w is already recorded.
func PrependRecentWinner(club models.Club, w models.Winner) (models.Club, error) {
	for _, existing := range club.RecentWinners {
		if existing.EventID == w.EventID && existing.ParticipantID == w.ParticipantID {
			return club, repositories.ErrNoChange
		}
	}

	size := len(club.RecentWinners) + 1
	if size > models.RecentWinnersLimit {
		size = models.RecentWinnersLimit
	}
	winners := make([]models.Winner, 0, size)
	winners = append(winners, w)
	for _, existing := range club.RecentWinners {
		if len(winners) == size {
			break
		}
		winners = append(winners, existing)
	}

	club.RecentWinners = winners
	return club, nil
}

// winnerEntry builds the recent-winners entry for an event's champion.
func winnerEntry(event models.Event, champion models.PlacementRef, now time.Time) models.Winner {
	completedAt := now
	if event.CompletedAt != nil {
		completedAt = *event.CompletedAt
	}
	return models.Winner{
		EventID:         event.ID,
		EventName:       event.Name,
		ParticipantID:   champion.ParticipantID,
		ParticipantName: champion.ParticipantName,
		CompletedAt:     completedAt,
		FinalScore:      event.FinalScore,
	}
}
