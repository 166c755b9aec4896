package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
)

// tripleCrownTitles is the lifetime rank-1 trophy count that earns triple_crown.
// The badge is stored under the event of that title, so it exists at most once.
const tripleCrownTitles = 3

// BadgeContext is what the badge policy sees for one participant of a completed
// event. Rank is 0 for participants outside the top two with no recorded rank.
type BadgeContext struct {
	ParticipantID string
	Event         models.Event
	Rank          int
}

type BadgeChecker interface {
	// CheckAndAward returns only the badge kinds newly awarded by this call.
	CheckAndAward(ctx context.Context, bc BadgeContext) ([]models.BadgeKind, error)
}

type BadgeService struct {
	badges   repositories.BadgeRepository
	trophies repositories.TrophyRepository
	logger   *slog.Logger
}

func NewBadgeService(badges repositories.BadgeRepository, trophies repositories.TrophyRepository, logger *slog.Logger) *BadgeService {
	return &BadgeService{badges: badges, trophies: trophies, logger: logger}
}

func (s *BadgeService) CheckAndAward(ctx context.Context, bc BadgeContext) ([]models.BadgeKind, error) {
	badges, err := s.eligibleBadges(ctx, bc)
	if err != nil {
		return nil, err
	}

	var (
		awarded []models.BadgeKind
		errs    []error
	)
	for _, badge := range badges {
		created, err := s.badges.AwardIfAbsent(ctx, badge)
		if err != nil {
			errs = append(errs, fmt.Errorf("award %s: %w", badge.Kind, err))
			continue
		}
		if created {
			awarded = append(awarded, badge.Kind)
		}
	}
	return awarded, errors.Join(errs...)
}

func (s *BadgeService) eligibleBadges(ctx context.Context, bc BadgeContext) ([]*models.Badge, error) {
	badge := func(eventID string, kind models.BadgeKind) *models.Badge {
		return &models.Badge{ParticipantID: bc.ParticipantID, EventID: eventID, Kind: kind}
	}

	badges := []*models.Badge{badge(bc.Event.ID, models.BadgeCompetitor)}
	switch bc.Rank {
	case 1:
		badges = append(badges, badge(bc.Event.ID, models.BadgeChampion))
		titles, err := s.trophies.ListTitleEventIDs(ctx, bc.ParticipantID)
		if err != nil {
			return nil, fmt.Errorf("list titles of %s: %w", bc.ParticipantID, err)
		}
		// triple_crown всегда привязан к событию третьего титула
		if len(titles) >= tripleCrownTitles {
			badges = append(badges, badge(titles[tripleCrownTitles-1], models.BadgeTripleCrown))
		}
	case 2:
		badges = append(badges, badge(bc.Event.ID, models.BadgeFinalist))
	}
	return badges, nil
}
