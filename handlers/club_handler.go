package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
)

type clubReader interface {
	GetByID(ctx context.Context, id string) (*models.Club, error)
}

type trophyLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]*models.Trophy, error)
}

type badgeLister interface {
	ListByParticipant(ctx context.Context, participantID string) ([]*models.Badge, error)
}

// ClubHandler serves the read side: recent winners, trophies and badges.
type ClubHandler struct {
	clubs    clubReader
	trophies trophyLister
	badges   badgeLister
}

func NewClubHandler(clubs clubReader, trophies trophyLister, badges badgeLister) *ClubHandler {
	return &ClubHandler{clubs: clubs, trophies: trophies, badges: badges}
}

// RecentWinnersHandler обрабатывает GET /clubs/{clubID}/recent-winners
func (h *ClubHandler) RecentWinnersHandler(w http.ResponseWriter, r *http.Request) {
	clubID, err := getIDFromURL(r, "clubID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	club, err := h.clubs.GetByID(r.Context(), clubID)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			notFoundResponse(w, r)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	winners := club.RecentWinners
	if winners == nil {
		winners = []models.Winner{}
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"club_id": club.ID, "recent_winners": winners}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EventTrophiesHandler обрабатывает GET /events/{eventID}/trophies
func (h *ClubHandler) EventTrophiesHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	trophies, err := h.trophies.ListByEvent(r.Context(), eventID)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"trophies": trophies}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ParticipantBadgesHandler обрабатывает GET /participants/{participantID}/badges
func (h *ClubHandler) ParticipantBadgesHandler(w http.ResponseWriter, r *http.Request) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	badges, err := h.badges.ListByParticipant(r.Context(), participantID)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"badges": badges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
