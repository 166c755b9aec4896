package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/services"
)

type completionService interface {
	HandleStatusChange(ctx context.Context, change models.StatusChange) (*services.RewardResult, error)
	ReplayCompletion(ctx context.Context, eventID string) (*services.RewardResult, error)
}

type EventHandler struct {
	completion completionService
}

func NewEventHandler(completion completionService) *EventHandler {
	return &EventHandler{completion: completion}
}

// StatusChangeHandler обрабатывает POST /internal/status-changes
func (h *EventHandler) StatusChangeHandler(w http.ResponseWriter, r *http.Request) {
	var change models.StatusChange
	if err := readJSON(w, r, &change); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if change.After == nil {
		badRequestResponse(w, r, fmt.Errorf("after must be provided"))
		return
	}
	if change.EventID == "" {
		change.EventID = change.After.ID
	}
	if !change.After.Status.Valid() {
		badRequestResponse(w, r, fmt.Errorf("unknown event status %q", change.After.Status))
		return
	}

	result, err := h.completion.HandleStatusChange(r.Context(), change)
	h.writeRewardResult(w, r, result, err)
}

// ReplayHandler обрабатывает POST /admin/events/{eventID}/completion/replay
func (h *EventHandler) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	logAdminAction(r, "completion_replay", eventID)

	result, err := h.completion.ReplayCompletion(r.Context(), eventID)
	h.writeRewardResult(w, r, result, err)
}

func (h *EventHandler) writeRewardResult(w http.ResponseWriter, r *http.Request, result *services.RewardResult, err error) {
	if err != nil {
		if result != nil {
			unprocessableResponse(w, r, "result", result, err)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if result == nil {
		if werr := writeJSON(w, http.StatusAccepted, jsonResponse{"rewarded": false}, nil); werr != nil {
			serverErrorResponse(w, r, werr)
		}
		return
	}
	if werr := writeJSON(w, http.StatusOK, jsonResponse{"rewarded": true, "result": result}, nil); werr != nil {
		serverErrorResponse(w, r, werr)
	}
}
