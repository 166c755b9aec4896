package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/club-events/services"
)

type bracketLinker interface {
	LinkRounds(ctx context.Context, eventID string, round int) (*services.LinkReport, error)
	LinkEvent(ctx context.Context, eventID string) (*services.LinkReport, error)
}

type bracketRepairer interface {
	Repair(ctx context.Context, eventID string) (*services.RepairReport, error)
}

type BracketHandler struct {
	linker   bracketLinker
	repairer bracketRepairer
}

func NewBracketHandler(linker bracketLinker, repairer bracketRepairer) *BracketHandler {
	return &BracketHandler{linker: linker, repairer: repairer}
}

// LinkHandler обрабатывает POST /admin/events/{eventID}/bracket/link[?round=N]
func (h *BracketHandler) LinkHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	logAdminAction(r, "bracket_link", eventID)

	var report *services.LinkReport
	if roundStr := r.URL.Query().Get("round"); roundStr != "" {
		round, convErr := strconv.Atoi(roundStr)
		if convErr != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid round query parameter: %q", roundStr))
			return
		}
		report, err = h.linker.LinkRounds(r.Context(), eventID, round)
	} else {
		report, err = h.linker.LinkEvent(r.Context(), eventID)
	}

	if err != nil {
		if report != nil {
			unprocessableResponse(w, r, "report", report, err)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RepairHandler обрабатывает POST /admin/events/{eventID}/bracket/repair
func (h *BracketHandler) RepairHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	logAdminAction(r, "bracket_repair", eventID)

	report, err := h.repairer.Repair(r.Context(), eventID)
	if err != nil {
		if report != nil {
			unprocessableResponse(w, r, "report", report, err)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
