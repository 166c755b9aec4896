package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/club-events/brackets"
	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
	"github.com/Dosada05/club-events/services"
	"github.com/go-chi/chi/v5"
)

type stubLinker struct {
	gotRound int
	report   *services.LinkReport
	err      error
}

func (s *stubLinker) LinkRounds(_ context.Context, eventID string, round int) (*services.LinkReport, error) {
	s.gotRound = round
	return s.report, s.err
}

func (s *stubLinker) LinkEvent(_ context.Context, eventID string) (*services.LinkReport, error) {
	s.gotRound = -1
	return s.report, s.err
}

type stubRepairer struct {
	report *services.RepairReport
	err    error
}

func (s *stubRepairer) Repair(context.Context, string) (*services.RepairReport, error) {
	return s.report, s.err
}

type stubCompletion struct {
	changes []models.StatusChange
	result  *services.RewardResult
	err     error
}

func (s *stubCompletion) HandleStatusChange(_ context.Context, change models.StatusChange) (*services.RewardResult, error) {
	s.changes = append(s.changes, change)
	return s.result, s.err
}

func (s *stubCompletion) ReplayCompletion(context.Context, string) (*services.RewardResult, error) {
	return s.result, s.err
}

type stubClubs map[string]*models.Club

func (s stubClubs) GetByID(_ context.Context, id string) (*models.Club, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, repositories.ErrClubNotFound
}

type stubTrophies []*models.Trophy

func (s stubTrophies) ListByEvent(context.Context, string) ([]*models.Trophy, error) { return s, nil }

type stubBadges []*models.Badge

func (s stubBadges) ListByParticipant(context.Context, string) ([]*models.Badge, error) {
	return s, nil
}

func serve(t *testing.T, method, pattern, target string, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestLinkHandler(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		linker    *stubLinker
		wantCode  int
		wantRound int
	}{
		{
			name:      "single round",
			target:    "/events/e1/bracket/link?round=2",
			linker:    &stubLinker{report: &services.LinkReport{EventID: "e1", Linked: 4}},
			wantCode:  http.StatusOK,
			wantRound: 2,
		},
		{
			name:      "whole event",
			target:    "/events/e1/bracket/link",
			linker:    &stubLinker{report: &services.LinkReport{EventID: "e1"}},
			wantCode:  http.StatusOK,
			wantRound: -1,
		},
		{
			name:     "bad round parameter",
			target:   "/events/e1/bracket/link?round=abc",
			linker:   &stubLinker{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:      "invalid round",
			target:    "/events/e1/bracket/link?round=0",
			linker:    &stubLinker{err: fmt.Errorf("%w: 0", services.ErrInvalidRound)},
			wantCode:  http.StatusBadRequest,
			wantRound: 0,
		},
		{
			name:      "round missing",
			target:    "/events/e1/bracket/link?round=7",
			linker:    &stubLinker{err: services.ErrRoundNotFound},
			wantCode:  http.StatusNotFound,
			wantRound: 7,
		},
		{
			name:   "malformed bracket returns report",
			target: "/events/e1/bracket/link?round=1",
			linker: &stubLinker{
				report: &services.LinkReport{EventID: "e1", StructuralDefects: []brackets.StructuralDefect{{EventID: "e1", Round: 1}}},
				err:    services.ErrMalformedBracket,
			},
			wantCode:  http.StatusUnprocessableEntity,
			wantRound: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBracketHandler(tt.linker, &stubRepairer{})
			rec := serve(t, http.MethodPost, "/events/{eventID}/bracket/link", tt.target, "", h.LinkHandler)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusBadRequest || tt.linker.err != nil {
				if tt.linker.gotRound != tt.wantRound {
					t.Errorf("round = %d, want %d", tt.linker.gotRound, tt.wantRound)
				}
			}
			if tt.wantCode == http.StatusUnprocessableEntity {
				body := decodeBody(t, rec)
				if _, ok := body["report"]; !ok {
					t.Errorf("422 response must carry the report: %v", body)
				}
			}
		})
	}
}

func TestRepairHandler(t *testing.T) {
	h := NewBracketHandler(&stubLinker{}, &stubRepairer{report: &services.RepairReport{EventID: "e1", WinnersFilled: 2}})
	rec := serve(t, http.MethodPost, "/events/{eventID}/bracket/repair", "/events/e1/bracket/repair", "", h.RepairHandler)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}

	h = NewBracketHandler(&stubLinker{}, &stubRepairer{
		report: &services.RepairReport{EventID: "e1"},
		err:    services.ErrDataIntegrity,
	})
	rec = serve(t, http.MethodPost, "/events/{eventID}/bracket/repair", "/events/e1/bracket/repair", "", h.RepairHandler)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", rec.Code)
	}

	h = NewBracketHandler(&stubLinker{}, &stubRepairer{err: services.ErrEventNotFound})
	rec = serve(t, http.MethodPost, "/events/{eventID}/bracket/repair", "/events/e1/bracket/repair", "", h.RepairHandler)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestStatusChangeHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		stub     *stubCompletion
		wantCode int
		wantSeen int
	}{
		{
			name:     "completion rewarded",
			body:     `{"event_id":"e1","before":{"id":"e1","status":"in_progress"},"after":{"id":"e1","status":"completed"}}`,
			stub:     &stubCompletion{result: &services.RewardResult{EventID: "e1", TrophiesCreated: 2}},
			wantCode: http.StatusOK,
			wantSeen: 1,
		},
		{
			name:     "ignored change",
			body:     `{"after":{"id":"e1","status":"playoffs"}}`,
			stub:     &stubCompletion{},
			wantCode: http.StatusAccepted,
			wantSeen: 1,
		},
		{
			name:     "missing after",
			body:     `{"event_id":"e1"}`,
			stub:     &stubCompletion{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown status",
			body:     `{"after":{"id":"e1","status":"archived"}}`,
			stub:     &stubCompletion{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown field",
			body:     `{"after":{"id":"e1","status":"completed"},"extra":1}`,
			stub:     &stubCompletion{},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "partial reward",
			body: `{"after":{"id":"e1","status":"completed"}}`,
			stub: &stubCompletion{
				result: &services.RewardResult{EventID: "e1"},
				err:    fmt.Errorf("trophy step failed"),
			},
			wantCode: http.StatusUnprocessableEntity,
			wantSeen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventHandler(tt.stub)
			rec := serve(t, http.MethodPost, "/internal/status-changes", "/internal/status-changes", tt.body, h.StatusChangeHandler)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if len(tt.stub.changes) != tt.wantSeen {
				t.Fatalf("handler saw %d changes, want %d", len(tt.stub.changes), tt.wantSeen)
			}
			if tt.wantSeen > 0 && tt.stub.changes[0].EventID != "e1" {
				t.Errorf("event id = %q, want e1", tt.stub.changes[0].EventID)
			}
		})
	}
}

func TestReplayHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not completed", services.ErrEventNotCompleted, http.StatusConflict},
		{"no champion", services.ErrNoChampion, http.StatusConflict},
		{"missing event", services.ErrEventNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventHandler(&stubCompletion{err: tt.err})
			rec := serve(t, http.MethodPost, "/events/{eventID}/completion/replay", "/events/e1/completion/replay", "", h.ReplayHandler)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRecentWinnersHandler(t *testing.T) {
	clubs := stubClubs{
		"c1": {ID: "c1", RecentWinners: []models.Winner{{EventID: "e1", ParticipantID: "u1"}}},
		"c2": {ID: "c2"},
	}
	h := NewClubHandler(clubs, stubTrophies{}, stubBadges{})

	rec := serve(t, http.MethodGet, "/clubs/{clubID}/recent-winners", "/clubs/c1/recent-winners", "", h.RecentWinnersHandler)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if winners, _ := body["recent_winners"].([]interface{}); len(winners) != 1 {
		t.Fatalf("recent_winners = %v", body["recent_winners"])
	}

	rec = serve(t, http.MethodGet, "/clubs/{clubID}/recent-winners", "/clubs/c2/recent-winners", "", h.RecentWinnersHandler)
	body = decodeBody(t, rec)
	if winners, ok := body["recent_winners"].([]interface{}); !ok || len(winners) != 0 {
		t.Fatalf("empty club must return [], got %v", body["recent_winners"])
	}

	rec = serve(t, http.MethodGet, "/clubs/{clubID}/recent-winners", "/clubs/missing/recent-winners", "", h.RecentWinnersHandler)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestRewardListings(t *testing.T) {
	h := NewClubHandler(stubClubs{},
		stubTrophies{{ID: "t1", EventID: "e1", ParticipantID: "u1", Rank: 1}},
		stubBadges{{ID: "b1", ParticipantID: "u1", Kind: models.BadgeChampion}})

	rec := serve(t, http.MethodGet, "/events/{eventID}/trophies", "/events/e1/trophies", "", h.EventTrophiesHandler)
	if rec.Code != http.StatusOK {
		t.Fatalf("trophies code = %d", rec.Code)
	}
	if trophies, _ := decodeBody(t, rec)["trophies"].([]interface{}); len(trophies) != 1 {
		t.Fatalf("trophies = %v", trophies)
	}

	rec = serve(t, http.MethodGet, "/participants/{participantID}/badges", "/participants/u1/badges", "", h.ParticipantBadgesHandler)
	if rec.Code != http.StatusOK {
		t.Fatalf("badges code = %d", rec.Code)
	}
	if badges, _ := decodeBody(t, rec)["badges"].([]interface{}); len(badges) != 1 {
		t.Fatalf("badges = %v", badges)
	}
}
