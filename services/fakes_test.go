package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/repositories"
	"github.com/Dosada05/club-events/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errStoreDown = errors.New("store unavailable")

type memTrophyRepo struct {
	mu       sync.Mutex
	trophies map[string]models.Trophy
	failFor  map[string]bool
	seq      int64
}

func newMemTrophyRepo() *memTrophyRepo {
	return &memTrophyRepo{trophies: make(map[string]models.Trophy), failFor: make(map[string]bool)}
}

func (r *memTrophyRepo) CreateIfAbsent(_ context.Context, t *models.Trophy) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[t.ParticipantID] {
		return false, errStoreDown
	}
	key := t.ParticipantID + "|" + t.EventID
	if _, ok := r.trophies[key]; ok {
		return false, nil
	}
	if t.AwardedAt.IsZero() {
		r.seq++
		t.AwardedAt = time.Unix(r.seq, 0).UTC()
	}
	r.trophies[key] = *t
	return true, nil
}

func (r *memTrophyRepo) ListTitleEventIDs(_ context.Context, participantID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var titles []models.Trophy
	for _, t := range r.trophies {
		if t.ParticipantID == participantID && t.Rank == 1 {
			titles = append(titles, t)
		}
	}
	sort.Slice(titles, func(i, j int) bool {
		if !titles[i].AwardedAt.Equal(titles[j].AwardedAt) {
			return titles[i].AwardedAt.Before(titles[j].AwardedAt)
		}
		return titles[i].EventID < titles[j].EventID
	})
	ids := make([]string, 0, len(titles))
	for _, t := range titles {
		ids = append(ids, t.EventID)
	}
	return ids, nil
}

func (r *memTrophyRepo) ListByEvent(_ context.Context, eventID string) ([]*models.Trophy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Trophy
	for _, t := range r.trophies {
		if t.EventID == eventID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

func (r *memTrophyRepo) get(participantID, eventID string) (models.Trophy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trophies[participantID+"|"+eventID]
	return t, ok
}

func (r *memTrophyRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trophies)
}

type memBadgeRepo struct {
	mu      sync.Mutex
	badges  map[string]models.Badge
	failFor map[string]bool
}

func newMemBadgeRepo() *memBadgeRepo {
	return &memBadgeRepo{badges: make(map[string]models.Badge)}
}

func (r *memBadgeRepo) AwardIfAbsent(_ context.Context, b *models.Badge) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[b.ParticipantID] {
		return false, errStoreDown
	}
	key := b.ParticipantID + "|" + b.EventID + "|" + string(b.Kind)
	if _, ok := r.badges[key]; ok {
		return false, nil
	}
	r.badges[key] = *b
	return true, nil
}

func (r *memBadgeRepo) ListByParticipant(_ context.Context, participantID string) ([]*models.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Badge
	for _, b := range r.badges {
		if b.ParticipantID == participantID {
			b := b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r *memBadgeRepo) setFailing(participantID string, failing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor == nil {
		r.failFor = make(map[string]bool)
	}
	r.failFor[participantID] = failing
}

func (r *memBadgeRepo) countKind(participantID string, kind models.BadgeKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.badges {
		if b.ParticipantID == participantID && b.Kind == kind {
			n++
		}
	}
	return n
}

func (r *memBadgeRepo) has(participantID, eventID string, kind models.BadgeKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.badges[participantID+"|"+eventID+"|"+string(kind)]
	return ok
}

func (r *memBadgeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.badges)
}

// memClubRepo is a versioned document store. beforeSwap, when set, runs once
// ahead of the next compare-and-swap so a test can slip in a competing writer.
type memClubRepo struct {
	mu         sync.Mutex
	clubs      map[string]models.Club
	swaps      int
	conflicts  int
	beforeSwap func()
}

func newMemClubRepo(clubs ...models.Club) *memClubRepo {
	r := &memClubRepo{clubs: make(map[string]models.Club)}
	for _, c := range clubs {
		r.clubs[c.ID] = c
	}
	return r
}

func (r *memClubRepo) GetByID(_ context.Context, id string) (*models.Club, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clubs[id]
	if !ok {
		return nil, repositories.ErrClubNotFound
	}
	c.RecentWinners = append([]models.Winner(nil), c.RecentWinners...)
	return &c, nil
}

func (r *memClubRepo) CompareAndSwapRecentWinners(_ context.Context, clubID string, expected int64, winners []models.Winner) (int64, error) {
	r.mu.Lock()
	hook := r.beforeSwap
	r.beforeSwap = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clubs[clubID]
	if !ok || c.Version != expected {
		r.conflicts++
		return 0, repositories.ErrClubVersionConflict
	}
	c.RecentWinners = append([]models.Winner(nil), winners...)
	c.Version++
	r.clubs[clubID] = c
	r.swaps++
	return c.Version, nil
}

func (r *memClubRepo) snapshot(id string) models.Club {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clubs[id]
}

type memEventRepo struct {
	events map[string]*models.Event
}

func newMemEventRepo(events ...*models.Event) *memEventRepo {
	r := &memEventRepo{events: make(map[string]*models.Event)}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *memEventRepo) GetByID(_ context.Context, id string) (*models.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEventRepo) ListCompletedSince(_ context.Context, since time.Time) ([]*models.Event, error) {
	var out []*models.Event
	for _, e := range r.events {
		if e.Status == models.EventStatusCompleted && e.CompletedAt != nil && !e.CompletedAt.Before(since) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memMatchRepo counts only batches that actually write, like the Postgres store.
type memMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	batches int
	updated int
}

func newMemMatchRepo(matches []*models.Match) *memMatchRepo {
	r := &memMatchRepo{matches: make(map[string]*models.Match)}
	for _, m := range matches {
		cp := *m
		r.matches[m.ID] = &cp
	}
	return r
}

func (r *memMatchRepo) GetByID(_ context.Context, _, matchID string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMatchRepo) ListByRound(_ context.Context, eventID string, round int) ([]*models.Match, error) {
	all, _ := r.ListByEvent(context.Background(), eventID)
	var out []*models.Match
	for _, m := range all {
		if m.RoundNumber == round {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMatchRepo) ListByEvent(_ context.Context, eventID string) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.EventID == eventID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].OrderInRound < out[j].OrderInRound
	})
	return out, nil
}

func (r *memMatchRepo) BatchUpdate(_ context.Context, _ string, updates []repositories.MatchUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range updates {
		if _, ok := r.matches[u.MatchID]; !ok {
			return repositories.ErrMatchNotFound
		}
	}
	for _, u := range updates {
		m := r.matches[u.MatchID]
		if u.Winner != nil {
			w := *u.Winner
			m.Winner = &w
		}
		if u.NextMatch != nil {
			n := *u.NextMatch
			m.NextMatch = &n
		}
	}
	r.batches++
	r.updated += len(updates)
	return nil
}

func (r *memMatchRepo) get(id string) *models.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matches[id]
}

type sentNotification struct {
	UserID  string
	Kind    NotificationKind
	Payload NotificationPayload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, kind NotificationKind, payload NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type publishedMessage struct {
	EventID string
	Type    string
	Payload interface{}
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (b *recordingBroadcaster) PublishEvent(eventID, messageType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, publishedMessage{eventID, messageType, payload})
}

type recordingArchiver struct {
	scopes []string
}

func (a *recordingArchiver) Archive(_ context.Context, scope string, _ interface{}) (*storage.UploadResult, error) {
	a.scopes = append(a.scopes, scope)
	return &storage.UploadResult{Key: "repair-reports/" + scope + "/x.json"}, nil
}
