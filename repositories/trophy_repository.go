package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/club-events/models"
	"github.com/google/uuid"
)

type TrophyRepository interface {
	// CreateIfAbsent inserts the trophy unless one already exists for the
	// same participant and event. created is false for the existing case.
	CreateIfAbsent(ctx context.Context, trophy *models.Trophy) (created bool, err error)
	// ListTitleEventIDs returns the events of the participant's rank-1 trophies,
	// oldest award first.
	ListTitleEventIDs(ctx context.Context, participantID string) ([]string, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Trophy, error)
}

type postgresTrophyRepository struct {
	db *sql.DB
}

func NewPostgresTrophyRepository(db *sql.DB) TrophyRepository {
	return &postgresTrophyRepository{db: db}
}

func (r *postgresTrophyRepository) CreateIfAbsent(ctx context.Context, trophy *models.Trophy) (bool, error) {
	if trophy.ID == "" {
		trophy.ID = uuid.NewString()
	}
	if trophy.AwardedAt.IsZero() {
		trophy.AwardedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO trophies (id, participant_id, event_id, event_name, club_id, team_id, rank, title, awarded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ON CONSTRAINT trophies_participant_event_key DO NOTHING`
	result, err := r.db.ExecContext(ctx, query,
		trophy.ID, trophy.ParticipantID, trophy.EventID, trophy.EventName, trophy.ClubID,
		trophy.TeamID, trophy.Rank, trophy.Title, trophy.AwardedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert trophy for %s/%s: %w", trophy.ParticipantID, trophy.EventID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *postgresTrophyRepository) ListTitleEventIDs(ctx context.Context, participantID string) ([]string, error) {
	query := `
		SELECT event_id FROM trophies
		WHERE participant_id = $1 AND rank = 1
		ORDER BY awarded_at ASC, event_id ASC`
	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query titles for %s: %w", participantID, err)
	}
	defer rows.Close()

	var eventIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan title row: %w", err)
		}
		eventIDs = append(eventIDs, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during title rows iteration: %w", err)
	}
	return eventIDs, nil
}

func (r *postgresTrophyRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Trophy, error) {
	query := `
		SELECT id, participant_id, event_id, event_name, club_id, team_id, rank, title, awarded_at
		FROM trophies WHERE event_id = $1
		ORDER BY rank ASC, participant_id ASC`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trophies for event %s: %w", eventID, err)
	}
	defer rows.Close()

	trophies := make([]*models.Trophy, 0)
	for rows.Next() {
		var (
			t      models.Trophy
			teamID sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.ParticipantID, &t.EventID, &t.EventName, &t.ClubID,
			&teamID, &t.Rank, &t.Title, &t.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trophy row: %w", err)
		}
		if teamID.Valid {
			t.TeamID = &teamID.String
		}
		trophies = append(trophies, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during trophy rows iteration: %w", err)
	}
	return trophies, nil
}
