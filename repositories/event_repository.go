package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/club-events/models"
)

var ErrEventNotFound = errors.New("event not found")

type EventRepository interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListCompletedSince(ctx context.Context, since time.Time) ([]*models.Event, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const eventSelect = `
	SELECT e.id, e.name, e.kind, e.status, e.club_id, COALESCE(c.name, ''),
	       e.champion, e.runner_up, e.rankings, e.final_score, e.completed_at, e.updated_at
	FROM events e
	LEFT JOIN clubs c ON c.id = e.club_id`

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e                            models.Event
		champion, runnerUp, rankings []byte
		finalScore                   sql.NullString
		completedAt                  sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Kind, &e.Status, &e.ClubID, &e.ClubName,
		&champion, &runnerUp, &rankings, &finalScore, &completedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSON(champion, &e.Champion); err != nil {
		return nil, fmt.Errorf("failed to decode champion of event %s: %w", e.ID, err)
	}
	if err := decodeJSON(runnerUp, &e.RunnerUp); err != nil {
		return nil, fmt.Errorf("failed to decode runner-up of event %s: %w", e.ID, err)
	}
	if err := decodeJSON(rankings, &e.Rankings); err != nil {
		return nil, fmt.Errorf("failed to decode rankings of event %s: %w", e.ID, err)
	}
	if finalScore.Valid {
		e.FinalScore = &finalScore.String
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	return &e, nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event %s: %w", id, err)
	}
	return e, nil
}

func (r *postgresEventRepository) ListCompletedSince(ctx context.Context, since time.Time) ([]*models.Event, error) {
	query := eventSelect + `
		WHERE e.status = $1 AND e.completed_at >= $2
		ORDER BY e.completed_at ASC, e.id ASC`
	rows, err := r.db.QueryContext(ctx, query, models.EventStatusCompleted, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", scanErr)
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during event rows iteration: %w", err)
	}
	return events, nil
}
