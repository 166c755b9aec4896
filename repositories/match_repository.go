package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/club-events/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchEventInvalid = errors.New("match event conflict or invalid")
)

// MatchUpdate carries the fields a repair or link pass may set. Nil fields are left alone.
type MatchUpdate struct {
	MatchID   string
	Winner    *models.ParticipantRef
	NextMatch *models.NextMatch
}

type MatchRepository interface {
	GetByID(ctx context.Context, eventID, matchID string) (*models.Match, error)
	ListByRound(ctx context.Context, eventID string, round int) ([]*models.Match, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Match, error)
	BatchUpdate(ctx context.Context, eventID string, updates []MatchUpdate) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, event_id, round_number, order_in_round, status,
	player1, player2, winner, score, next_match, created_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                                      models.Match
		p1, p2, winner, score, nextMatch []byte
	)
	if err := row.Scan(&m.ID, &m.EventID, &m.RoundNumber, &m.OrderInRound, &m.Status,
		&p1, &p2, &winner, &score, &nextMatch, &m.CreatedAt); err != nil {
		return nil, err
	}
	decoders := []struct {
		raw []byte
		dst interface{}
	}{
		{p1, &m.Player1}, {p2, &m.Player2}, {winner, &m.Winner}, {score, &m.Score}, {nextMatch, &m.NextMatch},
	}
	for _, d := range decoders {
		if err := decodeJSON(d.raw, d.dst); err != nil {
			return nil, fmt.Errorf("failed to decode match %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, eventID, matchID string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE event_id = $1 AND id = $2`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, eventID, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s/%s: %w", eventID, matchID, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, eventID string, round int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE event_id = $1 AND round_number = $2
		ORDER BY order_in_round ASC, created_at ASC, id ASC`
	return r.list(ctx, query, eventID, round)
}

func (r *postgresMatchRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE event_id = $1
		ORDER BY round_number ASC, order_in_round ASC, created_at ASC, id ASC`
	return r.list(ctx, query, eventID)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

// BatchUpdate applies all updates in one transaction. An empty batch never touches the database.
func (r *postgresMatchRepository) BatchUpdate(ctx context.Context, eventID string, updates []MatchUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE matches
			SET winner = COALESCE($1::jsonb, winner),
			    next_match = COALESCE($2::jsonb, next_match)
			WHERE event_id = $3 AND id = $4`)
		if err != nil {
			return fmt.Errorf("BatchUpdate failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, u := range updates {
			winner, err := jsonParam(u.Winner)
			if err != nil {
				return fmt.Errorf("BatchUpdate: encode winner for match %s: %w", u.MatchID, err)
			}
			next, err := jsonParam(u.NextMatch)
			if err != nil {
				return fmt.Errorf("BatchUpdate: encode next match for match %s: %w", u.MatchID, err)
			}
			result, err := stmt.ExecContext(ctx, winner, next, eventID, u.MatchID)
			if err != nil {
				return handleMatchError(fmt.Errorf("BatchUpdate failed for match %s: %w", u.MatchID, err))
			}
			if err := checkAffectedRows(result, ErrMatchNotFound); err != nil {
				return fmt.Errorf("match %s: %w", u.MatchID, err)
			}
		}
		return nil
	})
}

func handleMatchError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint == "matches_event_id_fkey" {
		return ErrMatchEventInvalid
	}
	return err
}
