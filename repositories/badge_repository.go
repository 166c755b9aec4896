package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/club-events/models"
	"github.com/google/uuid"
)

type BadgeRepository interface {
	// AwardIfAbsent reports whether the badge was newly inserted.
	AwardIfAbsent(ctx context.Context, badge *models.Badge) (bool, error)
	ListByParticipant(ctx context.Context, participantID string) ([]*models.Badge, error)
}

type postgresBadgeRepository struct {
	db *sql.DB
}

func NewPostgresBadgeRepository(db *sql.DB) BadgeRepository {
	return &postgresBadgeRepository{db: db}
}

func (r *postgresBadgeRepository) AwardIfAbsent(ctx context.Context, badge *models.Badge) (bool, error) {
	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	if badge.AwardedAt.IsZero() {
		badge.AwardedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO badges (id, participant_id, event_id, kind, awarded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT badges_participant_event_kind_key DO NOTHING`,
		badge.ID, badge.ParticipantID, badge.EventID, badge.Kind, badge.AwardedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert badge %s for %s: %w", badge.Kind, badge.ParticipantID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *postgresBadgeRepository) ListByParticipant(ctx context.Context, participantID string) ([]*models.Badge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, participant_id, event_id, kind, awarded_at
		FROM badges WHERE participant_id = $1
		ORDER BY awarded_at DESC, kind ASC`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges for %s: %w", participantID, err)
	}
	defer rows.Close()

	badges := make([]*models.Badge, 0)
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.ParticipantID, &b.EventID, &b.Kind, &b.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge row: %w", err)
		}
		badges = append(badges, &b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during badge rows iteration: %w", err)
	}
	return badges, nil
}
