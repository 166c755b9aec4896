package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/club-events/metrics"
	"github.com/Dosada05/club-events/models"
)

var (
	ErrClubNotFound        = errors.New("club not found")
	ErrClubVersionConflict = errors.New("club was modified concurrently")
	// ErrNoChange may be returned by a ClubMutation to skip the write.
	ErrNoChange = errors.New("no change")
)

const (
	defaultClubUpdateAttempts = 5
	clubUpdateBackoff         = 20 * time.Millisecond
)

// ClubMutation receives a snapshot and returns the club to persist. It must be
// pure: it may run more than once when a concurrent writer wins the race.
type ClubMutation func(current models.Club) (models.Club, error)

type ClubRepository interface {
	GetByID(ctx context.Context, id string) (*models.Club, error)
	// CompareAndSwapRecentWinners writes winners only if the stored version still
	// equals expectedVersion, otherwise it returns ErrClubVersionConflict.
	CompareAndSwapRecentWinners(ctx context.Context, clubID string, expectedVersion int64, winners []models.Winner) (newVersion int64, err error)
}

// TransactionalUpdate runs read, mutate and conditional write, retrying the
// whole cycle when another writer bumped the version in between.
func TransactionalUpdate(ctx context.Context, repo ClubRepository, clubID string, mutate ClubMutation) (*models.Club, error) {
	var lastErr error
	for attempt := 1; attempt <= defaultClubUpdateAttempts; attempt++ {
		current, err := repo.GetByID(ctx, clubID)
		if err != nil {
			return nil, err
		}

		next, err := mutate(*current)
		if errors.Is(err, ErrNoChange) {
			return current, nil
		}
		if err != nil {
			return nil, err
		}

		version, err := repo.CompareAndSwapRecentWinners(ctx, clubID, current.Version, next.RecentWinners)
		if err == nil {
			next.Version = version
			return &next, nil
		}
		if !errors.Is(err, ErrClubVersionConflict) {
			return nil, err
		}
		lastErr = err
		metrics.ClubUpdateConflicts.Inc()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * clubUpdateBackoff):
		}
	}
	return nil, fmt.Errorf("club %s: gave up after %d attempts: %w", clubID, defaultClubUpdateAttempts, lastErr)
}

type postgresClubRepository struct {
	db *sql.DB
}

func NewPostgresClubRepository(db *sql.DB) ClubRepository {
	return &postgresClubRepository{db: db}
}

func (r *postgresClubRepository) GetByID(ctx context.Context, id string) (*models.Club, error) {
	var (
		c       models.Club
		winners []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, recent_winners, version, updated_at FROM clubs WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &winners, &c.Version, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to scan club %s: %w", id, err)
	}
	if err := decodeJSON(winners, &c.RecentWinners); err != nil {
		return nil, fmt.Errorf("failed to decode recent winners of club %s: %w", id, err)
	}
	if c.RecentWinners == nil {
		c.RecentWinners = []models.Winner{}
	}
	return &c, nil
}

func (r *postgresClubRepository) CompareAndSwapRecentWinners(ctx context.Context, clubID string, expectedVersion int64, winners []models.Winner) (int64, error) {
	if winners == nil {
		winners = []models.Winner{}
	}
	payload, err := jsonParam(winners)
	if err != nil {
		return 0, fmt.Errorf("failed to encode recent winners: %w", err)
	}

	var version int64
	err = r.db.QueryRowContext(ctx, `
		UPDATE clubs
		SET recent_winners = $1::jsonb, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING version`, payload, clubID, expectedVersion).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrClubVersionConflict
		}
		return 0, fmt.Errorf("failed to update club %s: %w", clubID, err)
	}
	return version, nil
}
