package db

import (
	"context"
	"database/sql"
	"fmt"
)

// StatusChannel is the LISTEN/NOTIFY channel the events trigger publishes on.
const StatusChannel = "event_status_changes"

// schema is idempotent so it can run on every start.
const schema = `
CREATE TABLE IF NOT EXISTS clubs (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	recent_winners JSONB NOT NULL DEFAULT '[]'::jsonb,
	version        BIGINT NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	kind         TEXT NOT NULL DEFAULT 'tournament',
	status       TEXT NOT NULL DEFAULT 'scheduled',
	club_id      TEXT NOT NULL REFERENCES clubs(id),
	champion     JSONB,
	runner_up    JSONB,
	rankings     JSONB NOT NULL DEFAULT '[]'::jsonb,
	final_score  TEXT,
	completed_at TIMESTAMPTZ,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_events_status_completed_at ON events (status, completed_at);

CREATE TABLE IF NOT EXISTS matches (
	id             TEXT PRIMARY KEY,
	event_id       TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	round_number   INT NOT NULL CHECK (round_number >= 1),
	order_in_round INT NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'scheduled',
	player1        JSONB,
	player2        JSONB,
	winner         JSONB,
	score          JSONB,
	next_match     JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_matches_event_round ON matches (event_id, round_number, order_in_round);

CREATE TABLE IF NOT EXISTS trophies (
	id             UUID PRIMARY KEY,
	participant_id TEXT NOT NULL,
	event_id       TEXT NOT NULL,
	event_name     TEXT NOT NULL,
	club_id        TEXT NOT NULL,
	team_id        TEXT,
	rank           INT NOT NULL,
	title          TEXT NOT NULL,
	awarded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT trophies_participant_event_key UNIQUE (participant_id, event_id)
);

CREATE TABLE IF NOT EXISTS badges (
	id             UUID PRIMARY KEY,
	participant_id TEXT NOT NULL,
	event_id       TEXT NOT NULL,
	kind           TEXT NOT NULL,
	awarded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT badges_participant_event_kind_key UNIQUE (participant_id, event_id, kind)
);

CREATE OR REPLACE FUNCTION notify_event_status_change() RETURNS trigger AS $$
BEGIN
	IF NEW.status IS DISTINCT FROM OLD.status THEN
		PERFORM pg_notify('` + StatusChannel + `', json_build_object(
			'event_id', NEW.id,
			'before_status', OLD.status,
			'after_status', NEW.status
		)::text);
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS events_status_change ON events;
CREATE TRIGGER events_status_change
	AFTER UPDATE ON events
	FOR EACH ROW EXECUTE FUNCTION notify_event_status_change();
`

// EnsureSchema creates tables, indexes and the status-change trigger.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
