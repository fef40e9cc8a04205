package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates all tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS opportunities (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	client_name TEXT NOT NULL DEFAULT '',
	role_title TEXT NOT NULL DEFAULT '',
	salary_range TEXT NOT NULL DEFAULT '',
	tech_stack JSONB NOT NULL DEFAULT '[]'::jsonb,
	work_model TEXT NOT NULL DEFAULT '',
	recruiter_name TEXT NOT NULL DEFAULT '',
	recruiter_company TEXT NOT NULL DEFAULT '',
	missing_fields JSONB NOT NULL DEFAULT '[]'::jsonb,
	classification TEXT NOT NULL DEFAULT '',
	detected_language TEXT NOT NULL DEFAULT '',
	match_score INTEGER,
	match_reasoning TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	suggested_stage TEXT NOT NULL DEFAULT '',
	stage_reason TEXT NOT NULL DEFAULT '',
	archived BOOLEAN NOT NULL DEFAULT FALSE,
	last_interaction_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_candidate ON opportunities(candidate_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_stage ON opportunities(stage);
CREATE INDEX IF NOT EXISTS idx_opportunities_last_interaction ON opportunities(last_interaction_at DESC);

CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id),
	raw_content TEXT NOT NULL,
	source TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	processing_status TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_interactions_content_hash ON interactions(content_hash);
CREATE INDEX IF NOT EXISTS idx_interactions_opportunity ON interactions(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_interactions_status ON interactions(processing_status);

CREATE TABLE IF NOT EXISTS stage_transitions (
	id TEXT PRIMARY KEY,
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id),
	from_stage TEXT NOT NULL,
	to_stage TEXT NOT NULL,
	triggered_by TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stage_transitions_opportunity ON stage_transitions(opportunity_id);

CREATE TABLE IF NOT EXISTS profiles (
	candidate_id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	professional_title TEXT NOT NULL DEFAULT '',
	skills JSONB NOT NULL DEFAULT '[]'::jsonb,
	min_salary INTEGER NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT '',
	work_model TEXT NOT NULL DEFAULT '',
	preferred_locations JSONB NOT NULL DEFAULT '[]'::jsonb,
	cv_text TEXT NOT NULL DEFAULT '',
	cv_path TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS drafts (
	id TEXT PRIMARY KEY,
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id),
	response_type TEXT NOT NULL,
	content TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drafts_opportunity ON drafts(opportunity_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
