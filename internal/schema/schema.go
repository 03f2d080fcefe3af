// Package schema owns the database shape for the ingestion tables and
// applies it idempotently at startup. Every statement is CREATE IF NOT
// EXISTS, so a restart against an initialized database is a no-op.
package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgx a schema apply needs. Satisfied by
// *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

var statements = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS competitions (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		held_on    DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS upload_batches (
		id             UUID PRIMARY KEY,
		sensor_type    TEXT NOT NULL,
		competition_id TEXT NOT NULL,
		file_name      TEXT NOT NULL,
		file_size      BIGINT NOT NULL DEFAULT 0,
		total_records  INTEGER NOT NULL DEFAULT 0,
		success_count  INTEGER NOT NULL DEFAULT 0,
		failed_count   INTEGER NOT NULL DEFAULT 0,
		status         TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		finalized_at   TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS measurements (
		id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		sensor_type       TEXT NOT NULL,
		raw_sensor_id     TEXT NOT NULL,
		competition_id    TEXT NOT NULL,
		ts                TIMESTAMP NOT NULL,
		fields            JSONB NOT NULL DEFAULT '{}',
		mapping_status    TEXT NOT NULL DEFAULT 'unmapped',
		mapped_subject_id TEXT,
		batch_id          UUID NOT NULL REFERENCES upload_batches(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS identity_mappings (
		id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		competition_id TEXT NOT NULL,
		sensor_type    TEXT NOT NULL,
		raw_sensor_id  TEXT NOT NULL,
		subject_id     TEXT NOT NULL,
		race_number    TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (competition_id, sensor_type, raw_sensor_id)
	)`,

	`CREATE TABLE IF NOT EXISTS race_records (
		id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		competition_id TEXT NOT NULL,
		race_number    TEXT NOT NULL,
		subject_id     TEXT,
		swim_start     TIMESTAMP,
		swim_finish    TIMESTAMP,
		bike_start     TIMESTAMP,
		bike_finish    TIMESTAMP,
		run_start      TIMESTAMP,
		run_finish     TIMESTAMP,
		laps           JSONB NOT NULL DEFAULT '[]',
		source_file    TEXT NOT NULL DEFAULT '',
		UNIQUE (competition_id, race_number)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_measurements_scope
		ON measurements (competition_id, sensor_type)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_unmapped
		ON measurements (competition_id, sensor_type, raw_sensor_id)
		WHERE mapping_status = 'unmapped'`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_subject_ts
		ON measurements (mapped_subject_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_batch
		ON measurements (batch_id)`,
	`CREATE INDEX IF NOT EXISTS idx_upload_batches_competition
		ON upload_batches (competition_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_race_records_competition
		ON race_records (competition_id, race_number)`,
}

// Apply creates the tables and indexes if they do not exist.
func Apply(ctx context.Context, db Execer) error {
	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
