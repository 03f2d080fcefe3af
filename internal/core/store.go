package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// store.go holds the hand-written SQL for the ingestion tables. All
// functions take a DBTX so they compose with both pool-level calls and
// the per-file transactions the orchestrator opens.

func insertBatch(ctx context.Context, q DBTX, b *UploadBatch) error {
	_, err := q.Exec(ctx, `
		INSERT INTO upload_batches
			(id, sensor_type, competition_id, file_name, file_size,
			 total_records, success_count, failed_count, status)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6)`,
		b.ID, b.SensorType, b.CompetitionID, b.FileName, b.FileSize, BatchFailed)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func finalizeBatch(ctx context.Context, q DBTX, batchID string, total, success, failed int, status BatchStatus) error {
	tag, err := q.Exec(ctx, `
		UPDATE upload_batches
		SET total_records = $2, success_count = $3, failed_count = $4,
		    status = $5, finalized_at = now()
		WHERE id = $1`,
		batchID, total, success, failed, status)
	if err != nil {
		return fmt.Errorf("finalize batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Kind: "batch", ID: batchID}
	}
	return nil
}

// copyMeasurements bulk-inserts decoded readings with the COPY
// protocol. pgx encodes the field map as JSONB directly.
func copyMeasurements(ctx context.Context, q DBTX, rows []RawMeasurement) (int64, error) {
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		m := rows[i]
		return []any{
			m.SensorType, m.RawSensorID, m.CompetitionID, m.Timestamp,
			m.Fields, m.MappingStatus, m.MappedSubjectID, m.BatchID,
		}, nil
	})
	n, err := q.CopyFrom(ctx, pgx.Identifier{"measurements"},
		[]string{"sensor_type", "raw_sensor_id", "competition_id", "ts",
			"fields", "mapping_status", "mapped_subject_id", "batch_id"},
		src)
	if err != nil {
		return 0, fmt.Errorf("copy measurements: %w", err)
	}
	return n, nil
}

// deleteMeasurementScope removes all measurements and batches for a
// scope. Callers wrap this in a transaction together with the inserts
// that replace the scope.
func deleteMeasurementScope(ctx context.Context, q DBTX, scope Scope) error {
	var err error
	if scope.SensorType == "" {
		_, err = q.Exec(ctx,
			`DELETE FROM measurements WHERE competition_id = $1`, scope.CompetitionID)
		if err == nil {
			_, err = q.Exec(ctx,
				`DELETE FROM upload_batches WHERE competition_id = $1`, scope.CompetitionID)
		}
	} else {
		_, err = q.Exec(ctx,
			`DELETE FROM measurements WHERE competition_id = $1 AND sensor_type = $2`,
			scope.CompetitionID, scope.SensorType)
		if err == nil {
			_, err = q.Exec(ctx,
				`DELETE FROM upload_batches WHERE competition_id = $1 AND sensor_type = $2`,
				scope.CompetitionID, scope.SensorType)
		}
	}
	if err != nil {
		return fmt.Errorf("delete scope %s: %w", scope, err)
	}
	return nil
}

func deleteRaceRecordScope(ctx context.Context, q DBTX, competitionID string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM race_records WHERE competition_id = $1`, competitionID)
	if err != nil {
		return fmt.Errorf("delete race records for %s: %w", competitionID, err)
	}
	return nil
}

func deleteMappingScope(ctx context.Context, q DBTX, competitionID string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM identity_mappings WHERE competition_id = $1`, competitionID)
	if err != nil {
		return fmt.Errorf("delete mappings for %s: %w", competitionID, err)
	}
	return nil
}

// insertMapping inserts one assignment, relying on the table's unique
// constraint for conflict detection. A duplicate returns ConflictError.
func insertMapping(ctx context.Context, q DBTX, m IdentityMapping) error {
	var raceNumber *string
	if m.RaceNumber != "" {
		raceNumber = &m.RaceNumber
	}
	tag, err := q.Exec(ctx, `
		INSERT INTO identity_mappings
			(competition_id, sensor_type, raw_sensor_id, subject_id, race_number)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (competition_id, sensor_type, raw_sensor_id) DO NOTHING`,
		m.CompetitionID, m.SensorType, m.RawSensorID, m.SubjectID, raceNumber)
	if err != nil {
		return fmt.Errorf("insert mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ConflictError{
			CompetitionID: m.CompetitionID,
			SensorType:    m.SensorType,
			RawSensorID:   m.RawSensorID,
		}
	}
	return nil
}

// reconcileMeasurements backfills identity onto previously unmapped
// measurements matching the assignment. Only unmapped rows move, which
// makes re-running the pass a no-op.
func reconcileMeasurements(ctx context.Context, q DBTX, m IdentityMapping) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE measurements
		SET mapping_status = $1, mapped_subject_id = $2
		WHERE competition_id = $3 AND sensor_type = $4 AND raw_sensor_id = $5
		  AND mapping_status = $6`,
		StatusMapped, m.SubjectID, m.CompetitionID, m.SensorType, m.RawSensorID, StatusUnmapped)
	if err != nil {
		return 0, fmt.Errorf("reconcile measurements: %w", err)
	}
	return tag.RowsAffected(), nil
}

// reconcileBatch joins a freshly inserted batch against mappings that
// already exist, covering the case where the identity file arrived
// before the data file.
func reconcileBatch(ctx context.Context, q DBTX, batchID string) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE measurements m
		SET mapping_status = $1, mapped_subject_id = im.subject_id
		FROM identity_mappings im
		WHERE m.batch_id = $2
		  AND m.mapping_status = $3
		  AND im.competition_id = m.competition_id
		  AND im.sensor_type = m.sensor_type
		  AND im.raw_sensor_id = m.raw_sensor_id`,
		StatusMapped, batchID, StatusUnmapped)
	if err != nil {
		return 0, fmt.Errorf("reconcile batch: %w", err)
	}
	return tag.RowsAffected(), nil
}

// stampRaceRecords writes the subject onto every race record in the
// competition carrying the mapped race number.
func stampRaceRecords(ctx context.Context, q DBTX, competitionID, raceNumber, subjectID string) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE race_records
		SET subject_id = $3
		WHERE competition_id = $1 AND race_number = $2`,
		competitionID, raceNumber, subjectID)
	if err != nil {
		return 0, fmt.Errorf("stamp race records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// stampRaceRecordsFromMappings backfills subject ids onto unstamped
// race records from assignments that already carry a race number,
// covering the case where the result file arrived after the mapping
// file. Only records without a subject move, so re-running the pass is
// a no-op.
func stampRaceRecordsFromMappings(ctx context.Context, q DBTX, competitionID string) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE race_records rr
		SET subject_id = im.subject_id
		FROM identity_mappings im
		WHERE rr.competition_id = $1
		  AND rr.subject_id IS NULL
		  AND im.competition_id = rr.competition_id
		  AND im.race_number = rr.race_number`,
		competitionID)
	if err != nil {
		return 0, fmt.Errorf("stamp race records from mappings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// upsertRaceRecord inserts or replaces one participant record. The
// (competition, race number) key is unique per active dataset; a later
// file for the same participant wins wholesale.
func upsertRaceRecord(ctx context.Context, q DBTX, r *RaceRecord) error {
	_, err := q.Exec(ctx, `
		INSERT INTO race_records
			(competition_id, race_number, subject_id,
			 swim_start, swim_finish, bike_start, bike_finish, run_start, run_finish,
			 laps, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (competition_id, race_number) DO UPDATE SET
			swim_start = EXCLUDED.swim_start,
			swim_finish = EXCLUDED.swim_finish,
			bike_start = EXCLUDED.bike_start,
			bike_finish = EXCLUDED.bike_finish,
			run_start = EXCLUDED.run_start,
			run_finish = EXCLUDED.run_finish,
			laps = EXCLUDED.laps,
			source_file = EXCLUDED.source_file`,
		r.CompetitionID, r.RaceNumber, r.SubjectID,
		r.SwimStart, r.SwimFinish, r.BikeStart, r.BikeFinish, r.RunStart, r.RunFinish,
		r.Laps, r.SourceFile)
	if err != nil {
		return fmt.Errorf("upsert race record %s: %w", r.RaceNumber, err)
	}
	return nil
}

func queryMeasurements(ctx context.Context, q DBTX, subjectID, competitionID string) ([]RawMeasurement, error) {
	sql := `
		SELECT id, sensor_type, raw_sensor_id, competition_id, ts,
		       fields, mapping_status, mapped_subject_id, batch_id
		FROM measurements
		WHERE mapped_subject_id = $1`
	args := []any{subjectID}
	if competitionID != "" {
		sql += ` AND competition_id = $2`
		args = append(args, competitionID)
	}
	sql += ` ORDER BY ts`

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var out []RawMeasurement
	for rows.Next() {
		var m RawMeasurement
		if err := rows.Scan(&m.ID, &m.SensorType, &m.RawSensorID, &m.CompetitionID,
			&m.Timestamp, &m.Fields, &m.MappingStatus, &m.MappedSubjectID, &m.BatchID); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func getBatch(ctx context.Context, q DBTX, batchID string) (*UploadBatch, error) {
	var b UploadBatch
	err := q.QueryRow(ctx, `
		SELECT id, sensor_type, competition_id, file_name, file_size,
		       total_records, success_count, failed_count, status, created_at, finalized_at
		FROM upload_batches WHERE id = $1`, batchID).
		Scan(&b.ID, &b.SensorType, &b.CompetitionID, &b.FileName, &b.FileSize,
			&b.TotalRecords, &b.SuccessCount, &b.FailedCount, &b.Status, &b.CreatedAt, &b.FinalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Kind: "batch", ID: batchID}
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

func listBatches(ctx context.Context, q DBTX, competitionID string) ([]UploadBatch, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sensor_type, competition_id, file_name, file_size,
		       total_records, success_count, failed_count, status, created_at, finalized_at
		FROM upload_batches
		WHERE competition_id = $1
		ORDER BY created_at DESC`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []UploadBatch
	for rows.Next() {
		var b UploadBatch
		if err := rows.Scan(&b.ID, &b.SensorType, &b.CompetitionID, &b.FileName, &b.FileSize,
			&b.TotalRecords, &b.SuccessCount, &b.FailedCount, &b.Status, &b.CreatedAt, &b.FinalizedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func deleteBatchRows(ctx context.Context, q DBTX, batchID string) error {
	if _, err := q.Exec(ctx,
		`DELETE FROM measurements WHERE batch_id = $1`, batchID); err != nil {
		return fmt.Errorf("delete batch measurements: %w", err)
	}
	tag, err := q.Exec(ctx,
		`DELETE FROM upload_batches WHERE id = $1`, batchID)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Kind: "batch", ID: batchID}
	}
	return nil
}

func listRaceRecords(ctx context.Context, q DBTX, competitionID string) ([]RaceRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT competition_id, race_number, subject_id,
		       swim_start, swim_finish, bike_start, bike_finish, run_start, run_finish,
		       laps, source_file
		FROM race_records
		WHERE competition_id = $1
		ORDER BY race_number`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list race records: %w", err)
	}
	defer rows.Close()

	var out []RaceRecord
	for rows.Next() {
		var r RaceRecord
		if err := rows.Scan(&r.CompetitionID, &r.RaceNumber, &r.SubjectID,
			&r.SwimStart, &r.SwimFinish, &r.BikeStart, &r.BikeFinish, &r.RunStart, &r.RunFinish,
			&r.Laps, &r.SourceFile); err != nil {
			return nil, fmt.Errorf("scan race record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// countMeasurementsByStatus supports the dashboard collaborator and the
// reconciliation idempotence checks in operations runbooks.
func countMeasurementsByStatus(ctx context.Context, q DBTX, competitionID string) (map[MappingStatus]int64, error) {
	rows, err := q.Query(ctx, `
		SELECT mapping_status, COUNT(*)
		FROM measurements
		WHERE competition_id = $1
		GROUP BY mapping_status`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[MappingStatus]int64)
	for rows.Next() {
		var s MappingStatus
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[s] = n
	}
	return out, rows.Err()
}
