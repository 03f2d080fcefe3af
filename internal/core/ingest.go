package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/heatlab/sensorhub/internal/decode"
	"github.com/heatlab/sensorhub/internal/textenc"
)

// ingest.go is the orchestrator: it sequences encoding resolution,
// decoding, ledger bookkeeping, persistence and reconciliation for one
// uploaded file. Processing is synchronous and request-scoped; the
// whole file is decoded in one pass and persisted in one transaction.

// Decode resolves the file encoding and runs the decoder for the given
// sensor type without persisting anything. The web layer uses it for
// upload previews. rawSensorID is required for sensor types whose files
// carry no identifier (heart rate, environmental index).
func (s *Service) Decode(st SensorType, data []byte, rawSensorID string) (*decode.Result, error) {
	if int64(len(data)) > s.maxFileSize {
		return nil, &decode.DecodeError{Msg: fmt.Sprintf("file exceeds %d byte limit", s.maxFileSize)}
	}

	content, err := textenc.Resolve(data)
	if err != nil {
		return nil, err
	}

	switch st {
	case SensorSkinTemperature:
		return decode.DecodeSkinTemp(content)
	case SensorCoreTemperature:
		return decode.DecodeCapsule(content)
	case SensorHeartRate:
		if rawSensorID == "" {
			return nil, &decode.SchemaError{Missing: []string{"sensor id (operator-entered)"}}
		}
		return decode.DecodeHeartRateTrack(content, rawSensorID, s.trackPolicy)
	case SensorEnvironment:
		if rawSensorID == "" {
			rawSensorID = "station"
		}
		return decode.DecodeWBGT(content, rawSensorID)
	default:
		return nil, fmt.Errorf("unknown sensor type: %q", st)
	}
}

// IngestFile processes one measurement file end to end and returns the
// batch report. Hard errors (bad encoding, malformed container, missing
// required columns) abort this file only and are recorded as a failed
// batch; row errors are tallied and never abort.
func (s *Service) IngestFile(ctx context.Context, st SensorType, competitionID, fileName string, data []byte, rawSensorID string, overwrite bool) (*BatchReport, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	res, decodeErr := s.Decode(st, data, rawSensorID)

	scope := Scope{CompetitionID: competitionID, SensorType: st}
	var report *BatchReport

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if decodeErr != nil {
			// Keep a failed-batch row as provenance for the attempt.
			// The overwrite is NOT applied: an unreadable file must
			// never destroy the scope it failed to replace.
			batch, err := openBatch(ctx, tx, st, competitionID, fileName, int64(len(data)))
			if err != nil {
				return err
			}
			report = &BatchReport{
				BatchID: batch.ID,
				Status:  BatchFailed,
				Errors:  []string{decodeErr.Error()},
			}
			return finalize(ctx, tx, batch, 0, 0, 0)
		}

		if overwrite {
			if err := overwriteScope(ctx, tx, scope); err != nil {
				return err
			}
		}

		batch, err := openBatch(ctx, tx, st, competitionID, fileName, int64(len(data)))
		if err != nil {
			return err
		}

		rows := make([]RawMeasurement, len(res.Readings))
		for i, r := range res.Readings {
			rows[i] = RawMeasurement{
				SensorType:    st,
				RawSensorID:   r.RawSensorID,
				CompetitionID: competitionID,
				Timestamp:     r.Timestamp,
				Fields:        r.Fields,
				MappingStatus: StatusUnmapped,
				BatchID:       batch.ID,
			}
		}
		if len(rows) > 0 {
			if _, err := copyMeasurements(ctx, tx, rows); err != nil {
				return err
			}
		}

		success := len(res.Readings)
		failed := len(res.RowErrors)
		if err := finalize(ctx, tx, batch, success+failed, success, failed); err != nil {
			return err
		}

		// Identity files arrive in arbitrary order relative to data
		// files; pick up assignments that were already uploaded.
		backfilled, err := reconcileBatch(ctx, tx, batch.ID)
		if err != nil {
			return err
		}
		if backfilled > 0 {
			slog.Info("backfilled identities onto new batch",
				"batch_id", batch.ID, "rows", backfilled)
		}

		msgs := make([]string, len(res.RowErrors))
		for i, re := range res.RowErrors {
			msgs[i] = re.Error()
		}
		report = &BatchReport{
			BatchID: batch.ID,
			Total:   success + failed,
			Success: success,
			Failed:  failed,
			Status:  batch.Status,
			Errors:  s.truncateErrors(msgs),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if decodeErr != nil {
		// Propagate the file-level error so a multi-file caller can
		// report mixed outcomes; the batch row already records it.
		return report, decodeErr
	}

	slog.Info("file ingested",
		"batch_id", report.BatchID,
		"sensor_type", st,
		"competition_id", competitionID,
		"file", fileName,
		"total", report.Total,
		"success", report.Success,
		"failed", report.Failed,
		"status", report.Status,
	)
	return report, nil
}
