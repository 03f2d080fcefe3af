package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/heatlab/sensorhub/internal/decode"
	"github.com/heatlab/sensorhub/internal/textenc"
)

// reconciler.go implements the two-phase identity join. Measurement
// files and identity files upload independently and in arbitrary
// order, so raw rows persist with an explicit unmapped status and a
// dedicated reconciliation pass backfills identity when the matching
// assignment appears. The pass is idempotent: only unmapped rows move,
// and re-ingesting an unchanged mapping file is rejected row-by-row on
// the uniqueness constraint.

// Mapping roster columns, located by keyword like every other vendor
// format.
var mappingMatchers = []decode.ColumnMatcher{
	{Slot: "subject", Keywords: []string{"被験者", "subject", "participant"}},
	{Slot: "sensor_type", Keywords: []string{"種別", "sensor type", "type", "category"}},
	{Slot: "sensor_id", Keywords: []string{"センサー", "sensor id", "sensor", "device"}},
	{Slot: "race_number", Keywords: []string{"ゼッケン", "bib", "race no", "number"}},
}

// IngestMapping validates and stores one subject-to-sensor assignment,
// then reconciles retroactively. A ReferentialError or ConflictError
// means this row was skipped; the caller decides how to tally it.
func (s *Service) IngestMapping(ctx context.Context, q DBTX, m IdentityMapping) error {
	ok, err := s.subjects.SubjectExists(ctx, m.SubjectID)
	if err != nil {
		return fmt.Errorf("subject lookup: %w", err)
	}
	if !ok {
		return &ReferentialError{SubjectID: m.SubjectID}
	}

	if err := insertMapping(ctx, q, m); err != nil {
		return err
	}

	reconciled, err := reconcileMeasurements(ctx, q, m)
	if err != nil {
		return err
	}
	if reconciled > 0 {
		slog.Info("reconciled measurements",
			"subject_id", m.SubjectID,
			"raw_sensor_id", m.RawSensorID,
			"sensor_type", m.SensorType,
			"rows", reconciled,
		)
	}

	if m.RaceNumber != "" {
		stamped, err := stampRaceRecords(ctx, q, m.CompetitionID, m.RaceNumber, m.SubjectID)
		if err != nil {
			return err
		}
		if stamped > 0 {
			slog.Info("stamped race records",
				"subject_id", m.SubjectID, "race_number", m.RaceNumber, "rows", stamped)
		}
	}

	return nil
}

// IngestMappingFile processes a subject-roster CSV. Rows referencing
// unknown subjects or already-assigned sensors are skipped with a
// warning rather than failing the file, so a partially stale roster
// still lands its remaining rows.
func (s *Service) IngestMappingFile(ctx context.Context, competitionID string, data []byte, overwrite bool) (*MappingReport, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, &decode.DecodeError{Msg: fmt.Sprintf("file exceeds %d byte limit", s.maxFileSize)}
	}

	content, err := textenc.Resolve(data)
	if err != nil {
		return nil, err
	}

	mappings, rowErrs, err := parseMappingFile(content, competitionID)
	if err != nil {
		return nil, err
	}

	report := &MappingReport{}
	for _, re := range rowErrs {
		report.Skipped++
		report.Errors = append(report.Errors, re.Error())
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if overwrite {
			if err := deleteMappingScope(ctx, tx, competitionID); err != nil {
				return err
			}
		}

		for _, m := range mappings {
			err := s.IngestMapping(ctx, tx, m)
			switch {
			case err == nil:
				report.Processed++
			case isSkippableMappingError(err):
				slog.Warn("mapping row skipped", "error", err,
					"competition_id", competitionID, "raw_sensor_id", m.RawSensorID)
				report.Skipped++
				report.Errors = append(report.Errors, err.Error())
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Errors = s.truncateErrors(report.Errors)
	return report, nil
}

// isSkippableMappingError reports whether the error is row-scoped
// policy (skip and continue) rather than a real failure.
func isSkippableMappingError(err error) bool {
	var refErr *ReferentialError
	var confErr *ConflictError
	return errors.As(err, &refErr) || errors.As(err, &confErr)
}

// parseMappingFile decodes the roster CSV into assignments plus soft
// row errors. Subject id, sensor type and sensor id are required per
// row; race number is optional.
func parseMappingFile(content, competitionID string) ([]IdentityMapping, []decode.RowError, error) {
	res, err := decode.ParseTable(content, mappingMatchers, []string{"subject", "sensor_type", "sensor_id"})
	if err != nil {
		return nil, nil, err
	}

	var mappings []IdentityMapping
	var rowErrs []decode.RowError
	for _, row := range res.Rows {
		st, ok := ParseSensorType(row.Get("sensor_type"))
		if !ok {
			rowErrs = append(rowErrs, decode.RowError{
				Line: row.Line,
				Msg:  fmt.Sprintf("unknown sensor type %q", row.Get("sensor_type")),
			})
			continue
		}
		mappings = append(mappings, IdentityMapping{
			SubjectID:     row.Get("subject"),
			SensorType:    st,
			RawSensorID:   row.Get("sensor_id"),
			CompetitionID: competitionID,
			RaceNumber:    row.Get("race_number"),
		})
	}
	rowErrs = append(rowErrs, res.RowErrors...)
	return mappings, rowErrs, nil
}
