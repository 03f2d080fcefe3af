package core

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// query.go is the exported read and admin surface over the ingestion
// tables. Reads run directly on the pool; deletes open a transaction so
// dependent rows go together.

// QueryMeasurements returns a subject's reconciled measurements in
// timestamp order, optionally restricted to one competition. Unmapped
// rows are invisible here; they have no subject to query by.
func (s *Service) QueryMeasurements(ctx context.Context, subjectID, competitionID string) ([]RawMeasurement, error) {
	return queryMeasurements(ctx, s.pool, subjectID, competitionID)
}

// GetBatch returns one batch by id, or NotFoundError.
func (s *Service) GetBatch(ctx context.Context, batchID string) (*UploadBatch, error) {
	return getBatch(ctx, s.pool, batchID)
}

// ListBatches returns a competition's upload history, newest first.
func (s *Service) ListBatches(ctx context.Context, competitionID string) ([]UploadBatch, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	return listBatches(ctx, s.pool, competitionID)
}

// DeleteBatch removes a batch and every measurement it produced.
// Unknown ids return NotFoundError.
func (s *Service) DeleteBatch(ctx context.Context, batchID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return deleteBatchRows(ctx, tx, batchID)
	})
}

// DeleteScope removes all measurements and batches in a scope. With an
// empty sensor type the whole competition's measurement data goes;
// mappings and race records are separate scopes with their own
// overwrite paths.
func (s *Service) DeleteScope(ctx context.Context, scope Scope) error {
	if err := s.requireCompetition(ctx, scope.CompetitionID); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return deleteMeasurementScope(ctx, tx, scope)
	})
}

// ListRaceRecords returns a competition's participant records ordered
// by race number.
func (s *Service) ListRaceRecords(ctx context.Context, competitionID string) ([]RaceRecord, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	return listRaceRecords(ctx, s.pool, competitionID)
}

// MeasurementStatusCounts reports how many rows sit in each mapping
// status for a competition. Useful for checking reconciliation progress
// after a roster upload.
func (s *Service) MeasurementStatusCounts(ctx context.Context, competitionID string) (map[MappingStatus]int64, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	return countMeasurementsByStatus(ctx, s.pool, competitionID)
}
