package core

import (
	"context"

	"github.com/google/uuid"
)

// ledger.go owns batch provenance and overwrite-scope deletion. Every
// ingestion attempt gets a batch row at the start of processing; the
// row is finalized exactly once with the outcome tally.

// openBatch records the start of one ingestion attempt. The row is
// created with zero counters and a failed status so an attempt that
// aborts before finalize still leaves honest provenance.
func openBatch(ctx context.Context, q DBTX, st SensorType, competitionID, fileName string, fileSize int64) (*UploadBatch, error) {
	b := &UploadBatch{
		ID:            uuid.New().String(),
		SensorType:    st,
		CompetitionID: competitionID,
		FileName:      fileName,
		FileSize:      fileSize,
	}
	if err := insertBatch(ctx, q, b); err != nil {
		return nil, err
	}
	return b, nil
}

// finalize computes the batch status from the tally and closes the
// batch. success+failed never exceeds total; rows the decoder skipped
// intentionally (sentinels, system lines) appear in neither counter.
func finalize(ctx context.Context, q DBTX, b *UploadBatch, total, success, failed int) error {
	b.TotalRecords = total
	b.SuccessCount = success
	b.FailedCount = failed
	b.Status = batchStatusFor(success, failed)
	return finalizeBatch(ctx, q, b.ID, total, success, failed, b.Status)
}

// overwriteScope atomically clears all prior measurements and batches
// in the scope. Replace-by-scope, never row-level merge: partial prior
// state is never retained alongside new state. Must run inside the same
// transaction as the inserts that follow so a concurrent reader never
// observes a half-replaced scope.
func overwriteScope(ctx context.Context, q DBTX, scope Scope) error {
	return deleteMeasurementScope(ctx, q, scope)
}
