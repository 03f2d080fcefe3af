package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/heatlab/sensorhub/internal/decode"
)

// Service provides the ingestion, reconciliation and query operations.
type Service struct {
	pool         Pool
	subjects     SubjectDirectory
	competitions CompetitionDirectory

	maxFileSize int64
	maxErrors   int
	trackPolicy decode.TrackPolicy
}

// Options configures a Service. Zero values fall back to the defaults
// below.
type Options struct {
	// MaxFileSize bounds uploaded files in bytes. Decoders buffer whole
	// files, so this is the backstop against memory exhaustion.
	MaxFileSize int64

	// MaxErrors caps the error-message list returned to callers. Row
	// errors beyond the cap still count, they are just not itemized.
	MaxErrors int

	// TrackPolicy is the heart-rate timestamp normalization policy.
	TrackPolicy decode.TrackPolicy
}

// NewService creates a Service backed by the given pool and
// collaborator directories.
func NewService(pool Pool, subjects SubjectDirectory, competitions CompetitionDirectory, opts Options) (*Service, error) {
	if pool == nil {
		return nil, fmt.Errorf("nil pool")
	}
	if subjects == nil || competitions == nil {
		return nil, fmt.Errorf("nil directory")
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 50 * 1024 * 1024
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}
	if opts.TrackPolicy.TargetOffset == 0 && !opts.TrackPolicy.AssumeNaiveUTC {
		opts.TrackPolicy = decode.DefaultTrackPolicy()
	}
	return &Service{
		pool:         pool,
		subjects:     subjects,
		competitions: competitions,
		maxFileSize:  opts.MaxFileSize,
		maxErrors:    opts.MaxErrors,
		trackPolicy:  opts.TrackPolicy,
	}, nil
}

// withTx runs fn inside one transaction. Each uploaded file gets its
// own transaction boundary; failure of one file never rolls back files
// committed before it.
func (s *Service) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// requireCompetition resolves the competition or returns NotFoundError.
func (s *Service) requireCompetition(ctx context.Context, competitionID string) error {
	ok, err := s.competitions.CompetitionExists(ctx, competitionID)
	if err != nil {
		return fmt.Errorf("competition lookup: %w", err)
	}
	if !ok {
		return &NotFoundError{Kind: "competition", ID: competitionID}
	}
	return nil
}

// truncateErrors caps an error list for the caller, appending a marker
// when messages were dropped.
func (s *Service) truncateErrors(msgs []string) []string {
	if len(msgs) <= s.maxErrors {
		return msgs
	}
	out := make([]string, s.maxErrors, s.maxErrors+1)
	copy(out, msgs[:s.maxErrors])
	return append(out, fmt.Sprintf("... and %d more", len(msgs)-s.maxErrors))
}
