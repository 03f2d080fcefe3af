package core

import (
	"context"
	"fmt"
)

// directory.go provides database-backed roster lookups. The roster
// tables are owned by a collaborating system; this side only reads
// them, so the implementations are EXISTS probes and nothing more.

// PGSubjectDirectory looks subjects up in the subjects table.
type PGSubjectDirectory struct {
	DB DBTX
}

func (d *PGSubjectDirectory) SubjectExists(ctx context.Context, subjectID string) (bool, error) {
	var ok bool
	err := d.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1)`, subjectID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("subject exists: %w", err)
	}
	return ok, nil
}

// PGCompetitionDirectory looks competitions up in the competitions
// table.
type PGCompetitionDirectory struct {
	DB DBTX
}

func (d *PGCompetitionDirectory) CompetitionExists(ctx context.Context, competitionID string) (bool, error) {
	var ok bool
	err := d.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM competitions WHERE id = $1)`, competitionID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("competition exists: %w", err)
	}
	return ok, nil
}
