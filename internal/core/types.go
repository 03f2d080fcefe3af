// Package core implements sensor-export ingestion, identity
// reconciliation and race-record assembly. It has no HTTP dependencies
// and is consumed by the web layer through plain method calls.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
}

// Pool is the pool-level surface the service needs: direct queries plus
// transaction creation. Satisfied by *pgxpool.Pool.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SensorType is the category of physiological or environmental
// measurement a file carries.
type SensorType string

const (
	SensorSkinTemperature SensorType = "skin_temperature"
	SensorCoreTemperature SensorType = "core_temperature"
	SensorHeartRate       SensorType = "heart_rate"
	SensorEnvironment     SensorType = "environmental_index"
)

// ParseSensorType resolves user- and file-supplied spellings of a
// sensor type. Mapping files in particular abbreviate freely.
func ParseSensorType(s string) (SensorType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skin_temperature", "skin-temperature", "skin", "wearable":
		return SensorSkinTemperature, true
	case "core_temperature", "core-temperature", "core", "capsule":
		return SensorCoreTemperature, true
	case "heart_rate", "heart-rate", "hr", "heartrate":
		return SensorHeartRate, true
	case "environmental_index", "environment", "wbgt", "env":
		return SensorEnvironment, true
	}
	return "", false
}

// MappingStatus tracks identity resolution of a measurement.
// StatusArchived is reserved for a future soft-delete policy; no code
// path sets it.
type MappingStatus string

const (
	StatusUnmapped MappingStatus = "unmapped"
	StatusMapped   MappingStatus = "mapped"
	StatusInvalid  MappingStatus = "invalid"
	StatusArchived MappingStatus = "archived"
)

// RawMeasurement is one decoded reading as persisted. Status moves
// exactly once, unmapped to mapped, via the reconciler; no other path
// mutates a measurement.
type RawMeasurement struct {
	ID              int64
	SensorType      SensorType
	RawSensorID     string
	CompetitionID   string
	Timestamp       time.Time
	Fields          map[string]float64
	MappingStatus   MappingStatus
	MappedSubjectID *string
	BatchID         string
}

// BatchStatus summarizes one ingestion attempt.
type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchPartial BatchStatus = "partial"
	BatchFailed  BatchStatus = "failed"
)

// batchStatusFor applies the ledger rule: success iff nothing failed,
// failed iff nothing succeeded, partial otherwise. An aborted or empty
// file (0/0) counts as failed.
func batchStatusFor(success, failed int) BatchStatus {
	switch {
	case success > 0 && failed == 0:
		return BatchSuccess
	case success == 0:
		return BatchFailed
	default:
		return BatchPartial
	}
}

// UploadBatch records provenance and outcome of one file ingestion.
type UploadBatch struct {
	ID            string
	SensorType    SensorType
	CompetitionID string
	FileName      string
	FileSize      int64
	TotalRecords  int
	SuccessCount  int
	FailedCount   int
	Status        BatchStatus
	CreatedAt     time.Time
	FinalizedAt   *time.Time
}

// IdentityMapping assigns a raw sensor id to a subject for one
// competition. At most one active assignment exists per
// (competition, sensor type, raw sensor id); corrections are modeled as
// delete-and-reinsert, never update-in-place.
type IdentityMapping struct {
	SubjectID     string
	SensorType    SensorType
	RawSensorID   string
	CompetitionID string
	RaceNumber    string
}

// Lap is one labeled checkpoint timestamp. Lap cardinality varies per
// source file and is preserved in order rather than normalized into a
// fixed schema.
type Lap struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// RaceRecord is one participant's timing record, keyed by race number.
// SubjectID stays nil until a mapping with a race number arrives or an
// admin assigns one.
type RaceRecord struct {
	CompetitionID string
	RaceNumber    string
	SubjectID     *string
	SwimStart     *time.Time
	SwimFinish    *time.Time
	BikeStart     *time.Time
	BikeFinish    *time.Time
	RunStart      *time.Time
	RunFinish     *time.Time
	Laps          []Lap
	SourceFile    string
}

// BatchReport is returned to the caller after a measurement-file
// ingestion.
type BatchReport struct {
	BatchID string      `json:"batchId"`
	Total   int         `json:"total"`
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Status  BatchStatus `json:"status"`
	Errors  []string    `json:"errors,omitempty"`
}

// MappingReport is returned after a mapping-file ingestion.
type MappingReport struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// RaceIngestReport is returned after a race-record ingestion covering
// one or more result files.
type RaceIngestReport struct {
	Participants int      `json:"participants"`
	Saved        int      `json:"saved"`
	Failed       int      `json:"failed"`
	Errors       []string `json:"errors,omitempty"`
}

// UploadFile pairs a file name with its raw content for multi-file
// requests.
type UploadFile struct {
	Name string
	Data []byte
}

// SubjectDirectory is the collaborator-owned subject roster lookup.
type SubjectDirectory interface {
	SubjectExists(ctx context.Context, subjectID string) (bool, error)
}

// CompetitionDirectory is the collaborator-owned competition lookup.
type CompetitionDirectory interface {
	CompetitionExists(ctx context.Context, competitionID string) (bool, error)
}

// Scope identifies the replace-by-scope unit for overwrites and
// deletions: all measurements of one sensor type within a competition,
// or every sensor type when SensorType is empty.
type Scope struct {
	CompetitionID string
	SensorType    SensorType
}

func (s Scope) String() string {
	if s.SensorType == "" {
		return s.CompetitionID
	}
	return fmt.Sprintf("%s/%s", s.CompetitionID, s.SensorType)
}
