package core

import "fmt"

// NotFoundError reports an unknown competition, batch or subject on a
// lookup or delete. It surfaces to the caller as-is.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ReferentialError reports a mapping row that references a subject
// absent from the roster. The row is skipped, not the file.
type ReferentialError struct {
	SubjectID string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("unknown subject: %s", e.SubjectID)
}

// ConflictError reports a duplicate sensor assignment. Policy is
// reject-with-warning: the row is skipped and logged so the rest of the
// mapping file still processes.
type ConflictError struct {
	CompetitionID string
	SensorType    SensorType
	RawSensorID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("sensor %s (%s) already assigned in competition %s",
		e.RawSensorID, e.SensorType, e.CompetitionID)
}
