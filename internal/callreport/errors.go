package callreport

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a recoverable import error.
type ErrorKind string

const (
	ErrMalformedRow     ErrorKind = "malformed_row"
	ErrMissingStatement ErrorKind = "missing_statement"
	ErrTransform        ErrorKind = "transform"
	ErrValidation       ErrorKind = "validation"
	ErrOptionalSchedule ErrorKind = "optional_schedule"
)

// ImportError is one structured, recoverable error observed during a batch
// import. It identifies the kind, the entity involved (0 for file-level
// errors), and the offending field where known.
type ImportError struct {
	Kind     ErrorKind `json:"kind"`
	EntityID int64     `json:"entity_id,omitempty"`
	Field    string    `json:"field,omitempty"`
	Msg      string    `json:"msg"`
}

func (e ImportError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.EntityID != 0 {
		fmt.Fprintf(&b, " entity %d", e.EntityID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

// MissingSchedulesError aborts an import before any writes: one or more
// required schedule files were absent.
type MissingSchedulesError struct {
	Missing []string
}

func (e *MissingSchedulesError) Error() string {
	return "callreport: missing required schedules: " + strings.Join(e.Missing, ", ")
}
