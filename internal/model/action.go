package model

import (
	"time"

	"github.com/google/uuid"
)

// ActionType defines the intended filesystem side effect of an action record
type ActionType string

const (
	// ActionTypeCreate means a file was (or will be) written at the storage
	// location and must be removed if the enclosing operation never committed.
	ActionTypeCreate ActionType = "CREATE"
	// ActionTypeDelete means the file at the storage location must be removed
	// once the enclosing operation has committed.
	ActionTypeDelete ActionType = "DELETE"
)

// ActionRecord is one write-ahead log entry: a single intended file-store
// side effect tied to a business operation. StorageLocation, ActionType and
// CreatedAt are immutable after creation; Committed is flipped by the
// coordinator, Processed exclusively by the sweeper.
type ActionRecord struct {
	ID              uuid.UUID
	StorageLocation string
	ActionType      ActionType
	Committed       bool
	Processed       bool
	GroupID         uuid.NullUUID // Links records of one multi-step operation
	CreatedAt       time.Time
}

// NeedsCompensation reports whether the sweeper must perform file I/O for
// this record. CREATE records compensate when the operation never committed,
// DELETE records when it did.
func (r *ActionRecord) NeedsCompensation() bool {
	switch r.ActionType {
	case ActionTypeCreate:
		return !r.Committed
	case ActionTypeDelete:
		return r.Committed
	default:
		return false
	}
}
