package database

import (
	"errors"
	"fmt"

	"fieldbook/internal/models"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrSlotConflict           = errors.New("slot conflict")
	ErrConcurrentModification = errors.New("record was modified concurrently")
	ErrFieldInactive          = errors.New("field is not active")
	ErrPastDate               = errors.New("booking starts in the past")
	ErrDateTooFar             = errors.New("booking is too far in the future")
	ErrOverrideConflict       = errors.New("override overlaps an active booking")
	ErrValidation             = errors.New("validation failed")
)

// ConflictError reports why the conflict guard refused an interval.
// errors.Is(err, ErrSlotConflict) matches any reason.
type ConflictError struct {
	FieldID int64
	Reason  models.ConflictReason
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("field %d: slot conflict: %s", e.FieldID, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}
