package domain

import (
	"errors"
	"strings"
)

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("%w: ...").
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// LockedFieldsError rejects an update that touches fields frozen by an invoice.
type LockedFieldsError struct {
	EntryID string
	Fields  []string
}

func (e *LockedFieldsError) Error() string {
	return "conflict: entry " + e.EntryID + " is invoiced; cannot change " + strings.Join(e.Fields, ", ")
}

// Is makes errors.Is(err, ErrConflict) hold.
func (e *LockedFieldsError) Is(target error) bool { return target == ErrConflict }
