package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no item on the list matches the
// requested id.
var ErrNotFound = errors.New("item not found")

// Validation failure reasons carried by ErrValidation. Transports key
// off the reason; the message is for people.
const (
	ReasonMissingStore    = "missing_store"
	ReasonUnknownStore    = "unknown_store"
	ReasonMissingCategory = "missing_category"
	ReasonUnknownCategory = "unknown_category"
	ReasonMissingItem     = "missing_item"
	ReasonDuplicateItem   = "duplicate_item"
)

// ErrValidation is returned when input fails field-level validation.
// Nothing is persisted when validation fails. Message is safe to show
// to the user as-is.
type ErrValidation struct {
	Reason  string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Reason, e.Message)
}
