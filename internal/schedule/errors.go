package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports a missing or malformed required field. The save is
// aborted and nothing is written; the caller surfaces it to the user.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// ConflictError reports a staff double-booking. Like validation failures, a
// conflict aborts the save with nothing written.
type ConflictError struct {
	StaffID string
	Start   time.Time
	End     time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("staff %s is already booked between %s and %s",
		e.StaffID, e.Start.Format("2006-01-02 15:04"), e.End.Format("15:04"))
}

// ErrNotFound is returned when an update targets an unknown appointment id.
var ErrNotFound = errors.New("appointment not found")

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
