package projection

import (
	"fmt"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/domain"
)

// ProcessingError wraps a failure while applying one message.
type ProcessingError struct {
	EventType string
	MessageID string
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %s %s: %v", e.EventType, e.MessageID, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Critical reports whether a failed eventType is returned to the transport
// for redelivery. Sales and state changes must not be lost; attendee
// de-duplication and seat-map growth only feed secondary reporting and are
// logged and dropped instead.
func Critical(eventType string) bool {
	switch eventType {
	case domain.AttendeeRegisteredName, domain.SeatAddedName:
		return false
	default:
		return true
	}
}
