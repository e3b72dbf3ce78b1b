package domain

import (
	"strings"
	"time"
)

// Attendee is a registered participant. It only exists inside an Event's
// roster.
type Attendee struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

func newAttendee(userID, name, email string, at time.Time) (Attendee, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if userID == "" {
		return Attendee{}, argErr("user_id", "must not be blank")
	}
	if name == "" {
		return Attendee{}, argErr("name", "must not be blank")
	}
	if !isValidEmail(email) {
		return Attendee{}, argErr("email", "is not a valid email address")
	}
	return Attendee{UserID: userID, Name: name, Email: email, RegisteredAt: at.UTC()}, nil
}

// isValidEmail does a basic structural check: a local part, an @ and a
// dotted domain.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	domain := parts[1]
	return len(parts[0]) > 0 &&
		strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".")
}
