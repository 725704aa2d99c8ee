package notification

import "time"

const (
	KindJoined = "rsvp.joined"
	KindLeft   = "rsvp.left"
)

// Message is published for every applied RSVP change. It carries everything the
// consumers need so they never have to call back into the database.
type Message struct {
	Kind           string    `json:"kind"`
	EventID        uint      `json:"eventId"`
	EventTitle     string    `json:"eventTitle"`
	EventSlug      string    `json:"eventSlug"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	Location       string    `json:"location,omitempty"`
	UserID         uint      `json:"userId"`
	Email          string    `json:"email"`
	SpotsRemaining uint      `json:"spotsRemaining"`
	OccurredAt     time.Time `json:"occurredAt"`
}
