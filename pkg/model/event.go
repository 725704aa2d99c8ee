package model

import "time"

// Event domain object defining an event listing with a fixed attendance capacity.
// swagger:model
type Event struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Slug        string    `gorm:"index;unique" json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Capacity    uint      `json:"capacity"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatorID   uint      `json:"creatorId"`
	Creator     *User     `json:"-"`
	// Attendees is the canonical member set. It is only ever mutated through the
	// rsvp repository's atomic operations.
	Attendees []User `gorm:"many2many:event_attendees;constraint:OnDelete:CASCADE" json:"attendees,omitempty"`
}

// IsPast reports whether the event's scheduled time has passed. "Past" is derived
// from the clock, never stored.
func (e *Event) IsPast(now time.Time) bool {
	return e.ScheduledAt.Before(now)
}

func (e *Event) HasAttendee(userId uint) bool {
	for _, attendee := range e.Attendees {
		if attendee.ID == userId {
			return true
		}
	}
	return false
}

// SpotsRemaining is capacity minus the loaded attendee set, never negative.
func (e *Event) SpotsRemaining() uint {
	attendees := uint(len(e.Attendees))
	if attendees >= e.Capacity {
		return 0
	}
	return e.Capacity - attendees
}
