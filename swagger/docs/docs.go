package docs

// swagger:parameters findEventById updateEvent deleteEvent joinEvent leaveEvent eventFeed
type IdParam struct {
	// in: path
	// required: true
	ID uint `json:"id"`
}

// swagger:parameters findEventBySlug
type SlugParam struct {
	// in: path
	// required: true
	Slug string `json:"slug"`
}

// swagger:parameters listEvents
type ListEventsParams struct {
	// Free text matched against title and location
	// in: query
	Q string `json:"q"`
	// Lower bound on the scheduled time, RFC 3339
	// in: query
	From string `json:"from"`
	// Upper bound on the scheduled time, RFC 3339
	// in: query
	To string `json:"to"`
	// Only events that haven't taken place yet
	// in: query
	Upcoming bool `json:"upcoming"`
}

// swagger:response
type Error struct {
	// The error message
	//in: body
	Message string
}
