package types

// Ticket is the subset of a HaloPSA ticket this service consumes.
// Pointer fields distinguish "absent" from a zero value: HasBeenClosed is
// tri-state (only a strict true counts as closed) and the id fields may be
// missing entirely on older tickets.
type Ticket struct {
	ID            int     `json:"id"`
	TicketTypeID  *int    `json:"tickettype_id"`
	PriorityID    *int    `json:"priority_id"`
	HasBeenClosed *bool   `json:"hasbeenclosed"`
	DateOccurred  string  `json:"dateoccurred"`
	ResponseDate  string  `json:"responsedate"`
	DateClosed    string  `json:"dateclosed"`
	TicketAge     float64 `json:"ticketage"`
	Summary       string  `json:"summary,omitempty"`
}

// Client is a HaloPSA customer account.
type Client struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Recommendation is one strategic recommendation for the review deck.
type Recommendation struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
}
