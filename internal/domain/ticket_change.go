package domain

import "time"

// TicketChange is an immutable audit entry for a status transition.
type TicketChange struct {
	ID          string
	TicketID    string
	StatusFrom  TicketStatus
	StatusTo    TicketStatus
	ActorID     *string
	Fingerprint string
	EventID     string
	CreatedAt   time.Time
}
