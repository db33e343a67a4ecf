package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusDeclined   TicketStatus = "DECLINED"
	TicketStatusDeferred   TicketStatus = "DEFERRED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusCompleted,
		TicketStatusClosed, TicketStatusDeclined, TicketStatusDeferred:
		return true
	}
	return false
}

// Ticket is the aggregate for property maintenance requests.
type Ticket struct {
	ID                   string
	Number               int64
	OrganizationID       string
	PropertyID           *string
	CategoryClassifierID *string
	Status               TicketStatus
	StatusUpdatedAt      time.Time
	DeferredUntil        *time.Time
	ExecutorID           *string
	AssigneeID           *string
	CreatedByID          string
	DV                   int
	Sender               Sender
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

// Sender identifies who originated a write. Automated writes carry a fixed fingerprint.
type Sender struct {
	DV          int    `json:"dv"`
	Fingerprint string `json:"fingerprint"`
}

// AuditDataVersion is the data version stamped on every automated write.
const AuditDataVersion = 1

// AutomationSender builds the sender marker for an automated actor.
func AutomationSender(fingerprint string) Sender {
	return Sender{DV: AuditDataVersion, Fingerprint: fingerprint}
}

// TicketPatch describes a single write against a ticket. Nil fields are left unchanged.
type TicketPatch struct {
	Status             *TicketStatus
	DisconnectExecutor bool
	DisconnectAssignee bool
	DV                 int
	Sender             Sender

	// ExpectStatus turns the write into a no-op unless the ticket still has this status.
	ExpectStatus *TicketStatus
	// ExpectStatusUpdatedBefore and ExpectDeferredUntilBefore re-check the time filters of the
	// scan that selected the ticket.
	ExpectStatusUpdatedBefore *time.Time
	ExpectDeferredUntilBefore *time.Time
}
