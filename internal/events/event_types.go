package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-automation/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketCommentCreated EventType = "ticket_comment_created"
	EventTicketStatusChanged  EventType = "ticket_status_changed"
)

// Known reports whether t is an event type this service handles.
func (t EventType) Known() bool {
	switch t {
	case EventTicketCreated, EventTicketCommentCreated, EventTicketStatusChanged:
		return true
	}
	return false
}

// Actor identifies who caused an event. Automated actors have no user id but carry a fingerprint.
type Actor struct {
	UserID      *string `json:"user_id,omitempty"`
	Fingerprint string  `json:"fingerprint,omitempty"`
}

// Event represents a ticket event, either raised locally or received from the ticket events channel.
type Event struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"type"`
	TicketID       string          `json:"ticket_id"`
	OrganizationID string          `json:"organization_id"`
	Actor          Actor           `json:"actor"`
	Timestamp      time.Time       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh id, encoding payload as JSON.
func NewEvent(eventType EventType, ticket domain.Ticket, actor Actor, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		Actor:          actor,
		Timestamp:      time.Now().UTC(),
		Payload:        raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Payload, v)
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number int64 `json:"number"`
}

// TicketCommentCreatedPayload payload.
type TicketCommentCreatedPayload struct {
	CommentID   string                   `json:"comment_id"`
	CommentType domain.TicketCommentType `json:"comment_type"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
