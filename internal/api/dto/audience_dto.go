package dto

import "github.com/spec-kit/ticket-automation/internal/domain"

// AudienceQuery filters an audience preview.
type AudienceQuery struct {
	Exclude string `query:"exclude" validate:"omitempty,max=64"`
}

// AudienceResponse lists the users entitled to read a ticket.
type AudienceResponse struct {
	TicketID       string              `json:"ticket_id"`
	OrganizationID string              `json:"organization_id"`
	Status         domain.TicketStatus `json:"status"`
	Recipients     []string            `json:"recipients"`
	Count          int                 `json:"count"`
}
