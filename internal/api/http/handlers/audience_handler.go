package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-automation/internal/api/dto"
	"github.com/spec-kit/ticket-automation/internal/domain"
	apperrors "github.com/spec-kit/ticket-automation/pkg/util/errorutil"
)

// AudienceResolver computes ticket audiences.
type AudienceResolver interface {
	Audience(ctx context.Context, ticketID string, excludeUserID *string) (*domain.Ticket, []string, error)
}

// AudienceHandler previews who would be notified about a ticket.
type AudienceHandler struct {
	resolver AudienceResolver
}

// NewAudienceHandler constructs handler.
func NewAudienceHandler(resolver AudienceResolver) *AudienceHandler {
	return &AudienceHandler{resolver: resolver}
}

// Get GET /tickets/:id/audience.
func (h *AudienceHandler) Get(c *fiber.Ctx) error {
	var q dto.AudienceQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := validate.Struct(q); err != nil {
		return apperrors.NewValidationError("invalid query", validationDetails(err))
	}
	var exclude *string
	if q.Exclude != "" {
		exclude = &q.Exclude
	}

	ticket, recipients, err := h.resolver.Audience(c.UserContext(), c.Params("id"), exclude)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AudienceResponse{
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		Status:         ticket.Status,
		Recipients:     recipients,
		Count:          len(recipients),
	}})
}
