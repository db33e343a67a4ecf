package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/ticket-automation/internal/domain"
	apperrors "github.com/spec-kit/ticket-automation/pkg/util/errorutil"
)

// TicketSort is a deterministic sort key.
type TicketSort string

const (
	SortCreatedAtAsc TicketSort = "createdAt_ASC"
	SortCreatedByAsc TicketSort = "createdBy_ASC"
	SortIDAsc        TicketSort = "id_ASC"
)

var sortColumns = map[TicketSort]string{
	SortCreatedAtAsc: "created_at ASC",
	SortCreatedByAsc: "created_by_id ASC",
	SortIDAsc:        "id ASC",
}

// TicketQuery selects non-deleted tickets. Build it with NewTicketQuery.
type TicketQuery struct {
	Status              domain.TicketStatus `validate:"required,ticket_status"`
	OrganizationID      *string             `validate:"omitnil,min=1"`
	StatusUpdatedBefore *time.Time
	DeferredUntilBefore *time.Time
	Sort                []TicketSort `validate:"required,min=1,dive,oneof=createdAt_ASC createdBy_ASC id_ASC"`
}

// Page bounds a FindMany call.
type Page struct {
	Skip  int
	Limit int
}

var queryValidator = newQueryValidator()

func newQueryValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	})
	if err != nil {
		panic(fmt.Sprintf("register ticket_status validation: %v", err))
	}
	return v
}

// NewTicketQuery validates q and returns it.
func NewTicketQuery(q TicketQuery) (TicketQuery, error) {
	if err := queryValidator.Struct(q); err != nil {
		return TicketQuery{}, apperrors.NewValidationError("invalid ticket query", map[string]any{"reason": err.Error()})
	}
	return q, nil
}

// CompletedBefore matches COMPLETED tickets whose status changed at or before cutoff.
func CompletedBefore(cutoff time.Time) (TicketQuery, error) {
	return NewTicketQuery(TicketQuery{
		Status:              domain.TicketStatusCompleted,
		StatusUpdatedBefore: &cutoff,
		Sort:                []TicketSort{SortCreatedAtAsc, SortCreatedByAsc, SortIDAsc},
	})
}

// DeferredUntilPassed matches DEFERRED tickets whose deferral ended at or before now.
func DeferredUntilPassed(now time.Time) (TicketQuery, error) {
	return NewTicketQuery(TicketQuery{
		Status:              domain.TicketStatusDeferred,
		DeferredUntilBefore: &now,
		Sort:                []TicketSort{SortCreatedAtAsc, SortCreatedByAsc, SortIDAsc},
	})
}

// Matches evaluates the query against a ticket in memory.
func (q TicketQuery) Matches(t domain.Ticket) bool {
	if t.DeletedAt != nil || t.Status != q.Status {
		return false
	}
	if q.OrganizationID != nil && t.OrganizationID != *q.OrganizationID {
		return false
	}
	if q.StatusUpdatedBefore != nil && t.StatusUpdatedAt.After(*q.StatusUpdatedBefore) {
		return false
	}
	if q.DeferredUntilBefore != nil {
		if t.DeferredUntil == nil || t.DeferredUntil.After(*q.DeferredUntilBefore) {
			return false
		}
	}
	return true
}

func (q TicketQuery) where() (string, []any) {
	clauses := []string{"deleted_at IS NULL"}
	args := []any{}

	args = append(args, q.Status)
	clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))

	if q.OrganizationID != nil {
		args = append(args, *q.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(args)))
	}
	if q.StatusUpdatedBefore != nil {
		args = append(args, *q.StatusUpdatedBefore)
		clauses = append(clauses, fmt.Sprintf("status_updated_at <= $%d", len(args)))
	}
	if q.DeferredUntilBefore != nil {
		args = append(args, *q.DeferredUntilBefore)
		clauses = append(clauses, fmt.Sprintf("deferred_until <= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func (q TicketQuery) orderBy() string {
	parts := make([]string, 0, len(q.Sort))
	for _, s := range q.Sort {
		if col, ok := sortColumns[s]; ok {
			parts = append(parts, col)
		}
	}
	if len(parts) == 0 {
		return "id ASC"
	}
	return strings.Join(parts, ", ")
}
