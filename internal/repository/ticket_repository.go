package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-automation/internal/domain"
)

// TicketRepository is the record store used by the automation tasks.
type TicketRepository interface {
	Count(ctx context.Context, query TicketQuery) (int, error)
	FindMany(ctx context.Context, query TicketQuery, page Page) ([]domain.Ticket, error)
	Update(ctx context.Context, id string, patch domain.TicketPatch) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, organization_id, property_id, category_classifier_id, status,
       status_updated_at, deferred_until, executor_id, assignee_id, created_by_id,
       dv, sender, created_at, updated_at, deleted_at`

func (r *ticketRepository) Count(ctx context.Context, query TicketQuery) (int, error) {
	where, args := query.where()
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tickets WHERE "+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) FindMany(ctx context.Context, query TicketQuery, page Page) ([]domain.Ticket, error) {
	where, args := query.where()

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	skip := page.Skip
	if skip < 0 {
		skip = 0
	}

	sql := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketColumns, where, query.orderBy(), limit, skip)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) error {
	sets := []string{"updated_at=NOW()", "dv=$1", "sender=$2"}
	args := []any{patch.DV, patch.Sender}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)), "status_updated_at=NOW()")
	}
	if patch.DisconnectExecutor {
		sets = append(sets, "executor_id=NULL")
	}
	if patch.DisconnectAssignee {
		sets = append(sets, "assignee_id=NULL")
	}

	args = append(args, id)
	clauses := []string{fmt.Sprintf("id=$%d", len(args)), "deleted_at IS NULL"}
	if patch.ExpectStatus != nil {
		args = append(args, *patch.ExpectStatus)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if patch.ExpectStatusUpdatedBefore != nil {
		args = append(args, *patch.ExpectStatusUpdatedBefore)
		clauses = append(clauses, fmt.Sprintf("status_updated_at <= $%d", len(args)))
	}
	if patch.ExpectDeferredUntilBefore != nil {
		args = append(args, *patch.ExpectDeferredUntilBefore)
		clauses = append(clauses, fmt.Sprintf("deferred_until <= $%d", len(args)))
	}

	sql := fmt.Sprintf("UPDATE tickets SET %s WHERE %s", strings.Join(sets, ", "), strings.Join(clauses, " AND "))
	cmd, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	sql := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 AND deleted_at IS NULL`, ticketColumns)
	rows, err := r.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.OrganizationID,
			&ticket.PropertyID,
			&ticket.CategoryClassifierID,
			&ticket.Status,
			&ticket.StatusUpdatedAt,
			&ticket.DeferredUntil,
			&ticket.ExecutorID,
			&ticket.AssigneeID,
			&ticket.CreatedByID,
			&ticket.DV,
			&ticket.Sender,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
