package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-automation/internal/domain"
)

// TicketChangeRepository stores status transition audit entries.
type TicketChangeRepository interface {
	Create(ctx context.Context, change *domain.TicketChange) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketChange, error)
}

type ticketChangeRepository struct {
	pool *pgxpool.Pool
}

// NewTicketChangeRepository builds repository.
func NewTicketChangeRepository(pool *pgxpool.Pool) TicketChangeRepository {
	return &ticketChangeRepository{pool: pool}
}

// Create is a no-op when an entry for the same event already exists.
func (r *ticketChangeRepository) Create(ctx context.Context, change *domain.TicketChange) error {
	const query = `
        INSERT INTO ticket_changes (ticket_id, status_from, status_to, actor_id, fingerprint, event_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		change.TicketID,
		change.StatusFrom,
		change.StatusTo,
		change.ActorID,
		change.Fingerprint,
		change.EventID,
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *ticketChangeRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketChange, error) {
	const query = `
        SELECT id, ticket_id, status_from, status_to, actor_id, fingerprint, event_id, created_at
        FROM ticket_changes WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketChange
	for rows.Next() {
		var change domain.TicketChange
		if err := rows.Scan(
			&change.ID,
			&change.TicketID,
			&change.StatusFrom,
			&change.StatusTo,
			&change.ActorID,
			&change.Fingerprint,
			&change.EventID,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
