// Package tasks binds the batch transitioner to the ticket lifecycle rules run on a schedule.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/batch"
	"github.com/spec-kit/ticket-automation/internal/domain"
	"github.com/spec-kit/ticket-automation/internal/events"
	"github.com/spec-kit/ticket-automation/internal/repository"
)

// Task is a named unit of scheduled work.
type Task interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) (batch.Result, error)
}

// Sender fingerprints stamped on automated writes.
const (
	AutoCloseFingerprint  = "auto-close"
	AutoReopenFingerprint = "auto-reopen"
)

// Task names, also used as lease keys and in the HTTP API.
const (
	AutoCloseName  = "ticket-auto-close"
	AutoReopenName = "ticket-auto-reopen"
)

// ticketSource pages through tickets matching a fixed query.
type ticketSource struct {
	repo  repository.TicketRepository
	query repository.TicketQuery
}

func (s ticketSource) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx, s.query)
}

func (s ticketSource) Fetch(ctx context.Context, skip, limit int) ([]domain.Ticket, error) {
	return s.repo.FindMany(ctx, s.query, repository.Page{Skip: skip, Limit: limit})
}

func ticketID(t domain.Ticket) string { return t.ID }

func ticketOrganization(t domain.Ticket) string { return t.OrganizationID }

// transition applies patch to t and announces the new status on bus.
type transition struct {
	repo   repository.TicketRepository
	bus    events.Dispatcher
	logger *zap.Logger
	to     domain.TicketStatus
	sender domain.Sender

	disconnect bool

	// guards copied onto every write so a ticket edited since the scan is left alone
	statusUpdatedBefore *time.Time
	deferredUntilBefore *time.Time
}

func (tr transition) apply(ctx context.Context, t domain.Ticket) error {
	from := t.Status
	to := tr.to
	patch := domain.TicketPatch{
		Status:             &to,
		DisconnectExecutor: tr.disconnect,
		DisconnectAssignee: tr.disconnect,
		DV:                 domain.AuditDataVersion,
		Sender:             tr.sender,
		ExpectStatus:       &from,

		ExpectStatusUpdatedBefore: tr.statusUpdatedBefore,
		ExpectDeferredUntilBefore: tr.deferredUntilBefore,
	}
	err := tr.repo.Update(ctx, t.ID, patch)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ticket %s: %w", t.ID, batch.ErrGone)
	}
	if err != nil {
		return err
	}
	tr.announce(ctx, t, from)
	return nil
}

func (tr transition) announce(ctx context.Context, t domain.Ticket, from domain.TicketStatus) {
	if tr.bus == nil {
		return
	}
	event, err := events.NewEvent(events.EventTicketStatusChanged, t,
		events.Actor{Fingerprint: tr.sender.Fingerprint},
		events.TicketStatusChangedPayload{OldStatus: from, NewStatus: tr.to})
	if err != nil {
		tr.logger.Warn("failed to build status event", zap.String("ticket_id", t.ID), zap.Error(err))
		return
	}
	if err := tr.bus.Publish(ctx, event); err != nil {
		tr.logger.Warn("failed to publish status event", zap.String("ticket_id", t.ID), zap.Error(err))
	}
}

type clock func() time.Time
