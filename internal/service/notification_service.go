package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/domain"
	"github.com/spec-kit/ticket-automation/internal/events"
	"github.com/spec-kit/ticket-automation/internal/notification"
	"github.com/spec-kit/ticket-automation/internal/repository"
	"github.com/spec-kit/ticket-automation/internal/visibility"
)

// NotificationStores groups the repositories the notification service reads and writes.
type NotificationStores struct {
	Tickets    repository.TicketRepository
	Visibility repository.VisibilityRepository
	Comments   repository.TicketCommentRepository
	Changes    repository.TicketChangeRepository
}

// NotificationService resolves who should hear about ticket events and dispatches to them.
type NotificationService struct {
	events     events.Dispatcher
	tickets    repository.TicketRepository
	visibility repository.VisibilityRepository
	comments   repository.TicketCommentRepository
	changes    repository.TicketChangeRepository
	notifier   notification.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(bus events.Dispatcher, stores NotificationStores, notifier notification.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		events:     bus,
		tickets:    stores.Tickets,
		visibility: stores.Visibility,
		comments:   stores.Comments,
		changes:    stores.Changes,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.events == nil {
		return
	}
	n.events.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.events.Subscribe(events.EventTicketCommentCreated, n.handleTicketCommentCreated)
	n.events.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

// Audience returns the users entitled to read ticketID, minus excludeUserID when set.
func (n *NotificationService) Audience(ctx context.Context, ticketID string, excludeUserID *string) (*domain.Ticket, []string, error) {
	ticket, err := n.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	snapshot, err := n.visibility.LoadOrganization(ctx, ticket.OrganizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load organization %s: %w", ticket.OrganizationID, err)
	}

	audience := visibility.Resolve(visibility.Input{
		Ticket:          *ticket,
		Employees:       snapshot.Employees,
		Roles:           snapshot.Roles,
		Scopes:          snapshot.Scopes,
		ScopeProperties: snapshot.ScopeProperties,
		ScopeEmployees:  snapshot.ScopeEmployees,
		Specializations: snapshot.Specializations,
	}, visibility.Options{ExcludeUserID: excludeUserID})
	return ticket, audience.Slice(), nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	actor := event.Actor.UserID
	ticket, recipients, err := n.Audience(ctx, event.TicketID, actor)
	if err != nil {
		return err
	}
	if actor == nil {
		// events from external producers may omit the actor; the creator never notifies themself
		recipients = visibility.NewUserSet(recipients...).Without(ticket.CreatedByID).Slice()
	}

	return n.dispatch(ctx, notification.Message{
		Type:           notification.TypeTicketCreated,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		Recipients:     recipients,
		Meta: notification.Meta{
			DV:   domain.AuditDataVersion,
			Data: map[string]any{"ticket_number": ticket.Number, "ticket_status": ticket.Status},
		},
	})
}

func (n *NotificationService) handleTicketCommentCreated(ctx context.Context, event events.Event) error {
	var payload events.TicketCommentCreatedPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode comment event %s: %w", event.ID, err)
	}
	author := event.Actor.UserID
	if author == nil && n.comments != nil {
		comment, err := n.comments.GetByID(ctx, payload.CommentID)
		if err != nil {
			return fmt.Errorf("load comment %s: %w", payload.CommentID, err)
		}
		author = &comment.UserID
	}
	ticket, recipients, err := n.Audience(ctx, event.TicketID, author)
	if err != nil {
		return err
	}

	return n.dispatch(ctx, notification.Message{
		Type:           notification.TypeTicketCommentCreated,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		Recipients:     recipients,
		Meta: notification.Meta{
			DV: domain.AuditDataVersion,
			Data: map[string]any{
				"ticket_number": ticket.Number,
				"comment_id":    payload.CommentID,
				"comment_type":  payload.CommentType,
			},
		},
	})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	var payload events.TicketStatusChangedPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode status event %s: %w", event.ID, err)
	}
	n.logger.Info("ticket status changed",
		zap.String("ticket_id", event.TicketID),
		zap.String("organization_id", event.OrganizationID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)),
		zap.String("fingerprint", event.Actor.Fingerprint))

	if n.changes == nil {
		return nil
	}
	change := &domain.TicketChange{
		TicketID:    event.TicketID,
		StatusFrom:  payload.OldStatus,
		StatusTo:    payload.NewStatus,
		ActorID:     event.Actor.UserID,
		Fingerprint: event.Actor.Fingerprint,
		EventID:     event.ID,
	}
	if err := n.changes.Create(ctx, change); err != nil {
		return fmt.Errorf("record status change for ticket %s: %w", event.TicketID, err)
	}
	return nil
}

func (n *NotificationService) dispatch(ctx context.Context, msg notification.Message) error {
	if len(msg.Recipients) == 0 {
		n.logger.Debug("no audience for ticket", zap.String("ticket_id", msg.TicketID), zap.String("type", msg.Type))
		return nil
	}
	if err := n.notifier.Dispatch(ctx, msg); err != nil {
		return fmt.Errorf("dispatch %s for ticket %s: %w", msg.Type, msg.TicketID, err)
	}
	n.logger.Info("notification dispatched",
		zap.String("ticket_id", msg.TicketID),
		zap.String("type", msg.Type),
		zap.Int("recipients", len(msg.Recipients)))
	return nil
}
