package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/domain"
	"github.com/spec-kit/ticket-automation/internal/events"
	"github.com/spec-kit/ticket-automation/internal/notification"
	"github.com/spec-kit/ticket-automation/internal/repository"
)

type mockTicketRepository struct {
	mock.Mock
}

func (m *mockTicketRepository) Count(ctx context.Context, q repository.TicketQuery) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *mockTicketRepository) FindMany(ctx context.Context, q repository.TicketQuery, p repository.Page) ([]domain.Ticket, error) {
	args := m.Called(ctx, q, p)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *mockTicketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) error {
	return m.Called(ctx, id, patch).Error(0)
}

func (m *mockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

type mockVisibilityRepository struct {
	mock.Mock
}

func (m *mockVisibilityRepository) LoadOrganization(ctx context.Context, orgID string) (*repository.OrganizationSnapshot, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.OrganizationSnapshot), args.Error(1)
}

type mockCommentRepository struct {
	mock.Mock
}

func (m *mockCommentRepository) GetByID(ctx context.Context, id string) (*domain.TicketComment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketComment), args.Error(1)
}

type mockChangeRepository struct {
	mock.Mock
}

func (m *mockChangeRepository) Create(ctx context.Context, change *domain.TicketChange) error {
	return m.Called(ctx, change).Error(0)
}

func (m *mockChangeRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketChange, error) {
	args := m.Called(ctx, ticketID)
	return args.Get(0).([]domain.TicketChange), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Dispatch(ctx context.Context, msg notification.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func ptr[T any](v T) *T { return &v }

func sampleTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:             "ticket-1",
		Number:         42,
		OrganizationID: "org-1",
		PropertyID:     ptr("property-1"),
		Status:         domain.TicketStatusOpen,
		ExecutorID:     ptr("executor"),
		CreatedByID:    "creator",
	}
}

func sampleSnapshot() *repository.OrganizationSnapshot {
	return &repository.OrganizationSnapshot{
		Roles: []domain.OrganizationEmployeeRole{
			{ID: "admin", OrganizationID: "org-1", TicketVisibilityType: domain.VisibilityOrganization, CanReadTickets: true},
		},
		Employees: []domain.OrganizationEmployee{
			{ID: "e1", OrganizationID: "org-1", UserID: "creator", RoleID: ptr("admin")},
			{ID: "e2", OrganizationID: "org-1", UserID: "manager", RoleID: ptr("admin")},
			{ID: "e3", OrganizationID: "org-1", UserID: "commenter", RoleID: ptr("admin")},
		},
	}
}

type fixture struct {
	tickets    *mockTicketRepository
	visibility *mockVisibilityRepository
	comments   *mockCommentRepository
	changes    *mockChangeRepository
	notifier   *mockNotifier
	bus        events.Dispatcher
	svc        *NotificationService
}

func newFixture() *fixture {
	f := &fixture{
		tickets:    new(mockTicketRepository),
		visibility: new(mockVisibilityRepository),
		comments:   new(mockCommentRepository),
		changes:    new(mockChangeRepository),
		notifier:   new(mockNotifier),
		bus:        events.NewInMemoryDispatcher(zap.NewNop()),
	}
	f.svc = NewNotificationService(f.bus, NotificationStores{
		Tickets:    f.tickets,
		Visibility: f.visibility,
		Comments:   f.comments,
		Changes:    f.changes,
	}, f.notifier, zap.NewNop())
	f.svc.RegisterHandlers()
	return f
}

func TestTicketCreatedNotifiesAudienceExceptCreator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.tickets.On("GetByID", ctx, "ticket-1").Return(sampleTicket(), nil)
	f.visibility.On("LoadOrganization", ctx, "org-1").Return(sampleSnapshot(), nil)
	f.notifier.On("Dispatch", ctx, mock.Anything).Return(nil)

	event, err := events.NewEvent(events.EventTicketCreated, *sampleTicket(), events.Actor{}, events.TicketCreatedPayload{Number: 42})
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(ctx, event))

	f.notifier.AssertNumberOfCalls(t, "Dispatch", 1)
	msg := f.notifier.Calls[0].Arguments.Get(1).(notification.Message)
	assert.Equal(t, notification.TypeTicketCreated, msg.Type)
	assert.Equal(t, "org-1", msg.OrganizationID)
	assert.Equal(t, []string{"commenter", "executor", "manager"}, msg.Recipients)
	assert.Equal(t, 1, msg.Meta.DV)
	assert.Equal(t, int64(42), msg.Meta.Data["ticket_number"])
}

func TestCommentCreatedExcludesAuthor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.tickets.On("GetByID", ctx, "ticket-1").Return(sampleTicket(), nil)
	f.visibility.On("LoadOrganization", ctx, "org-1").Return(sampleSnapshot(), nil)
	f.notifier.On("Dispatch", ctx, mock.Anything).Return(nil)

	event, err := events.NewEvent(events.EventTicketCommentCreated, *sampleTicket(),
		events.Actor{UserID: ptr("commenter")},
		events.TicketCommentCreatedPayload{CommentID: "c-1", CommentType: domain.CommentTypeOrganization})
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(ctx, event))

	msg := f.notifier.Calls[0].Arguments.Get(1).(notification.Message)
	assert.Equal(t, notification.TypeTicketCommentCreated, msg.Type)
	assert.Equal(t, []string{"creator", "executor", "manager"}, msg.Recipients)
	assert.Equal(t, "c-1", msg.Meta.Data["comment_id"])
}

func TestEmptyAudienceIsNotDispatched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := sampleTicket()
	ticket.ExecutorID = nil
	f.tickets.On("GetByID", ctx, "ticket-1").Return(ticket, nil)
	f.visibility.On("LoadOrganization", ctx, "org-1").Return(&repository.OrganizationSnapshot{}, nil)

	event, err := events.NewEvent(events.EventTicketCreated, *ticket, events.Actor{}, events.TicketCreatedPayload{})
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(ctx, event))

	f.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestAudienceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing ticket", func(t *testing.T) {
		f := newFixture()
		f.tickets.On("GetByID", ctx, "gone").Return(nil, pgx.ErrNoRows)

		_, _, err := f.svc.Audience(ctx, "gone", nil)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("visibility store down", func(t *testing.T) {
		f := newFixture()
		f.tickets.On("GetByID", ctx, "ticket-1").Return(sampleTicket(), nil)
		f.visibility.On("LoadOrganization", ctx, "org-1").Return(nil, errors.New("timeout"))

		_, _, err := f.svc.Audience(ctx, "ticket-1", nil)
		assert.ErrorContains(t, err, "load organization org-1")
	})
}

func TestDispatchFailureIsReturnedToBus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.tickets.On("GetByID", ctx, "ticket-1").Return(sampleTicket(), nil)
	f.visibility.On("LoadOrganization", ctx, "org-1").Return(sampleSnapshot(), nil)
	f.notifier.On("Dispatch", ctx, mock.Anything).Return(errors.New("redis down"))

	event, err := events.NewEvent(events.EventTicketCreated, *sampleTicket(), events.Actor{}, events.TicketCreatedPayload{})
	require.NoError(t, err)

	err = f.svc.handleTicketCreated(ctx, event)
	assert.ErrorContains(t, err, "dispatch TICKET_CREATED for ticket ticket-1")
}

func TestCommentCreatedWithoutActorLoadsAuthor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.tickets.On("GetByID", ctx, "ticket-1").Return(sampleTicket(), nil)
	f.visibility.On("LoadOrganization", ctx, "org-1").Return(sampleSnapshot(), nil)
	f.comments.On("GetByID", ctx, "c-1").Return(&domain.TicketComment{ID: "c-1", UserID: "manager"}, nil)
	f.notifier.On("Dispatch", ctx, mock.Anything).Return(nil)

	event, err := events.NewEvent(events.EventTicketCommentCreated, *sampleTicket(), events.Actor{},
		events.TicketCommentCreatedPayload{CommentID: "c-1", CommentType: domain.CommentTypeResident})
	require.NoError(t, err)
	require.NoError(t, f.svc.handleTicketCommentCreated(ctx, event))

	msg := f.notifier.Calls[0].Arguments.Get(1).(notification.Message)
	assert.Equal(t, []string{"commenter", "creator", "executor"}, msg.Recipients)
}

func TestCommentCreatedMissingComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.comments.On("GetByID", ctx, "c-9").Return(nil, pgx.ErrNoRows)

	event, err := events.NewEvent(events.EventTicketCommentCreated, *sampleTicket(), events.Actor{},
		events.TicketCommentCreatedPayload{CommentID: "c-9"})
	require.NoError(t, err)

	err = f.svc.handleTicketCommentCreated(ctx, event)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	f.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestStatusChangedRecordsChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.changes.On("Create", ctx, mock.Anything).Return(nil)

	event, err := events.NewEvent(events.EventTicketStatusChanged, *sampleTicket(), events.Actor{Fingerprint: "auto-close"},
		events.TicketStatusChangedPayload{OldStatus: domain.TicketStatusCompleted, NewStatus: domain.TicketStatusClosed})
	require.NoError(t, err)

	require.NoError(t, f.svc.handleTicketStatusChanged(ctx, event))
	f.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.tickets.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)

	change := f.changes.Calls[0].Arguments.Get(1).(*domain.TicketChange)
	assert.Equal(t, "ticket-1", change.TicketID)
	assert.Equal(t, domain.TicketStatusCompleted, change.StatusFrom)
	assert.Equal(t, domain.TicketStatusClosed, change.StatusTo)
	assert.Equal(t, "auto-close", change.Fingerprint)
	assert.Equal(t, event.ID, change.EventID)
	assert.Nil(t, change.ActorID)
}

func TestStatusChangedStoreFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.changes.On("Create", ctx, mock.Anything).Return(errors.New("disk full"))

	event, err := events.NewEvent(events.EventTicketStatusChanged, *sampleTicket(), events.Actor{Fingerprint: "auto-reopen"},
		events.TicketStatusChangedPayload{OldStatus: domain.TicketStatusDeferred, NewStatus: domain.TicketStatusOpen})
	require.NoError(t, err)

	err = f.svc.handleTicketStatusChanged(ctx, event)
	assert.ErrorContains(t, err, "record status change for ticket ticket-1")
}
