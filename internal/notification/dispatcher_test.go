package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	args := m.Called(ctx, channel, message)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}

func TestRedisDispatcherPublishesJSON(t *testing.T) {
	ctx := context.Background()
	pub := new(mockPublisher)
	pub.On("Publish", ctx, "ticket-notifications", mock.Anything).Return(1, nil)

	d := NewRedisDispatcher(pub, "ticket-notifications", zap.NewNop())
	err := d.Dispatch(ctx, Message{
		Type:           TypeTicketCreated,
		TicketID:       "t-1",
		OrganizationID: "org-1",
		Recipients:     []string{"u1", "u2"},
		Meta:           Meta{DV: 1, Data: map[string]any{"ticket_number": 42}},
	})
	require.NoError(t, err)
	pub.AssertExpectations(t)

	raw := pub.Calls[0].Arguments.Get(2).([]byte)
	var got Message
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"u1", "u2"}, got.Recipients)
	assert.Equal(t, 1, got.Meta.DV)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRedisDispatcherSkipsEmptyAudience(t *testing.T) {
	pub := new(mockPublisher)
	d := NewRedisDispatcher(pub, "ticket-notifications", zap.NewNop())

	require.NoError(t, d.Dispatch(context.Background(), Message{Type: TypeTicketCreated}))
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedisDispatcherPublishError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("connection reset"))
	d := NewRedisDispatcher(pub, "ticket-notifications", zap.NewNop())

	err := d.Dispatch(context.Background(), Message{Recipients: []string{"u1"}})
	assert.ErrorContains(t, err, "publish notification")
}
