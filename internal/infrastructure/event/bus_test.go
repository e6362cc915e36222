package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Registration", uuid.New(), uuid.New())}
}

type recordingHandler struct {
	mu    sync.Mutex
	types []string
	seen  []string
	err   error
	panic bool
}

func (h *recordingHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if h.panic {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, evt.EventType())
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func TestBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("routes by event type", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		approved := &recordingHandler{types: []string{"RegistrationApproved"}}
		rejected := &recordingHandler{types: []string{"RegistrationRejected"}}
		all := &recordingHandler{}
		bus.Subscribe(approved)
		bus.Subscribe(rejected)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx, newTestEvent("RegistrationApproved"), newTestEvent("RegistrationRejected")))

		assert.Equal(t, []string{"RegistrationApproved"}, approved.seen)
		assert.Equal(t, []string{"RegistrationRejected"}, rejected.seen)
		assert.Equal(t, []string{"RegistrationApproved", "RegistrationRejected"}, all.seen)
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		h := &recordingHandler{types: []string{"A"}}
		bus.Subscribe(h, "B")

		require.NoError(t, bus.Publish(ctx, newTestEvent("A"), newTestEvent("B")))
		assert.Equal(t, []string{"B"}, h.seen)
	})

	t.Run("failures do not stop other handlers", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"A"}, err: errors.New("smtp down")}
		panicking := &recordingHandler{types: []string{"A"}, panic: true}
		ok := &recordingHandler{types: []string{"A"}}
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		assert.NoError(t, bus.Publish(ctx, newTestEvent("A")))
		assert.Equal(t, []string{"A"}, failing.seen)
		assert.Equal(t, []string{"A"}, ok.seen)
	})
}

type deadlineHandler struct {
	hadDeadline bool
	cancelled   bool
}

func (h *deadlineHandler) Handle(ctx context.Context, _ shared.DomainEvent) error {
	_, h.hadDeadline = ctx.Deadline()
	h.cancelled = ctx.Err() != nil
	return nil
}

func (h *deadlineHandler) EventTypes() []string { return nil }

func TestBus_HandlerContextOutlivesCaller(t *testing.T) {
	bus := NewBus(zap.NewNop(), WithHandlerTimeout(time.Second))
	h := &deadlineHandler{}
	bus.Subscribe(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, bus.Publish(ctx, newTestEvent("A")))

	assert.True(t, h.hadDeadline)
	assert.False(t, h.cancelled)
}
