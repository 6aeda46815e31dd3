package services_test

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/consultbook/internal/application/services"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	domainproviders "github.com/zatekoja/consultbook/internal/domain/providers"
)

// memEventBus is a process-local bus sufficient for listener tests.
type memEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.BookingEvent
}

func newMemEventBus() *memEventBus {
	return &memEventBus{subscribers: make(map[string][]chan *entities.BookingEvent)}
}

func (b *memEventBus) Publish(_ context.Context, channel string, event *entities.BookingEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subscriber := range b.subscribers[channel] {
		subscriber <- event
	}
	return nil
}

func (b *memEventBus) Subscribe(_ context.Context, channel string) (<-chan *entities.BookingEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *entities.BookingEvent, 16)
	b.subscribers[channel] = append(b.subscribers[channel], ch)
	return ch, nil
}

func (b *memEventBus) Unsubscribe(context.Context, string) error { return nil }

func (b *memEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			close(ch)
		}
	}
	b.subscribers = make(map[string][]chan *entities.BookingEvent)
	return nil
}

// captureSender records sent notifications.
type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *captureSender) Send(_ context.Context, to, subject, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to+":"+subject)
	return nil
}

func (s *captureSender) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestSettlementListener(t *testing.T) {
	ctx := context.Background()

	newListener := func() (*services.SettlementListener, *memEventBus, *captureSender) {
		bus := newMemEventBus()
		sender := &captureSender{}
		users := newMemUserRepo(&entities.User{ID: "user-1", Email: "nimal@example.com"})
		listener := services.NewSettlementListener(bus, services.NewNotificationService(users, sender))
		return listener, bus, sender
	}

	settled := func(status entities.PaymentStatus) *entities.BookingEvent {
		return &entities.BookingEvent{
			ID:            "evt-1",
			Type:          entities.BookingEventPaymentSettled,
			AppointmentID: "appt-1",
			UserID:        "user-1",
			PaymentStatus: status,
			OccurredAt:    time.Now(),
		}
	}

	t.Run("sends a receipt when a payment completes", func(t *testing.T) {
		listener, bus, sender := newListener()
		assert.NoError(t, listener.Start())
		defer listener.Stop()

		assert.NoError(t, bus.Publish(ctx, domainproviders.EventChannelPayments, settled(entities.PaymentStatusCompleted)))

		assert.Eventually(t, func() bool {
			return len(sender.snapshot()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, "nimal@example.com:Payment received", sender.snapshot()[0])
	})

	t.Run("returns when the bus closes its channel", func(t *testing.T) {
		listener, bus, sender := newListener()
		before := runtime.NumGoroutine()
		assert.NoError(t, listener.Start())
		defer listener.Stop()

		assert.NoError(t, bus.Publish(ctx, domainproviders.EventChannelPayments, settled(entities.PaymentStatusCompleted)))
		assert.Eventually(t, func() bool {
			return len(sender.snapshot()) == 1
		}, time.Second, 10*time.Millisecond)

		assert.NoError(t, bus.Close())

		deadline := time.Now().Add(time.Second)
		for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		assert.LessOrEqual(t, runtime.NumGoroutine(), before)
	})

	t.Run("ignores failed settlements", func(t *testing.T) {
		listener, bus, sender := newListener()
		assert.NoError(t, listener.Start())
		defer listener.Stop()

		assert.NoError(t, bus.Publish(ctx, domainproviders.EventChannelPayments, settled(entities.PaymentStatusFailed)))

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, sender.snapshot())
	})
}
