package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/consultbook/internal/domain/entities"
	domainproviders "github.com/zatekoja/consultbook/internal/domain/providers"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
)

// SettlementListener consumes payment events from the bus and sends the user
// a receipt once the payment completes. It runs alongside the HTTP server;
// losing an event only loses a courtesy message, never payment state.
type SettlementListener struct {
	bus      domainproviders.EventBus
	notifier *NotificationService
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSettlementListener creates a new settlement listener
func NewSettlementListener(bus domainproviders.EventBus, notifier *NotificationService) *SettlementListener {
	ctx, cancel := context.WithCancel(context.Background())
	return &SettlementListener{
		bus:      bus,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins consuming payment events
func (l *SettlementListener) Start() error {
	eventChan, err := l.bus.Subscribe(l.ctx, domainproviders.EventChannelPayments)
	if err != nil {
		return fmt.Errorf("failed to subscribe to payment events: %w", err)
	}

	go l.processEvents(eventChan)
	return nil
}

// Stop stops the listener
func (l *SettlementListener) Stop() {
	l.cancel()
}

func (l *SettlementListener) processEvents(eventChan <-chan *entities.BookingEvent) {
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			l.handleEvent(event)
		}
	}
}

func (l *SettlementListener) handleEvent(event *entities.BookingEvent) {
	if event.Type != entities.BookingEventPaymentSettled ||
		event.PaymentStatus != entities.PaymentStatusCompleted {
		return
	}

	observability.LoggerFromContext(l.ctx).Info().
		Str("appointment_id", event.AppointmentID).
		Str("user_id", event.UserID).
		Msg("payment settled, sending receipt")

	l.notifier.SendPaymentReceipt(l.ctx, event.UserID, event.AppointmentID)
}
