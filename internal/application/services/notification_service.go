package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/consultbook/internal/domain/entities"
	domainproviders "github.com/zatekoja/consultbook/internal/domain/providers"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
)

// NotificationService renders booking notifications and hands them to the
// sender. Delivery is fire-and-forget: failures are logged and never block
// or fail the booking path.
type NotificationService struct {
	users  repositories.UserRepository
	sender domainproviders.NotificationSender
}

// NewNotificationService creates a new notification service
func NewNotificationService(users repositories.UserRepository, sender domainproviders.NotificationSender) *NotificationService {
	return &NotificationService{users: users, sender: sender}
}

// SendBookingConfirmation notifies the user that the booking was created
func (n *NotificationService) SendBookingConfirmation(ctx context.Context, appointment *entities.Appointment, provider *entities.Provider) {
	subject := "Appointment confirmed"
	body := fmt.Sprintf(
		"Your appointment with %s on %s at %s is confirmed. Consultation fee: %.2f.",
		provider.Name, appointment.SlotDate, appointment.SlotTime, appointment.Amount,
	)
	n.deliver(ctx, appointment.UserID, subject, body)
}

// SendCancellationNotice notifies the user that the booking was cancelled
func (n *NotificationService) SendCancellationNotice(ctx context.Context, appointment *entities.Appointment) {
	subject := "Appointment cancelled"
	body := fmt.Sprintf(
		"Your appointment on %s at %s has been cancelled. The slot is available again.",
		appointment.SlotDate, appointment.SlotTime,
	)
	n.deliver(ctx, appointment.UserID, subject, body)
}

// SendPaymentReceipt notifies the user that their payment settled
func (n *NotificationService) SendPaymentReceipt(ctx context.Context, userID, appointmentID string) {
	subject := "Payment received"
	body := fmt.Sprintf("We received your payment for appointment %s. Thank you.", appointmentID)
	n.deliver(ctx, userID, subject, body)
}

func (n *NotificationService) deliver(ctx context.Context, userID, subject, body string) {
	logger := observability.LoggerFromContext(ctx)

	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("skipping notification, user lookup failed")
		return
	}

	if err := n.sender.Send(ctx, user.Email, subject, body); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("notification send failed")
	}
}
