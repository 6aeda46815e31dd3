package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/zatekoja/consultbook/internal/application/services"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
)

// ReconciliationService defines the interface for applying gateway notifications
type ReconciliationService interface {
	Process(ctx context.Context, notification *entities.PaymentNotification) (services.ReconcileOutcome, error)
}

// PaymentWebhookHandler receives server-to-server notifications from the
// payment gateway. The gateway retries on non-2xx responses, so every
// delivery that parses is acknowledged with 200 regardless of how it
// resolved; rejections would only cause redeliveries of the same payload.
type PaymentWebhookHandler struct {
	service ReconciliationService
}

// NewPaymentWebhookHandler creates a new payment webhook handler
func NewPaymentWebhookHandler(service ReconciliationService) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{service: service}
}

// Notify handles POST /api/payments/notify
func (h *PaymentWebhookHandler) Notify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	notification, err := notificationFromForm(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.service.Process(r.Context(), notification)
	logger := observability.LoggerFromContext(r.Context())
	if err != nil {
		// Verification and mapping failures are swallowed after logging:
		// an attacker probing signatures learns nothing, and the gateway
		// stops retrying.
		logger.Warn().Err(err).
			Str("order_id", notification.OrderID).
			Int("status_code", notification.StatusCode).
			Msg("payment notification rejected")
	} else {
		logger.Info().
			Str("order_id", notification.OrderID).
			Str("outcome", string(outcome)).
			Msg("payment notification processed")
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func notificationFromForm(r *http.Request) (*entities.PaymentNotification, error) {
	for _, field := range []string{"merchant_id", "order_id", "payhere_amount", "payhere_currency", "status_code", "md5sig"} {
		if r.PostFormValue(field) == "" {
			return nil, errMissingField(field)
		}
	}

	statusCode, err := strconv.Atoi(r.PostFormValue("status_code"))
	if err != nil {
		return nil, errMissingField("status_code")
	}

	return &entities.PaymentNotification{
		MerchantID: r.PostFormValue("merchant_id"),
		OrderID:    r.PostFormValue("order_id"),
		Amount:     r.PostFormValue("payhere_amount"),
		Currency:   r.PostFormValue("payhere_currency"),
		StatusCode: statusCode,
		Signature:  r.PostFormValue("md5sig"),
	}, nil
}

type errMissingField string

func (e errMissingField) Error() string {
	return "missing or invalid field: " + string(e)
}
