package routes

import (
	"net/http"

	"github.com/zatekoja/consultbook/internal/api/handlers"
	"github.com/zatekoja/consultbook/internal/api/middleware"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	bookingHandler *handlers.BookingHandler
	paymentHandler *handlers.PaymentHandler
	webhookHandler *handlers.PaymentWebhookHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	bookingHandler *handlers.BookingHandler,
	paymentHandler *handlers.PaymentHandler,
	webhookHandler *handlers.PaymentWebhookHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		bookingHandler: bookingHandler,
		paymentHandler: paymentHandler,
		webhookHandler: webhookHandler,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Appointment endpoints
	r.mux.HandleFunc("POST /api/appointments", r.bookingHandler.Book)
	r.mux.HandleFunc("GET /api/appointments", r.bookingHandler.ListMine)
	r.mux.HandleFunc("POST /api/appointments/{id}/cancel", r.bookingHandler.Cancel)
	r.mux.HandleFunc("POST /api/appointments/{id}/complete", r.bookingHandler.Complete)

	// Provider endpoints
	r.mux.HandleFunc("GET /api/provider/appointments", r.bookingHandler.ListForProvider)
	r.mux.HandleFunc("GET /api/provider/dashboard", r.bookingHandler.Dashboard)
	r.mux.HandleFunc("POST /api/provider/availability", r.bookingHandler.SetAvailability)
	r.mux.HandleFunc("GET /api/providers/{id}/slots", r.bookingHandler.BookedSlots)

	// Payment endpoints
	r.mux.HandleFunc("POST /api/payments/initiate", r.paymentHandler.Initiate)
	r.mux.HandleFunc("GET /api/payments/unsettled", r.paymentHandler.ListUnsettled)

	// Gateway webhook; identified by signature, not by gateway headers
	r.mux.HandleFunc("POST /api/payments/notify", r.webhookHandler.Notify)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.IdentityMiddleware(handler)

	// CORS wraps everything so preflight requests never hit the mux
	handler = middleware.CORSMiddleware(handler)

	return handler
}
