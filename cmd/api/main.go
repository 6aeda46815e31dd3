package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/consultbook/internal/adapters/database"
	"github.com/zatekoja/consultbook/internal/adapters/events"
	"github.com/zatekoja/consultbook/internal/api/handlers"
	"github.com/zatekoja/consultbook/internal/api/routes"
	"github.com/zatekoja/consultbook/internal/application/services"
	"github.com/zatekoja/consultbook/internal/domain/providers"
	"github.com/zatekoja/consultbook/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/consultbook/internal/infrastructure/clients/redis"
	"github.com/zatekoja/consultbook/internal/infrastructure/notifications"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
	"github.com/zatekoja/consultbook/internal/infrastructure/payhere"
	"github.com/zatekoja/consultbook/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger("consultbook-api", cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - booking works without the event bus
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize adapters
	appointmentAdapter := database.NewAppointmentAdapter(pgClient)
	providerAdapter := database.NewProviderAdapter(pgClient)
	userAdapter := database.NewUserAdapter(pgClient)

	// Initialize event bus for real-time updates
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	signer := payhere.NewSigner(cfg.PayHere.MerchantID, cfg.PayHere.MerchantSecret)

	// Initialize services
	slotLedger := services.NewSlotLedger(providerAdapter, metrics)
	notifier := services.NewNotificationService(userAdapter, notifications.NewLogSender())

	bookingService := services.NewBookingService(
		appointmentAdapter,
		providerAdapter,
		userAdapter,
		slotLedger,
		eventBus,
		notifier,
		metrics,
	)
	paymentService := services.NewPaymentService(
		appointmentAdapter,
		userAdapter,
		providerAdapter,
		signer,
		cfg.PayHere,
		eventBus,
	)
	reconciliationService := services.NewReconciliationService(
		appointmentAdapter,
		signer,
		eventBus,
		metrics,
	)

	// Start the settlement listener so receipts go out when payments land
	var settlementListener *services.SettlementListener
	if eventBus != nil {
		settlementListener = services.NewSettlementListener(eventBus, notifier)
		if err := settlementListener.Start(); err != nil {
			log.Printf("Warning: Failed to start settlement listener: %v", err)
		} else {
			log.Println("Settlement listener started")
		}
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, slotLedger)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	webhookHandler := handlers.NewPaymentWebhookHandler(reconciliationService)

	// Set up router
	router := routes.NewRouter(bookingHandler, paymentHandler, webhookHandler, metrics)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	// Stop the settlement listener
	if settlementListener != nil {
		settlementListener.Stop()
	}

	// Close event bus
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	log.Println("Server stopped")
}
