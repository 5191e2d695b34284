package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliattia10/paseo-backend/internal/config"
	"github.com/aliattia10/paseo-backend/internal/handlers"
	"github.com/aliattia10/paseo-backend/internal/middleware"
	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/repository"
	"github.com/aliattia10/paseo-backend/internal/services"
	chatws "github.com/aliattia10/paseo-backend/internal/websocket"
)

// RegisterRoutes wires repositories, services, and handlers onto the app. It
// returns the payment service so main can hand it to the release scheduler.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) *services.PaymentService {
	userRepo := repository.NewUserRepository(db)
	ownerProfileRepo := repository.NewOwnerProfileRepository(db)
	sitterProfileRepo := repository.NewSitterProfileRepository(db)
	petRepo := repository.NewPetRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	connectRepo := repository.NewConnectAccountRepository(db)
	payoutRepo := repository.NewPayoutRequestRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	swipeRepo := repository.NewSwipeRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	gateway := payments.NewStripeGateway(cfg.StripeSecretKey)

	bookingService := services.NewBookingService(db, bookingRepo, paymentRepo, sitterProfileRepo, petRepo)
	paymentService := services.NewPaymentService(db, cfg, gateway, bookingRepo, paymentRepo, connectRepo)
	webhookService := services.NewWebhookService(db)
	connectService := services.NewConnectService(db, cfg, gateway, userRepo, connectRepo)
	payoutService := services.NewPayoutService(db, paymentRepo, payoutRepo, connectRepo)
	reviewService := services.NewReviewService(db, bookingRepo, reviewRepo)
	matchmakingService := services.NewMatchmakingService(sitterProfileRepo)
	chatService := services.NewChatService(conversationRepo, messageRepo, userRepo)

	chatHub := chatws.NewHub()

	authHandler := handlers.NewAuthHandler(db, userRepo, ownerProfileRepo, sitterProfileRepo, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(ownerProfileRepo, sitterProfileRepo, storageService)
	petHandler := handlers.NewPetHandler(petRepo, storageService)
	discoveryHandler := handlers.NewDiscoveryHandler(sitterProfileRepo, petRepo, ownerProfileRepo, swipeRepo, matchmakingService, chatService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	webhookHandler := handlers.NewWebhookHandler(webhookService, cfg.StripeWebhookSecret)
	connectHandler := handlers.NewConnectHandler(connectService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// Stripe authenticates these calls with its signature header, not a JWT.
	api.Post("/webhooks/stripe", webhookHandler.HandleStripeEvent)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	owners := authProtected.Group("/owners")
	owners.Post("/onboarding", profileHandler.CompleteOwnerOnboarding)
	owners.Get("/profile", profileHandler.GetOwnerProfile)
	owners.Put("/profile", profileHandler.UpdateOwnerProfile)
	owners.Post("/profile/avatar", profileHandler.UploadOwnerAvatar)

	sitters := authProtected.Group("/sitters")
	sitters.Get("", discoveryHandler.ListSitters)
	sitters.Post("/onboarding", profileHandler.CompleteSitterOnboarding)
	sitters.Get("/profile", profileHandler.GetSitterProfile)
	sitters.Put("/profile", profileHandler.UpdateSitterProfile)
	sitters.Post("/profile/avatar", profileHandler.UploadSitterAvatar)
	sitters.Get("/recommended", discoveryHandler.RecommendedSitters)
	sitters.Get("/liked", discoveryHandler.LikedSitters)
	sitters.Get("/:id", discoveryHandler.GetSitter)
	sitters.Get("/:id/reviews", reviewHandler.ListSitterReviews)

	authProtected.Post("/swipes", discoveryHandler.Swipe)

	pets := authProtected.Group("/pets")
	pets.Post("", petHandler.CreatePet)
	pets.Get("", petHandler.ListPets)
	pets.Put("/:id", petHandler.UpdatePet)
	pets.Delete("/:id", petHandler.DeletePet)
	pets.Post("/:id/photo", petHandler.UploadPetPhoto)

	bookings := authProtected.Group("/bookings")
	bookings.Post("", bookingHandler.CreateBooking)
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Get("/:id", bookingHandler.GetBooking)
	bookings.Post("/:id/accept", bookingHandler.AcceptBooking)
	bookings.Post("/:id/decline", bookingHandler.DeclineBooking)
	bookings.Post("/:id/start", bookingHandler.StartBooking)
	bookings.Post("/:id/complete", bookingHandler.CompleteBooking)
	bookings.Post("/:id/cancel", bookingHandler.CancelBooking)
	bookings.Post("/:id/payment-intent", paymentHandler.CreateIntent)
	bookings.Post("/:id/capture", paymentHandler.CapturePayment)
	bookings.Post("/:id/refund", paymentHandler.RefundBooking)

	// Manual trigger for the hourly release sweep.
	authProtected.Post("/payments/auto-release", paymentHandler.ReleaseEligible)

	connect := authProtected.Group("/connect")
	connect.Post("/account", connectHandler.CreateAccount)
	connect.Post("/onboarding-link", connectHandler.CreateOnboardingLink)
	connect.Get("/status", connectHandler.GetStatus)

	payouts := authProtected.Group("/payouts")
	payouts.Get("/balance", payoutHandler.GetBalance)
	payouts.Post("/requests", payoutHandler.RequestPayout)
	payouts.Get("/requests", payoutHandler.ListRequests)
	payouts.Put("/requests/:id/status", payoutHandler.UpdateStatus)

	authProtected.Post("/reviews", reviewHandler.CreateReview)

	conversations := authProtected.Group("/conversations")
	conversations.Post("", chatHandler.StartConversation)
	conversations.Get("", chatHandler.ListConversations)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", notificationHandler.ListNotifications)
	notifications.Post("/:id/read", notificationHandler.MarkRead)
	notifications.Post("/read-all", notificationHandler.MarkAllRead)

	api.Use("/v1/ws", chatHandler.UpgradeWebsocket)
	api.Get("/v1/ws", chatHandler.HandleWebsocket())

	RegisterDocs(app, cfg)

	return paymentService
}
