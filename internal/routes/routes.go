package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/stephan018/sportsync-connect-sub000/internal/config"
	"github.com/stephan018/sportsync-connect-sub000/internal/handlers"
	"github.com/stephan018/sportsync-connect-sub000/internal/middleware"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
	"github.com/stephan018/sportsync-connect-sub000/internal/services"
	chatws "github.com/stephan018/sportsync-connect-sub000/internal/websocket"
)

// Services groups the long-lived services the server entrypoint also needs
// (the completion sweep runs on a schedule outside the request path).
type Services struct {
	Booking *services.BookingService
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, log *zap.Logger) *Services {
	userRepo := repository.NewUserRepository(db)
	studentProfileRepo := repository.NewStudentProfileRepository(db)
	teacherProfileRepo := repository.NewTeacherProfileRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	chatRoomRepo := repository.NewChatRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	hub := chatws.NewHub(log)
	go hub.Run()

	notificationService := services.NewNotificationService(
		bookingRepo,
		userRepo,
		teacherProfileRepo,
		studentProfileRepo,
		hub,
		cfg.SendGridAPIKey,
		cfg.SendGridFromEmail,
		cfg.SendGridFromName,
		log,
	)

	availabilityService := services.NewAvailabilityService(db, availabilityRepo)
	bookingService := services.NewBookingService(
		db,
		bookingRepo,
		availabilityRepo,
		userRepo,
		teacherProfileRepo,
		notificationService,
		log,
	)
	reviewService := services.NewReviewService(reviewRepo, bookingRepo, teacherProfileRepo, log)
	chatService := services.NewChatService(db, chatRoomRepo, messageRepo, userRepo)
	profileService := services.NewProfileService(studentProfileRepo, teacherProfileRepo)
	discoveryService := services.NewDiscoveryService(teacherProfileRepo)

	authHandler := handlers.NewAuthHandler(db, userRepo, studentProfileRepo, teacherProfileRepo, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(profileService, teacherProfileRepo, storageService)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	discoveryHandler := handlers.NewDiscoveryHandler(teacherProfileRepo, studentProfileRepo, availabilityService, discoveryService)
	chatHandler := handlers.NewChatHandler(chatService, hub, cfg.JWTSecret)

	if err := registerDocsRoutes(app, cfg); err != nil {
		log.Warn("docs routes disabled", zap.Error(err))
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)
	auth.Delete("/account", middleware.AuthRequired(cfg.JWTSecret), authHandler.DeleteAccount)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	students := protected.Group("/students")
	students.Post("/onboarding", profileHandler.CompleteStudentOnboarding)
	students.Get("/profile", profileHandler.GetStudentProfile)
	students.Put("/profile", profileHandler.UpdateStudentProfile)
	students.Post("/profile/avatar", profileHandler.UploadStudentAvatar)

	teachers := protected.Group("/teachers")
	teachers.Get("", discoveryHandler.ListTeachers)
	teachers.Post("/onboarding", profileHandler.CompleteTeacherOnboarding)
	teachers.Get("/profile", profileHandler.GetTeacherProfile)
	teachers.Put("/profile", profileHandler.UpdateTeacherProfile)
	teachers.Post("/profile/avatar", profileHandler.UploadTeacherAvatar)
	teachers.Post("/profile/gallery", profileHandler.UploadGalleryImage)
	teachers.Delete("/profile/gallery", profileHandler.DeleteGalleryImage)
	teachers.Put("/availability", availabilityHandler.ReplaceAvailability)
	teachers.Get("/availability", availabilityHandler.GetMyAvailability)
	teachers.Get("/recommended", discoveryHandler.GetRecommendedTeachers)
	teachers.Get("/:id", discoveryHandler.GetTeacherDetail)
	teachers.Get("/:id/availability", availabilityHandler.GetTeacherWindows)
	teachers.Get("/:id/weekdays", availabilityHandler.GetTeacherWeekdays)
	teachers.Get("/:id/slots", availabilityHandler.GetCommonSlots)
	teachers.Get("/:id/reviews", reviewHandler.ListTeacherReviews)

	bookings := protected.Group("/bookings")
	bookings.Post("/preview", bookingHandler.PreviewPlan)
	bookings.Post("", bookingHandler.CreatePlan)
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Get("/:id", bookingHandler.GetBooking)
	bookings.Put("/:id/status", bookingHandler.UpdateStatus)
	bookings.Get("/:id/reschedule", bookingHandler.RescheduleOptions)
	bookings.Post("/:id/reschedule", bookingHandler.Reschedule)
	bookings.Get("/:id/review", reviewHandler.GetBookingReview)

	reviews := protected.Group("/reviews")
	reviews.Post("", reviewHandler.SubmitReview)

	rooms := protected.Group("/rooms")
	rooms.Get("", chatHandler.ListRooms)
	rooms.Post("", chatHandler.CreateRoom)
	rooms.Get("/:id/messages", chatHandler.GetMessages)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	return &Services{Booking: bookingService}
}
