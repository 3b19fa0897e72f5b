package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"braidpilot-backend/internal/auth"
	"braidpilot-backend/internal/booking"
	"braidpilot-backend/internal/braiders"
	"braidpilot-backend/internal/cache"
	"braidpilot-backend/internal/capacity"
	"braidpilot-backend/internal/config"
	"braidpilot-backend/internal/db"
	"braidpilot-backend/internal/middleware"
	"braidpilot-backend/internal/notifications"
	"braidpilot-backend/internal/salons"
	"braidpilot-backend/internal/users"
	"braidpilot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "braidpilot-backend",
		}
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	}

	val := validation.New()
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	salonRepo := salons.NewRepository(cols.Salons)
	salonService := salons.NewService(salonRepo, cfg.Timezone)
	salonHandler := salons.NewHandler(salonService, val, logger)

	capacityRepo := capacity.NewRepository(cols.Salons, cols.Bookings, cols.CapacitySlots)
	capacityService := capacity.NewService(capacityRepo, cfg.Timezone)
	capacityHandler := capacity.NewHandler(capacityService, val, logger, cacheStore, cacheTTL)

	braiderRepo := braiders.NewRepository(cols.Braiders, cols.Bookings, cols.Salons)
	braiderService := braiders.NewService(braiderRepo, cfg.Timezone)
	braiderHandler := braiders.NewHandler(braiderService, val, logger)

	var notifier booking.Notifier
	if emailNotifier := notifications.NewEmailNotifier(mailer, cols.Clients); emailNotifier != nil {
		notifier = emailNotifier
	}

	bookingRepo := booking.NewRepository(cols.Bookings, cols.Clients)
	bookingService := booking.NewService(
		bookingRepo,
		capacityService,
		braiderService,
		salonService,
		notifier,
		cfg.Timezone,
		time.Duration(cfg.PendingExpiryMinutes)*time.Minute,
		logger,
	)
	bookingHandler := booking.NewHandler(bookingService, val, logger, cacheStore)

	userRepo := users.NewRepository(cols.Users)
	userService := users.NewService(userRepo, cfg.Timezone)
	userHandler := users.NewHandler(userService, val, logger, jwtManager, cfg.AdminSetupKey, cfg.CookieSecure)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookingLimiter := middleware.NewRateLimiter(cfg.RateLimitBookings, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	adminOnly := middleware.AdminAuth(cfg.AdminAPIKey, jwtManager)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/salons", salonHandler.Create)
		api.Get("/salons/{id}", salonHandler.Get)
		api.Get("/salons/{id}/capacity", capacityHandler.GetStatus)
		api.Get("/salons/{id}/availability", capacityHandler.GetAvailability)
		api.Get("/salons/{id}/braiders", braiderHandler.List)
		api.Get("/salons/{id}/braiders/available", braiderHandler.Available)

		api.With(bookingLimiter.Middleware).Post("/bookings", bookingHandler.Create)
		api.Get("/bookings/{id}", bookingHandler.Get)
		api.Post("/bookings/{id}/payment-captured", bookingHandler.PaymentCaptured)
		api.Post("/bookings/{id}/payment-failed", bookingHandler.PaymentFailed)

		api.Group(func(protected chi.Router) {
			protected.Use(adminOnly)
			protected.Put("/salons/{id}/capacity-settings", salonHandler.UpdateCapacitySettings)
			protected.Post("/salons/{id}/blocks", capacityHandler.CreateBlock)
			protected.Delete("/salons/{id}/blocks", capacityHandler.DeleteBlock)
			protected.Post("/salons/{id}/braiders", braiderHandler.Create)
			protected.Put("/braiders/{id}", braiderHandler.Update)
			protected.Delete("/braiders/{id}", braiderHandler.Delete)
			protected.Get("/salons/{id}/bookings", bookingHandler.ListBySalon)
			protected.Patch("/bookings/{id}/status", bookingHandler.UpdateStatus)
			protected.Post("/bookings/{id}/reassign", bookingHandler.Reassign)
			protected.Post("/bookings/{id}/reschedule", bookingHandler.Reschedule)
			protected.Post("/salons/{id}/bookings/expire-pending", bookingHandler.ExpirePending)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Post("/register", userHandler.Register)
			admin.Post("/login", userHandler.Login)
			admin.Post("/refresh", userHandler.Refresh)
			admin.Post("/logout", userHandler.Logout)
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
