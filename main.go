package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carebook/config"
	"carebook/cron"
	"carebook/database"
	"carebook/database/repository"
	"carebook/handlers"
	"carebook/routes"
	"carebook/services/booking"
	"carebook/services/payment"
	"carebook/services/refdata"
	"carebook/services/storage"
	"carebook/services/upstream"
	"carebook/services/wizard"
	"carebook/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.InitAuthCache()

	sessionCache := utils.GetSessionCacheClient()
	authCache := utils.GetAuthCacheClient()
	utils.StartHealthMonitor([]*redis.Client{sessionCache, authCache}, database.MongoClient)

	// Upstream booking API client.
	tokens := upstream.NewTokenStore(authCache)
	upstreamClient := upstream.NewClient(
		config.AppConfig.UpstreamBaseURL,
		tokens,
		logger,
		config.AppConfig.UpstreamEmail,
		config.AppConfig.UpstreamPassword,
		time.Duration(config.AppConfig.UpstreamTimeout)*time.Second,
	)

	refSvc := refdata.NewService(upstreamClient, logger)
	validator := wizard.NewValidator(config.AppConfig.MaxProofSizeMB)
	engine := wizard.NewEngine(
		sessionCache,
		refSvc,
		validator,
		logger,
		time.Duration(config.AppConfig.SessionTTLMinutes)*time.Minute,
	)

	// Payment-proof storage.
	storageSvc, err := storage.NewCloudinaryService(
		config.AppConfig.CloudinaryCloudName,
		config.AppConfig.CloudinaryAPIKey,
		config.AppConfig.CloudinaryAPISecret,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage: %v", err)
	}

	// Card payments.
	stripe.Key = config.AppConfig.StripeKey
	var paymentSvc payment.Service
	if config.AppConfig.StripeKey != "" {
		paymentSvc = payment.NewStripeService(logger)
	}

	bookingRepo := repository.NewMongoBookingRepo(database.BookingsCollection())

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})
	defer taskClient.Close()

	cron.InitTaskWorker(bookingRepo, sessionCache, logger)
	cron.StartSessionSweepScheduler(taskClient, logger)

	submitter := &booking.DefaultSubmitter{
		Client:    upstreamClient,
		RefData:   refSvc,
		Validator: validator,
		Repo:      bookingRepo,
		Storage:   storageSvc,
		Locks:     sessionCache,
		Tasks:     taskClient,
		Logger:    logger,
		AtHomeTax: config.AppConfig.AtHomeTax,
	}

	handlerBundle := handlers.NewHandlerBundle(
		engine,
		submitter,
		storageSvc,
		paymentSvc,
		bookingRepo,
		upstreamClient,
		config.AppConfig.AtHomeTax,
		logger,
	)

	router := routes.SetupRoutes(handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
