// File: innkeeper/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innkeeper/config"
	"innkeeper/cron"
	"innkeeper/database"
	holdRepoPkg "innkeeper/database/repository/hold"
	stayRepoPkg "innkeeper/database/repository/stay"
	webhookRepoPkg "innkeeper/database/repository/webhook"
	"innkeeper/handlers"
	"innkeeper/middleware"
	"innkeeper/routes"
	"innkeeper/services/dispatch"
	"innkeeper/services/holdmgr"
	"innkeeper/services/lifecycle"
	"innkeeper/services/payment"
	"innkeeper/services/tasks"
	"innkeeper/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	stripe.Key = config.AppConfig.StripeSecretKey

	utils.StartHealthMonitor(database.MongoClient,
		[]*redis.Client{utils.GetCacheClient(), utils.GetIdemClient()},
		30*time.Second)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	stayRepo := stayRepoPkg.NewMongoRepo(database.DB())
	holdRepo := holdRepoPkg.NewMongoRepo(database.DB())
	webhookRepo := webhookRepoPkg.NewMongoRepo(database.DB())

	// Webhook dispatcher: per-stay ordered delivery with signed payloads.
	sender := dispatch.NewHTTPSender(time.Duration(config.AppConfig.WebhookTimeoutSeconds) * time.Second)
	dispatcher := dispatch.NewDispatcher(
		webhookRepo,
		sender,
		logger,
		config.AppConfig.WebhookMaxAttempts,
		time.Second,
	)

	// Collaborator client for deposit, balance and no-show captures.
	captureClient := payment.NewStripeClient(logger, time.Duration(config.AppConfig.CollaboratorTimeout)*time.Second)

	clock := utils.NewSystemClock()

	stayService := lifecycle.NewStayService(
		stayRepo,
		holdRepo,
		captureClient,
		dispatcher,
		utils.GetCacheClient(),
		config.AppConfig.StayCacheTTL,
		clock,
		logger,
	)

	// Timed-task scheduler backed by asynq.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})
	defer asynqClient.Close()
	scheduler := tasks.NewScheduler(asynqClient)

	holdManager := holdmgr.NewManager(
		holdRepo,
		stayService,
		scheduler,
		clock,
		logger,
		config.AppConfig.HoldDefaultMinutes,
	)

	// Background workers: hold expiry, sweep backstop, payment due scan.
	cron.InitWorkers(holdManager, stayRepo, scheduler)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		StayHandler:    handlers.NewStayHandler(stayService),
		HoldHandler:    handlers.NewHoldHandler(holdManager),
		WebhookHandler: handlers.NewWebhookHandler(webhookRepo),
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
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

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	// Drain in-flight webhook deliveries before exit.
	dispatcher.Close()

	logger.Sugar().Info("main: server stopped gracefully")
}
