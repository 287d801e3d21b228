package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/config"
	"storefront/consumers"
	"storefront/controllers"
	"storefront/database"
	"storefront/middlewares"
	"storefront/payments"
	"storefront/paystack"
	"storefront/rabbitmq"
	"storefront/session"
	"storefront/utils"
)

func main() {
	cfg := config.LoadConfig()

	if err := database.InitDB(cfg); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer database.CloseDB()

	orders := database.NewOrderStore(database.DB)
	users := database.NewUserStore(database.DB)
	snapshots := database.NewCartSnapshotStore(database.DB)
	flags := database.NewSeenFlagStore(database.DB)

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("RabbitMQ initialization failed: %v", err)
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
	}

	mailer := &consumers.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	consumers.StartNotificationConsumer(rmq.Channel, cfg, mailer)
	consumers.StartPaymentCheckConsumer(rmq.Channel, cfg, orders)

	gateway := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)
	paymentService := payments.NewService(orders, gateway, rmq, cfg.PaystackSecretKey, cfg.PaymentRefPrefix)

	sessions := session.NewManager(users, flags)

	loginLimiter := utils.NewRateLimiter(
		utils.NewMemoryRateLimitStore(),
		cfg.LoginRateLimit,
		time.Duration(cfg.LoginRateWindowSec)*time.Second,
	)
	ipLimiter := utils.NewRateLimiter(utils.NewMemoryRateLimitStore(), 30, time.Minute)
	sweepStop := make(chan struct{})
	defer close(sweepStop)
	loginLimiter.StartSweeper(10*time.Minute, sweepStop)
	ipLimiter.StartSweeper(10*time.Minute, sweepStop)

	authController := &controllers.AuthController{
		Users:        users,
		Sessions:     sessions,
		JWTSecret:    cfg.JWTSecret,
		LoginLimiter: loginLimiter,
	}
	cartController := &controllers.CartController{Snapshots: snapshots}
	orderController := &controllers.OrderController{
		Orders:     orders,
		Snapshots:  snapshots,
		Checks:     rmq,
		CheckDelay: time.Duration(cfg.PaymentCheckDelay) * time.Minute,
	}
	paymentController := &controllers.PaymentController{Service: paymentService}

	r := gin.Default()
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Coarse per-IP limit on the auth surface; Login adds a stricter
	// per-account limit on top.
	authLimit := middlewares.RateLimitMiddleware(ipLimiter, func(c *gin.Context) string {
		return "auth:" + c.ClientIP()
	})
	r.POST("/auth/register", authLimit, authController.Register)
	r.POST("/auth/login", authLimit, authController.Login)

	// The gateway calls this out-of-band; auth is the HMAC signature.
	r.POST("/webhooks/paystack", paymentController.HandleWebhook)

	authGroup := r.Group("/api")
	authGroup.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		authGroup.GET("/me", authController.Me)
		authGroup.POST("/logout", authController.Logout)

		authGroup.GET("/cart", cartController.GetCart)
		authGroup.POST("/cart/items", cartController.AddItem)
		authGroup.PUT("/cart/items/:id", cartController.UpdateItemQuantity)
		authGroup.DELETE("/cart/items/:id", cartController.RemoveItem)
		authGroup.DELETE("/cart", cartController.ClearCart)

		authGroup.POST("/orders", orderController.CreateOrder)
		authGroup.GET("/orders", orderController.GetUserOrders)
		authGroup.GET("/orders/:id", orderController.GetOrderDetails)
		authGroup.GET("/orders/:id/events", orderController.GetOrderEvents)

		authGroup.POST("/payments/initiate", paymentController.InitiatePayment)
	}

	adminGroup := r.Group("/admin")
	adminGroup.Use(middlewares.AuthMiddleware(cfg.JWTSecret), middlewares.AdminMiddleware(users))
	{
		adminGroup.PUT("/orders/:id/status", orderController.UpdateOrderStatus)
	}

	port := ":8080"
	log.Printf("Storefront service starting on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
