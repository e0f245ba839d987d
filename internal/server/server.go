package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/LocDang637/CosplayDate-sub001/internal/auth"
	"github.com/LocDang637/CosplayDate-sub001/internal/booking"
	"github.com/LocDang637/CosplayDate-sub001/internal/config"
	"github.com/LocDang637/CosplayDate-sub001/internal/escrow"
	"github.com/LocDang637/CosplayDate-sub001/internal/notification"
	"github.com/LocDang637/CosplayDate-sub001/internal/payment"
	"github.com/LocDang637/CosplayDate-sub001/internal/user"
	"github.com/LocDang637/CosplayDate-sub001/internal/wallet"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notification.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	userRepo := user.NewRepository(db)
	ledger := wallet.NewRepository(db)
	bookingRepo := booking.NewRepository(db)
	escrowRepo := escrow.NewRepository(db)

	escrowService := escrow.NewService(db, escrowRepo, ledger, bookingRepo)
	validator := booking.NewValidator(cfg.Booking, bookingRepo)
	bookingService := booking.NewService(db, bookingRepo, userRepo, validator, escrowService, ledger, notifier)

	gateway := payment.NewGateway(cfg.GatewayBaseURL, cfg.GatewayClientID, cfg.GatewayAPIKey, cfg.GatewayChecksumKey)
	paymentService := payment.NewService(gateway, ledger, userRepo, notifier)

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	walletHandler := wallet.NewHandler(db)
	bookingHandler := booking.NewHandler(bookingService)
	paymentHandler := payment.NewHandler(paymentService)
	escrowHandler := escrow.NewHandler(escrowService)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	// The gateway retries until it sees a 2xx, so the webhook stays public
	// but rate limited.
	webhooks := router.Group("/webhooks")
	webhooks.Use(RateLimitMiddleware(10, 20))
	{
		webhooks.POST("/payment", paymentHandler.Webhook)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.PATCH("/me/profile", userHandler.UpdateProfile)

		protected.GET("/wallet", walletHandler.GetBalance)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)
		protected.POST("/wallet/topup", paymentHandler.InitiateTopUp)

		protected.POST("/bookings", bookingHandler.Create)
		protected.GET("/bookings", bookingHandler.ListMyBookings)
		protected.GET("/bookings/:bookingID", bookingHandler.GetBooking)
		protected.PATCH("/bookings/:bookingID", bookingHandler.Update)
		protected.POST("/bookings/:bookingID/confirm", bookingHandler.Confirm)
		protected.POST("/bookings/:bookingID/complete", bookingHandler.Complete)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.Cancel)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.GET("/escrow/bookings/:bookingID", escrowHandler.GetByBooking)
		admin.POST("/escrow/bookings/:bookingID/release", escrowHandler.Release)
		admin.POST("/escrow/:escrowID/refund", escrowHandler.Refund)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown stops accepting new connections and waits for in-flight requests
// up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
