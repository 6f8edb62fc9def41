package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"khidmapay/internal/auth"
	"khidmapay/internal/config"
	"khidmapay/internal/payment"
	"khidmapay/internal/wallet"
	"khidmapay/internal/withdrawal"
)

type Server struct {
	router *gin.Engine
	config *config.Config
	http   *http.Server
}

func New(cfg *config.Config, paymentHandler *payment.Handler, walletHandler *wallet.Handler, withdrawalHandler *withdrawal.Handler) *Server {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/payments/initiate", paymentHandler.Initiate)
		protected.POST("/payments/:paymentID/verify", paymentHandler.Verify)
		protected.POST("/payments/:paymentID/refund", paymentHandler.Refund)
		protected.POST("/bookings/:bookingID/cancel", paymentHandler.Cancel)
		protected.POST("/bookings/:bookingID/complete", paymentHandler.CompleteService)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)
		protected.PUT("/wallet/payout-info", walletHandler.UpdatePayoutInfo)

		protected.POST("/withdrawals", withdrawalHandler.Request)
		protected.GET("/withdrawals", withdrawalHandler.List)
		protected.GET("/withdrawals/:withdrawalID", withdrawalHandler.Get)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.GET("/withdrawals", withdrawalHandler.AdminList)
		admin.POST("/withdrawals/:withdrawalID/process", withdrawalHandler.Process)
		admin.POST("/withdrawals/:withdrawalID/complete", withdrawalHandler.Complete)
		admin.POST("/withdrawals/:withdrawalID/reject", withdrawalHandler.Reject)
		admin.POST("/wallets/:walletID/reconcile", walletHandler.ReconcileWallet)
	}

	return &Server{
		router: router,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the underlying engine for tests and embedding.
func (s *Server) Router() *gin.Engine {
	return s.router
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
