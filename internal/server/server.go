package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"bakery-backend/internal/config"
	"bakery-backend/internal/infrastructure/asset"
	"bakery-backend/internal/metrics"
	"bakery-backend/internal/usecase"
)

type Server struct {
	cfg     config.Config
	auth    *usecase.AuthService
	orders  *usecase.OrderService
	catalog *usecase.CatalogService
	users   *usecase.UserService
	assets  *asset.FSWriter
	engine  *gin.Engine
}

func New(cfg config.Config, auth *usecase.AuthService, orders *usecase.OrderService,
	catalog *usecase.CatalogService, users *usecase.UserService, assets *asset.FSWriter) *Server {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:     cfg,
		auth:    auth,
		orders:  orders,
		catalog: catalog,
		users:   users,
		assets:  assets,
		engine:  gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	log.WithField("addr", addr).Info("server listening")
	return s.engine.Run(addr)
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.cors())
	s.engine.Use(metrics.Middleware())

	s.engine.Static("/assets", s.cfg.AssetsDir)

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := s.engine.Group("/api/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)
		auth.POST("/logout", s.handleLogout)
		auth.GET("/is-auth", s.requireAuth, s.handleIsAuth)
		auth.POST("/send-verify-otp", s.requireAuth, s.handleSendVerifyOTP)
		auth.POST("/verify-account", s.requireAuth, s.handleVerifyAccount)
		auth.POST("/send-reset-otp", s.handleSendResetOTP)
		auth.POST("/reset-password", s.handleResetPassword)
	}

	user := s.engine.Group("/api/user", s.requireAuth)
	{
		user.GET("/dashboard", s.handleDashboard)
		user.GET("/all", s.requireAdmin, s.handleListUsers)
	}

	categories := s.engine.Group("/api/categories")
	{
		categories.GET("", s.handleListCategories)
		categories.POST("", s.requireAuth, s.requireAdmin, s.handleAddCategory)
		categories.PUT("/:id", s.requireAuth, s.requireAdmin, s.handleUpdateCategory)
		categories.DELETE("/:id", s.requireAuth, s.requireAdmin, s.handleDeleteCategory)
	}

	products := s.engine.Group("/api/products")
	{
		products.GET("", s.handleListProducts)
		products.GET("/:id", s.handleGetProduct)
		products.POST("", s.requireAuth, s.requireAdmin, s.handleAddProduct)
		products.PUT("/:id", s.requireAuth, s.requireAdmin, s.handleUpdateProduct)
		products.DELETE("/:id", s.requireAuth, s.requireAdmin, s.handleDeleteProduct)
	}

	orders := s.engine.Group("/api/orders", s.requireAuth)
	{
		orders.POST("", s.handlePlaceOrder)
		orders.GET("/my-orders", s.handleMyOrders)
		orders.GET("/all", s.requireAdmin, s.handleAllOrders)
		orders.GET("/stats/summary", s.requireAdmin, s.handleOrderStats)
		orders.GET("/:id", s.handleGetOrder)
		orders.PATCH("/:id/cancel", s.handleCancelOrder)
		orders.PATCH("/:id/confirm-delivery", s.handleConfirmDelivery)
		orders.PATCH("/:id/status", s.requireAdmin, s.handleUpdateOrderStatus)
		orders.DELETE("/:id", s.requireAdmin, s.handleDeleteOrder)
	}
}

func (s *Server) cors() gin.HandlerFunc {
	origin := s.cfg.CORSOrigin
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// fail maps usecase errors to HTTP statuses and writes the failure envelope.
// Unrecognized errors are logged and reported as a generic 500.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		notFound     usecase.ErrNotFound
		badRequest   usecase.ErrBadRequest
		unauthorized usecase.ErrUnauthorized
		forbidden    usecase.ErrForbidden
		conflict     usecase.ErrConflict
		transition   usecase.ErrInvalidTransition
	)
	switch {
	case errors.As(err, &transition):
		failJSON(c, http.StatusBadRequest, transition.Error())
	case errors.As(err, &badRequest):
		failJSON(c, http.StatusBadRequest, badRequest.Error())
	case errors.As(err, &unauthorized):
		failJSON(c, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &forbidden):
		failJSON(c, http.StatusForbidden, forbidden.Error())
	case errors.As(err, &notFound):
		failJSON(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		failJSON(c, http.StatusConflict, conflict.Error())
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		failJSON(c, http.StatusInternalServerError, "Internal server error")
	}
}

func failJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}
