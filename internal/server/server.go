package server

import (
	"net/http"

	"authd/internal/config"
	"authd/internal/handler"
	"authd/internal/middleware"
	"authd/internal/repository"
	"authd/internal/service"
	"authd/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	logger *zap.Logger
	log    *logrus.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		logger: logger,
		log:    logrus.New(),
	}

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Initialize Auth components
	userRepo := repository.NewUserRepository(s.db, s.log)
	tokens := token.NewManager([]byte(s.cfg.JWT.Secret), s.cfg.TokenTTL())
	authService := service.NewAuthService(userRepo, tokens, s.logger, s.cfg.Auth.ServerRehash)
	authHandler := handler.NewAuthHandler(authService, s.log, s.cfg.JWT.MaxAgeSeconds)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/get_salt", authHandler.GetSalt)
	authGroup.GET("/status", middleware.OptionalAuth(tokens, userRepo, s.logger), authHandler.Status)
	authGroup.GET("/logout", middleware.RequireAuth(tokens, userRepo, s.logger), authHandler.Logout)

	// Authenticated routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.RequireAuth(tokens, userRepo, s.logger))
	{
		authRequired.GET("/users/me", authHandler.Me)
		authRequired.POST("/users/me", authHandler.Me)
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
