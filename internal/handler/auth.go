package handler

import (
	"errors"
	"fmt"
	"net/http"

	"authd/internal/middleware"
	"authd/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	GetSalt(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
	Status(c *gin.Context)
}

type authHandler struct {
	authService  service.AuthService
	log          *logrus.Logger
	cookieMaxAge int
}

func NewAuthHandler(authService service.AuthService, log *logrus.Logger, cookieMaxAge int) AuthHandler {
	return &authHandler{authService: authService, log: log, cookieMaxAge: cookieMaxAge}
}

type RegisterRequest struct {
	Username       string `json:"username" binding:"required"`
	Salt           string `json:"salt" binding:"required"`
	HashedPassword string `json:"hashed_password" binding:"required"`
}

type LoginRequest struct {
	Username       string `json:"username" binding:"required"`
	HashedPassword string `json:"hashed_password" binding:"required"`
}

type GetSaltRequest struct {
	Username string `json:"username" binding:"required"`
}

func (h *authHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorf("Failed to bind JSON for registration: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	user, tokenString, err := h.authService.Register(c.Request.Context(), req.Username, req.Salt, req.HashedPassword)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "Username already taken"})
			return
		}
		h.log.Errorf("Failed to register user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to register user"})
		return
	}

	h.setTokenCookie(c, tokenString)
	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   gin.H{"user": user.Filter()},
	})
}

func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorf("Failed to bind JSON for login: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	tokenString, err := h.authService.Login(c.Request.Context(), req.Username, req.HashedPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid email or password"})
			return
		}
		h.log.Errorf("Failed to login user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to login"})
		return
	}

	h.setTokenCookie(c, tokenString)
	c.JSON(http.StatusOK, gin.H{"status": "success", "token": tokenString})
}

// GetSalt hands the stored salt to the client for its first hashing pass.
// The salt travels out-of-band in the HX-Trigger header; the body carries
// only the status. Unknown usernames get the same response as a failed
// login.
func (h *authHandler) GetSalt(c *gin.Context) {
	var req GetSaltRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorf("Failed to bind JSON for get_salt: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	salt, err := h.authService.GetSalt(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid email or password"})
			return
		}
		h.log.Errorf("Failed to get salt: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to get salt"})
		return
	}

	c.Header("HX-Trigger", fmt.Sprintf(`{"try_login":{"salt": "%s"}}`, salt))
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Logout is stateless: the token stays valid until expiry, the client is
// just told to discard it via an already-expired cookie.
func (h *authHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, "", -3600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *authHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"user": user.Filter()},
	})
}

// Status reports whether the caller is authenticated without rejecting
// anonymous requests; it sits behind the boolean gate.
func (h *authHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"authenticated": c.GetBool(middleware.AuthenticatedKey),
	})
}

func (h *authHandler) setTokenCookie(c *gin.Context, tokenString string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, tokenString, h.cookieMaxAge, "/", "", false, true)
}
