// api/handlers/auth_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quasarhq/quasar-backend/api/models"
	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/auth"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	Store *storage.Store
	Cfg   *config.Config
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(store *storage.Store, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Store: store,
		Cfg:   cfg,
	}
}

// Signup handles user registration requests.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	newID := uuid.New().String()

	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Signup binding error: %v", err)
		_ = c.Error(err)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		customLog.Warnf("Failed to hash password during signup for email %s: %v", req.Email, err)
		_ = c.Error(err)
		return
	}

	userID, err := h.Store.CreateUser(c.Request.Context(), newID, req.Username, req.Email, hashedPassword)
	if err != nil {
		customLog.Warnf("Failed to create user %s: %v", req.Email, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Successfully registered user with email %s", req.Email)
	c.JSON(http.StatusCreated, gin.H{"user_id": userID, "message": "User registered successfully"})
}

// Login handles user login requests and issues JWT on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Login binding error: %v", err)
		_ = c.Error(err)
		return
	}

	user, err := h.Store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		customLog.Warnf("Login failed for email %s: %v", req.Email, err)
		// Do not reveal whether the email exists.
		_ = c.Error(storage.ErrInvalidCredentials)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		customLog.Warnf("Login attempt failed for email %s: invalid password", user.Email)
		_ = c.Error(storage.ErrInvalidCredentials)
		return
	}

	tokenString, err := auth.GenerateJWT(user.UserID, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		customLog.Warnf("Failed to generate JWT for user %s: %v", user.UserID, err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Message: "Logged in successfully", Token: tokenString})
}

// FindUser handles find user by user_id
func (h *AuthHandler) FindUser(c *gin.Context) {
	userID := c.Param("user_id")

	user, err := h.Store.FindUserByUserID(c.Request.Context(), userID)
	if err != nil {
		customLog.Warnf("User with user_id %s not found", userID)
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found", "user": nil})
		return
	}

	c.JSON(http.StatusOK, user)
}
