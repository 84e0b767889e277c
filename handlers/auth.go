package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"portfolio-tracker/cache"
	"portfolio-tracker/database"
	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type AuthInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthHandler struct {
	users      UserStore
	tokens     cache.Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

func NewAuthHandler(users UserStore, tokens cache.Store, secret []byte, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		users:      users,
		tokens:     tokens,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

func refreshKey(id string) string {
	return "refresh:" + id
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var input AuthInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	_, err := h.users.FindByEmail(ctx, input.Email)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
		return
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		h.logger.Error("signup lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
		return
	}

	user := models.User{
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: string(hashedPassword),
	}
	if err := h.users.Create(ctx, &user); err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating user", "details": err.Error()})
		return
	}

	h.logger.Info("user created", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "id": user.ID})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input AuthInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), input.Email)
	if err != nil {
		if !errors.Is(err, database.ErrUserNotFound) {
			h.logger.Error("login lookup failed", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.issue(c, user.ID)
}

// Refresh exchanges a stored refresh token for a new token pair. The old
// refresh token is revoked.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	claims, err := middleware.ParseToken(h.secret, input.RefreshToken, middleware.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	stored, found, err := h.tokens.Get(ctx, refreshKey(claims.ID))
	if err != nil {
		h.logger.Error("refresh token lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading refresh token", "details": err.Error()})
		return
	}
	if !found || string(stored) != strconv.FormatUint(uint64(claims.UserID), 10) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token revoked"})
		return
	}
	if err := h.tokens.Delete(ctx, refreshKey(claims.ID)); err != nil {
		h.logger.Warn("revoke refresh token failed", zap.Error(err))
	}

	h.issue(c, claims.UserID)
}

func (h *AuthHandler) issue(c *gin.Context, userID uint) {
	accessToken, _, err := middleware.IssueToken(h.secret, userID, middleware.AccessToken, h.accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token", "details": err.Error()})
		return
	}
	refreshToken, refresh, err := middleware.IssueToken(h.secret, userID, middleware.RefreshToken, h.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating refresh token", "details": err.Error()})
		return
	}

	value := []byte(strconv.FormatUint(uint64(userID), 10))
	if err := h.tokens.Set(c.Request.Context(), refreshKey(refresh.ID), value, h.refreshTTL); err != nil {
		h.logger.Error("store refresh token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing refresh token", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int64(h.accessTTL.Seconds()),
	})
}
