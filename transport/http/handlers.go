package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/licensegate/core"
	"github.com/layer-3/licensegate/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	metrics     *Metrics
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, metrics *Metrics, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		metrics:     metrics,
		logger:      logger,
	}
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, message, err := h.authService.CreateChallenge(common.HexToAddress(req.Address))
	if err != nil {
		h.logger.Error("failed to create challenge", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": message,
	})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		ChallengeToken string `json:"challenge_token" binding:"required"`
		Signature      string `json:"signature" binding:"required"`
		Address        string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), req.ChallengeToken, req.Signature, common.HexToAddress(req.Address))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		// Map specific errors to appropriate status codes
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusBadRequest
			errorMsg = "Challenge token expired"
		case errors.Is(err, core.ErrInvalidChallenge), errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid challenge token"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		case errors.Is(err, core.ErrChallengeUsed):
			statusCode = http.StatusUnauthorized
			errorMsg = "Challenge already used"
		case errors.Is(err, core.ErrNoLicense):
			statusCode = http.StatusForbidden
			errorMsg = "No license for this product"
		default:
			h.logger.Error("login failed", "address", req.Address, "error", err)
		}

		h.metrics.login(statusCode)
		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	h.metrics.login(http.StatusOK)
	h.tokens(c, accessToken, refreshToken)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		// Map specific errors to appropriate status codes
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		case errors.Is(err, core.ErrNoLicense):
			statusCode = http.StatusForbidden
			errorMsg = "No license for this product"
		default:
			h.logger.Error("refresh failed", "error", err)
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	h.tokens(c, accessToken, refreshToken)
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Access token is optional - we only need refresh token to invalidate the session
	err := h.authService.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to logout"

		switch {
		case errors.Is(err, core.ErrTokenExpired):
			// Even if expired, we'll consider logout successful
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated wallet
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address.Hex(),
		"product_id": session.ProductID.String(),
		"expires_at": session.AccessExpiry.Unix(),
	})
}

// Authorize checks if a wallet is authorized
func (h *AuthHandlers) Authorize(c *gin.Context) {
	// If the request reached this handler, the auth middleware
	// has already validated the token
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    session.Address.Hex(),
	})
}

func (h *AuthHandlers) tokens(c *gin.Context, accessToken, refreshToken string) {
	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.authService.AccessTTL().Seconds()),
	})
}
