package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nusapos/internal/utils"
)

// AuthHTTPHandler issues register session tokens. Terminals authenticate with
// the shared API key and get back a short-lived JWT for the POS routes.
type AuthHTTPHandler struct {
	manager *utils.JWTManager
	apiKey  string
}

func NewAuthHTTPHandler(manager *utils.JWTManager, apiKey string) *AuthHTTPHandler {
	return &AuthHTTPHandler{manager: manager, apiKey: apiKey}
}

type LoginRequest struct {
	APIKey   string `json:"api_key" binding:"required"`
	UserID   int64  `json:"user_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	BranchID int64  `json:"branch_id" binding:"required"`
}

func (h *AuthHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	if h.apiKey == "" || req.APIKey != h.apiKey {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid API key"))
		return
	}

	token, expiresAt, err := h.manager.GenerateToken(req.UserID, req.BranchID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": expiresAt,
	}))
}
