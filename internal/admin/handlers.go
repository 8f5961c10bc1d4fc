package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrace/medverify/internal/logging"
)

// Handler exposes the admin HTTP endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler creates an admin HTTP handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts the admin endpoints on the given router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/admin/login", h.login)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login checks credentials. Bad credentials are a business outcome, not a
// transport failure, so the response is 200 with success=false.
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username and password are required",
		})
		return
	}

	token, err := h.manager.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "Invalid credentials",
			})
			return
		}
		logging.L(c.Request.Context()).Error("admin login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "login temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
	})
}
