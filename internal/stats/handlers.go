package stats

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrace/medverify/internal/logging"
	"github.com/pharmatrace/medverify/internal/verifylog"
)

// Handler exposes the dashboard read endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a stats HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the dashboard endpoints on the given router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/logs", h.logs)
	r.GET("/stats", h.summary)
}

func (h *Handler) logs(c *gin.Context) {
	limit := DefaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "limit must be an integer",
			})
			return
		}
		limit = n
	}

	entries, err := h.service.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("listing logs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "could not load verification logs",
		})
		return
	}
	if entries == nil {
		entries = []*verifylog.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  entries,
		"count": len(entries),
	})
}

func (h *Handler) summary(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("building stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "could not build statistics",
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}
