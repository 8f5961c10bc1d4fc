package verification

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrace/medverify/internal/logging"
	"github.com/pharmatrace/medverify/internal/validation"
)

// Handler exposes the verification HTTP endpoint.
type Handler struct {
	engine *Engine
}

// NewHandler creates a verification HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts the verification endpoint on the given router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/verify", h.verify)
}

type verifyRequest struct {
	Code string   `json:"code"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
}

type verifyResponse struct {
	Status     string     `json:"status"`
	Display    string     `json:"display_status"`
	Reason     string     `json:"reason"`
	Confidence float64    `json:"confidence"`
	BatchInfo  *BatchInfo `json:"batch_info,omitempty"`
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body must be valid JSON",
		})
		return
	}
	// Blank and missing codes are not rejected: they go through the
	// catalogue lookup like any other string, fail it, and come back as
	// a logged Fake outcome.
	if len(req.Code) > validation.MaxCodeLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "code is too long",
		})
		return
	}

	outcome, err := h.engine.Verify(c.Request.Context(), Request{
		Code:     req.Code,
		Lat:      req.Lat,
		Lng:      req.Lng,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		logging.L(c.Request.Context()).Error("verification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "verification temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, verifyResponse{
		Status:     string(outcome.Status),
		Display:    outcome.Status.Display(),
		Reason:     outcome.Reason,
		Confidence: outcome.Confidence,
		BatchInfo:  outcome.BatchInfo,
	})
}
