package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostpay/internal/service"
)

type PaymentHandler struct {
	orch *service.Orchestrator
}

func NewPaymentHandler(orch *service.Orchestrator) *PaymentHandler {
	return &PaymentHandler{orch: orch}
}

// GetStatus returns the current status view of one intent.
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	intent, err := h.orch.GetPaymentStatus(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment"})
		return
	}
	c.JSON(http.StatusOK, intent)
}

// ListUnresolved exposes the audit trail of events that verified but
// could not be attributed to exactly one intent.
func (h *PaymentHandler) ListUnresolved(c *gin.Context) {
	events := h.orch.Unresolved()
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

// SimulateDemo advances a demo intent to confirmed; the demo success
// redirect calls this in place of a live rail confirmation.
func (h *PaymentHandler) SimulateDemo(c *gin.Context) {
	intent, err := h.orch.SimulateDemoCompletion(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, intent)
}
