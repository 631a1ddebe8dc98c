package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostpay/internal/models"
	"hostpay/internal/service"
)

type CheckoutHandler struct {
	orch *service.Orchestrator
}

func NewCheckoutHandler(orch *service.Orchestrator) *CheckoutHandler {
	return &CheckoutHandler{orch: orch}
}

// Create opens a payment intent on the hosted-checkout rail (or its
// demo fallback) and returns the payment link.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "missing required fields",
			"required": []string{"amount", "currency"},
		})
		return
	}
	// The hosted rail ignores wallet payment methods.
	req.PaymentMethod = ""

	intent, err := h.orch.CreatePayment(c.Request.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}
	c.JSON(http.StatusOK, intent)
}
