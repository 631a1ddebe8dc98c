package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostpay/internal/models"
	"hostpay/internal/service"
	"hostpay/pkg/rails"
)

type OnrampHandler struct {
	orch   *service.Orchestrator
	onramp *rails.OnrampClient
}

func NewOnrampHandler(orch *service.Orchestrator, onramp *rails.OnrampClient) *OnrampHandler {
	return &OnrampHandler{orch: orch, onramp: onramp}
}

// Create opens a fiat-to-crypto order (card / wallet guest checkout).
func (h *OnrampHandler) Create(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "missing required fields",
			"required": []string{"amount", "currency"},
		})
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "debit_card"
	}
	intent, err := h.orch.CreatePayment(c.Request.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create onramp order"})
		return
	}
	c.JSON(http.StatusOK, intent)
}

// GetOrder returns the local status view when the order is known here,
// falling back to the live rail for orders created elsewhere.
func (h *OnrampHandler) GetOrder(c *gin.Context) {
	id := c.Param("orderId")
	if intent, err := h.orch.GetPaymentStatus(id); err == nil {
		c.JSON(http.StatusOK, intent)
		return
	}
	if !h.onramp.Configured() {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	order, err := h.onramp.GetOrder(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// Quote prices a purchase without creating an order.
func (h *OnrampHandler) Quote(c *gin.Context) {
	var req struct {
		Amount        string `json:"amount" binding:"required"`
		Currency      string `json:"currency" binding:"required"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "missing required fields",
			"required": []string{"amount", "currency"},
		})
		return
	}
	if !h.onramp.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "onramp not configured"})
		return
	}
	quote, err := h.onramp.Quote(c.Request.Context(), req.Amount, req.Currency, req.PaymentMethod)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to get quote", "message": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", quote)
}
