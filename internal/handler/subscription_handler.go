package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostpay/internal/service"
)

// SubscriptionHandler manages notification targets on the
// chain-activity feed. One-shot administrative operations, no poller.
type SubscriptionHandler struct {
	orch *service.Orchestrator
}

func NewSubscriptionHandler(orch *service.Orchestrator) *SubscriptionHandler {
	return &SubscriptionHandler{orch: orch}
}

// Setup registers the standing transfer + activity subscriptions.
func (h *SubscriptionHandler) Setup(c *gin.Context) {
	var req struct {
		BaseURL string `json:"base_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing base_url parameter",
			"example": gin.H{"base_url": "https://your-domain.com/api"},
		})
		return
	}
	created, errs := h.orch.SetupSubscriptions(c.Request.Context(), req.BaseURL)
	failures := make([]string, 0, len(errs))
	for _, err := range errs {
		failures = append(failures, err.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       len(errs) == 0,
		"message":       fmt.Sprintf("setup complete: %d subscriptions created, %d failed", len(created), len(errs)),
		"subscriptions": created,
		"errors":        failures,
	})
}

func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.orch.ListSubscriptions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(subs), "subscriptions": subs})
}

func (h *SubscriptionHandler) Update(c *gin.Context) {
	var req struct {
		NotificationURI string `json:"notification_uri" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notification_uri required"})
		return
	}
	id := c.Param("id")
	if err := h.orch.UpdateSubscription(c.Request.Context(), id, req.NotificationURI); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "notification_uri": req.NotificationURI})
}

func (h *SubscriptionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.orch.DeleteSubscription(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "subscription " + id + " deleted"})
}
