package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostpay/internal/domain"
	"hostpay/internal/service"
)

// Signature headers each rail delivers.
const (
	commerceSignatureHeader = "X-CC-Webhook-Signature"
	monitorSignatureHeader  = "cdp-webhook-signature"
)

// WebhookHandler feeds raw rail deliveries into the orchestrator. The
// contract with the rails: anything past signature verification is
// acknowledged 2xx even when dropped internally, because rails retry
// hard on non-2xx and a retry cannot fix an unknown kind or an
// ambiguous reference.
type WebhookHandler struct {
	orch *service.Orchestrator
}

func NewWebhookHandler(orch *service.Orchestrator) *WebhookHandler {
	return &WebhookHandler{orch: orch}
}

// HandleCommerce processes hosted-charge lifecycle events.
func (h *WebhookHandler) HandleCommerce(c *gin.Context) {
	h.handle(c, domain.RailHostedCharge, c.GetHeader(commerceSignatureHeader))
}

// HandleChainEvent processes chain-activity feed deliveries (both the
// token-transfer and the address-activity notification targets).
func (h *WebhookHandler) HandleChainEvent(c *gin.Context) {
	h.handle(c, domain.RailChainTransfer, c.GetHeader(monitorSignatureHeader))
}

func (h *WebhookHandler) handle(c *gin.Context, rail domain.Rail, signature string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	outcome, err := h.orch.HandleEvent(c.Request.Context(), rail, body, signature)
	if err != nil {
		var verr *service.VerificationError
		if errors.As(err, &verr) {
			status := http.StatusBadRequest
			if verr.Code == service.VerifyInvalidSignature {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{"error": verr.Error()})
			return
		}
		log.Printf("[Webhook] unexpected handleEvent error on %s: %v", rail, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
