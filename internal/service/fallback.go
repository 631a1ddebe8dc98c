package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hostpay/internal/domain"
	"hostpay/internal/models"
	"hostpay/pkg/rails"
)

// FallbackPolicy guarantees every checkout gets a usable payment link.
// Unconfigured or failing rails degrade to a deterministic demo intent
// instead of surfacing an error to the caller.
type FallbackPolicy struct {
	frontendURL string
	asset       string
	network     string
	callTimeout time.Duration
}

func NewFallbackPolicy(frontendURL, asset, network string, callTimeout time.Duration) *FallbackPolicy {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &FallbackPolicy{frontendURL: frontendURL, asset: asset, network: network, callTimeout: callTimeout}
}

// ObtainIntent is total: it returns a live intent when the rail
// cooperates and a demo intent otherwise, never an error.
func (p *FallbackPolicy) ObtainIntent(ctx context.Context, client rails.Client, req rails.IntentRequest) *models.PaymentIntent {
	if !client.Configured() {
		log.Printf("[Fallback] %s credentials absent or placeholder, demo mode", client.Rail())
		return p.demoIntent(client.Rail(), req, "no live credentials configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	intent, err := client.CreateIntent(callCtx, req)
	if err != nil {
		log.Printf("[Fallback] %s createIntent failed: %v, demo mode", client.Rail(), err)
		return p.demoIntent(client.Rail(), req, err.Error())
	}
	return intent
}

// demoIntent synthesizes the placeholder shape: a locally constructed
// success redirect stands in for the hosted payment link.
func (p *FallbackPolicy) demoIntent(rail domain.Rail, req rails.IntentRequest, reason string) *models.PaymentIntent {
	now := time.Now()
	session := now.UnixMilli()
	// The uuid suffix keeps ids unique when two demo checkouts land in
	// the same millisecond.
	return &models.PaymentIntent{
		ID:                 fmt.Sprintf("demo_%s_%d_%s", rail, session, uuid.NewString()[:8]),
		Rail:               rail,
		Amount:             req.Amount,
		Currency:           req.Currency,
		DestinationAsset:   p.asset,
		DestinationNetwork: p.network,
		DestinationAddress: req.DestinationAddress,
		CheckoutURL:        fmt.Sprintf("%s/success?demo=true&session=%d", p.frontendURL, session),
		Status:             domain.StatusCreated,
		IsDemo:             true,
		DemoReason:         reason,
		CorrelationToken:   req.CorrelationToken,
		CreatedAt:          now,
		ExpiresAt:          now.Add(time.Hour),
	}
}
