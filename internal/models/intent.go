package models

import (
	"time"

	"hostpay/internal/domain"
)

// PaymentIntent is one attempt to collect payment on one rail.
// Intents are created by the orchestrator, mutated only by the status
// machine, and retained for the life of the process.
type PaymentIntent struct {
	ID                 string        `json:"id"`
	Rail               domain.Rail   `json:"rail"`
	Amount             string        `json:"amount"`
	Currency           string        `json:"currency"`
	DestinationAsset   string        `json:"destination_asset"`
	DestinationNetwork string        `json:"destination_network"`
	DestinationAddress string        `json:"destination_address"`
	CheckoutURL        string        `json:"checkout_url"`
	Status             domain.Status `json:"status"`
	IsDemo             bool          `json:"demo_mode"`
	DemoReason         string        `json:"demo_reason,omitempty"`
	// CorrelationToken is planted in rail metadata so webhook events can be
	// matched back to this intent when the rail echoes it.
	CorrelationToken string    `json:"correlation_token,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// CreatePaymentRequest is the caller-facing checkout request.
type CreatePaymentRequest struct {
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PaymentMethod string `json:"payment_method"` // apple_pay, google_pay, debit_card
	Destination   string `json:"destination_address"`
}
