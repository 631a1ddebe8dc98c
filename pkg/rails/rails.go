// Package rails holds the payment-rail clients. Each rail owns its own
// authentication material and wire format; callers only ever see the
// Client interface, models types and *rails.Error.
package rails

import (
	"context"
	"errors"
	"fmt"

	"hostpay/internal/domain"
	"hostpay/internal/models"
)

type ErrorCode string

const (
	ErrUnreachable    ErrorCode = "unreachable"
	ErrUnauthorized   ErrorCode = "unauthorized"
	ErrInvalidRequest ErrorCode = "invalid_request"
	ErrRailRejected   ErrorCode = "rail_rejected"
)

// Error is the only error type rail clients return. Network and HTTP
// failures are folded into it; clients never panic on a bad response.
type Error struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("rail %s (%d): %s", e.Code, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("rail %s: %s", e.Code, e.Message)
}

// AsRailError unwraps err into *Error if possible.
func AsRailError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// classify maps an upstream HTTP status to an error code.
func classify(status int, message string) *Error {
	code := ErrRailRejected
	switch {
	case status == 401 || status == 403:
		code = ErrUnauthorized
	case status == 400 || status == 422:
		code = ErrInvalidRequest
	}
	return &Error{Code: code, Message: message, HTTPStatus: status}
}

func unreachable(err error) *Error {
	return &Error{Code: ErrUnreachable, Message: err.Error()}
}

// IntentRequest carries everything a rail needs to open a payment intent.
type IntentRequest struct {
	Amount             string
	Currency           string
	Name               string
	Description        string
	DestinationAddress string
	// CorrelationToken is echoed back by rails that support metadata,
	// letting webhook events resolve to the originating intent.
	CorrelationToken string
	RedirectURL      string
	CancelURL        string
	PaymentMethod    string
}

// Client is the uniform capability each rail implements.
type Client interface {
	Rail() domain.Rail
	// Configured reports whether live credentials are present; the
	// fallback policy skips the network entirely when false.
	Configured() bool
	CreateIntent(ctx context.Context, req IntentRequest) (*models.PaymentIntent, error)
}

// SubscriptionSpec describes one notification target to register on the
// chain-activity feed.
type SubscriptionSpec struct {
	NetworkID        string
	EventType        string
	NotificationURI  string
	ContractAddress  string
	RecipientAddress string
	TrackedAddresses []string
}

// SubscriptionClient is the extra capability of the chain-transfer
// monitor rail.
type SubscriptionClient interface {
	Client
	Subscribe(ctx context.Context, spec SubscriptionSpec) (*models.WebhookSubscription, error)
	List(ctx context.Context) ([]models.WebhookSubscription, error)
	Update(ctx context.Context, id, notificationURI string) error
	Unsubscribe(ctx context.Context, id string) error
}
