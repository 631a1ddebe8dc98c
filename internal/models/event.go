package models

import (
	"encoding/json"
	"time"

	"hostpay/internal/domain"
)

// PaymentEvent is one asynchronous rail notification after normalization.
type PaymentEvent struct {
	// EventID is the rail-native identifier used for deduplication;
	// unique per rail, not across rails.
	EventID string      `json:"event_id"`
	Rail    domain.Rail `json:"rail"`
	// IntentRef is a best-effort correlation key: the merchant correlation
	// token or intent id when the rail echoes one, otherwise a key derived
	// from destination address and amount.
	IntentRef  string           `json:"intent_ref"`
	Kind       domain.EventKind `json:"kind"`
	ObservedAt time.Time        `json:"observed_at"`
	// Raw keeps the verified payload for audit; never re-parsed downstream.
	Raw json.RawMessage `json:"-"`
}

// WebhookSubscription is a registered notification target on the
// chain-activity feed.
type WebhookSubscription struct {
	ID               string   `json:"id"`
	NetworkID        string   `json:"network_id"`
	EventType        string   `json:"event_type"`
	NotificationURI  string   `json:"notification_uri"`
	ContractAddress  string   `json:"contract_address,omitempty"`
	RecipientAddress string   `json:"recipient_address,omitempty"`
	TrackedAddresses []string `json:"tracked_addresses,omitempty"`
}
