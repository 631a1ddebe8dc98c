package rails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hostpay/config"
	"hostpay/internal/domain"
	"hostpay/internal/models"
)

// tokenDecimals is the base-unit scale of the purchase asset (USDC).
const tokenDecimals = 6

// MonitorClient is the direct on-chain transfer rail. Payment intents
// are local constructions (a transfer URI against the token contract);
// confirmations arrive through chain-activity subscriptions managed on
// the platform API.
type MonitorClient struct {
	cfg      *config.CDPConfig
	merchant *config.MerchantConfig
	client   *http.Client
}

func NewMonitorClient(cfg *config.CDPConfig, merchant *config.MerchantConfig) *MonitorClient {
	return &MonitorClient{
		cfg:      cfg,
		merchant: merchant,
		client:   &http.Client{Timeout: cfg.CallTimeout},
	}
}

func (c *MonitorClient) Rail() domain.Rail { return domain.RailChainTransfer }

func (c *MonitorClient) Configured() bool { return c.cfg.Configured() }

// CreateIntent synthesizes a direct-transfer intent: an EIP-681 payment
// URI the payer's wallet can open. No network call is needed; the intent
// is confirmed later by a transfer event from the activity feed.
func (c *MonitorClient) CreateIntent(ctx context.Context, req IntentRequest) (*models.PaymentIntent, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil, &Error{Code: ErrInvalidRequest, Message: fmt.Sprintf("bad amount %q", req.Amount)}
	}
	baseUnits := amount.Shift(tokenDecimals).Truncate(0)
	now := time.Now()
	return &models.PaymentIntent{
		ID:                 "transfer_" + uuid.New().String(),
		Rail:               domain.RailChainTransfer,
		Amount:             req.Amount,
		Currency:           req.Currency,
		DestinationAsset:   c.merchant.PurchaseAsset,
		DestinationNetwork: c.merchant.Network,
		DestinationAddress: req.DestinationAddress,
		CheckoutURL: fmt.Sprintf("ethereum:%s/transfer?address=%s&uint256=%s",
			c.merchant.TokenContract, req.DestinationAddress, baseUnits.String()),
		Status:           domain.StatusCreated,
		CorrelationToken: req.CorrelationToken,
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
	}, nil
}

type monitorSubscriptionReq struct {
	NetworkID       string                `json:"network_id"`
	EventType       string                `json:"event_type"`
	NotificationURI string                `json:"notification_uri"`
	EventFilters    []monitorEventFilter  `json:"event_filters,omitempty"`
	EventTypeFilter *monitorAddressFilter `json:"event_type_filter,omitempty"`
}

type monitorEventFilter struct {
	ContractAddress string `json:"contract_address"`
	ToAddress       string `json:"to_address"`
}

type monitorAddressFilter struct {
	Addresses []string `json:"addresses"`
	// WalletID stays empty to track external addresses only.
	WalletID string `json:"wallet_id"`
}

type monitorSubscription struct {
	ID              string                `json:"id"`
	NetworkID       string                `json:"network_id"`
	EventType       string                `json:"event_type"`
	NotificationURI string                `json:"notification_uri"`
	EventFilters    []monitorEventFilter  `json:"event_filters"`
	EventTypeFilter *monitorAddressFilter `json:"event_type_filter"`
}

func (s *monitorSubscription) toModel() models.WebhookSubscription {
	out := models.WebhookSubscription{
		ID:              s.ID,
		NetworkID:       s.NetworkID,
		EventType:       s.EventType,
		NotificationURI: s.NotificationURI,
	}
	if len(s.EventFilters) > 0 {
		out.ContractAddress = s.EventFilters[0].ContractAddress
		out.RecipientAddress = s.EventFilters[0].ToAddress
	}
	if s.EventTypeFilter != nil {
		out.TrackedAddresses = s.EventTypeFilter.Addresses
	}
	return out
}

// Subscribe registers one notification target on the activity feed.
func (c *MonitorClient) Subscribe(ctx context.Context, spec SubscriptionSpec) (*models.WebhookSubscription, error) {
	payload := monitorSubscriptionReq{
		NetworkID:       spec.NetworkID,
		EventType:       spec.EventType,
		NotificationURI: spec.NotificationURI,
	}
	switch spec.EventType {
	case domain.SubEventERC20Transfer:
		payload.EventFilters = []monitorEventFilter{{
			ContractAddress: spec.ContractAddress,
			ToAddress:       spec.RecipientAddress,
		}}
	case domain.SubEventWalletActivity:
		payload.EventTypeFilter = &monitorAddressFilter{Addresses: spec.TrackedAddresses}
	default:
		return nil, &Error{Code: ErrInvalidRequest, Message: fmt.Sprintf("unknown event type %q", spec.EventType)}
	}
	body, _ := json.Marshal(payload)
	raw, err := c.do(ctx, http.MethodPost, "/v1/webhooks", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var sub monitorSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, &Error{Code: ErrRailRejected, Message: "malformed subscription response"}
	}
	log.Printf("[Monitor] subscription created id=%s type=%s uri=%s", sub.ID, sub.EventType, sub.NotificationURI)
	out := sub.toModel()
	return &out, nil
}

// List enumerates registered subscriptions.
func (c *MonitorClient) List(ctx context.Context) ([]models.WebhookSubscription, error) {
	raw, err := c.do(ctx, http.MethodGet, "/v1/webhooks", nil)
	if err != nil {
		return nil, err
	}
	var page struct {
		Data []monitorSubscription `json:"data"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, &Error{Code: ErrRailRejected, Message: "malformed subscription list"}
	}
	out := make([]models.WebhookSubscription, 0, len(page.Data))
	for i := range page.Data {
		out = append(out, page.Data[i].toModel())
	}
	return out, nil
}

// Update changes a subscription's notification URI. Other fields are
// immutable on the feed.
func (c *MonitorClient) Update(ctx context.Context, id, notificationURI string) error {
	body, _ := json.Marshal(map[string]string{"notification_uri": notificationURI})
	_, err := c.do(ctx, http.MethodPut, "/v1/webhooks/"+id, bytes.NewReader(body))
	return err
}

// Unsubscribe removes a subscription by id.
func (c *MonitorClient) Unsubscribe(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/webhooks/"+id, nil)
	return err
}

func (c *MonitorClient) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.MonitorBaseURL+path, body)
	if err != nil {
		return nil, unreachable(err)
	}
	token, err := bearerToken(c.cfg.APIKeyID, c.cfg.PrivateKey, method, req.URL.Host, req.URL.Path)
	if err != nil {
		return nil, &Error{Code: ErrUnauthorized, Message: "cannot sign request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		msg := string(respBody)
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			msg = e.Message
		}
		return nil, classify(resp.StatusCode, msg)
	}
	return respBody, nil
}
