package rails

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"hostpay/config"
	"hostpay/internal/domain"
	"hostpay/internal/models"
)

const onrampAPIVersion = "2024-01-01"

// Guest-checkout payment methods accepted by the onramp API.
const (
	onrampMethodApplePay  = "GUEST_CHECKOUT_APPLE_PAY"
	onrampMethodDebitCard = "GUEST_CHECKOUT_DEBIT_CARD"
)

// OnrampClient creates fiat-to-crypto orders that settle the purchase
// asset straight to the merchant address.
type OnrampClient struct {
	cfg      *config.CDPConfig
	merchant *config.MerchantConfig
	client   *http.Client
}

func NewOnrampClient(cfg *config.CDPConfig, merchant *config.MerchantConfig) *OnrampClient {
	return &OnrampClient{
		cfg:      cfg,
		merchant: merchant,
		client:   &http.Client{Timeout: cfg.CallTimeout},
	}
}

func (c *OnrampClient) Rail() domain.Rail { return domain.RailOnramp }

func (c *OnrampClient) Configured() bool { return c.cfg.Configured() }

type onrampAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type onrampOrderReq struct {
	PaymentAmount     onrampAmount      `json:"paymentAmount"`
	PurchaseNetwork   string            `json:"purchaseNetwork"`
	PurchaseAsset     string            `json:"purchaseAsset"`
	DestinationWallet onrampDestination `json:"destinationWallet"`
	PaymentMethod     string            `json:"paymentMethod"`
	GuestCheckout     bool              `json:"guestCheckout"`
	PartnerOrderRef   string            `json:"partnerOrderRef,omitempty"`
}

type onrampDestination struct {
	Address     string   `json:"address"`
	Blockchains []string `json:"blockchains"`
}

// OnrampOrder is the order shape returned by the onramp API.
type OnrampOrder struct {
	ID              string       `json:"id"`
	Status          string       `json:"status"`
	PaymentLink     string       `json:"paymentLink"`
	PaymentAmount   onrampAmount `json:"paymentAmount"`
	ExpiresAt       string       `json:"expiresAt"`
	PartnerOrderRef string       `json:"partnerOrderRef"`
}

type onrampEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// PaymentMethod maps the caller-facing method name to the rail's format.
func PaymentMethod(method string) string {
	if method == "apple_pay" {
		return onrampMethodApplePay
	}
	return onrampMethodDebitCard
}

func (c *OnrampClient) CreateIntent(ctx context.Context, req IntentRequest) (*models.PaymentIntent, error) {
	payload := onrampOrderReq{
		PaymentAmount:   onrampAmount{Amount: req.Amount, Currency: req.Currency},
		PurchaseNetwork: c.merchant.Network,
		PurchaseAsset:   c.merchant.PurchaseAsset,
		DestinationWallet: onrampDestination{
			Address:     req.DestinationAddress,
			Blockchains: []string{c.merchant.Network},
		},
		PaymentMethod:   PaymentMethod(req.PaymentMethod),
		GuestCheckout:   true,
		PartnerOrderRef: req.CorrelationToken,
	}
	raw, err := c.post(ctx, "/onramp/orders", payload)
	if err != nil {
		return nil, err
	}
	var order OnrampOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, &Error{Code: ErrRailRejected, Message: "malformed order response"}
	}
	log.Printf("[Onramp] order created id=%s status=%s", order.ID, order.Status)

	now := time.Now()
	expiresAt, err := time.Parse(time.RFC3339, order.ExpiresAt)
	if err != nil || !expiresAt.After(now) {
		expiresAt = now.Add(time.Hour)
	}
	return &models.PaymentIntent{
		ID:                 order.ID,
		Rail:               domain.RailOnramp,
		Amount:             req.Amount,
		Currency:           req.Currency,
		DestinationAsset:   c.merchant.PurchaseAsset,
		DestinationNetwork: c.merchant.Network,
		DestinationAddress: req.DestinationAddress,
		CheckoutURL:        order.PaymentLink,
		Status:             onrampStatus(order.Status),
		CorrelationToken:   req.CorrelationToken,
		CreatedAt:          now,
		ExpiresAt:          expiresAt,
	}, nil
}

// GetOrder fetches order status by id.
func (c *OnrampClient) GetOrder(ctx context.Context, id string) (*OnrampOrder, error) {
	raw, err := c.get(ctx, "/onramp/orders/"+id)
	if err != nil {
		return nil, err
	}
	var order OnrampOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, &Error{Code: ErrRailRejected, Message: "malformed order response"}
	}
	return &order, nil
}

// Quote prices a purchase without creating an order.
func (c *OnrampClient) Quote(ctx context.Context, amount, currency, method string) (json.RawMessage, error) {
	payload := struct {
		PaymentAmount   onrampAmount `json:"paymentAmount"`
		PurchaseNetwork string       `json:"purchaseNetwork"`
		PurchaseAsset   string       `json:"purchaseAsset"`
		PaymentMethod   string       `json:"paymentMethod"`
	}{
		PaymentAmount:   onrampAmount{Amount: amount, Currency: currency},
		PurchaseNetwork: c.merchant.Network,
		PurchaseAsset:   c.merchant.PurchaseAsset,
		PaymentMethod:   PaymentMethod(method),
	}
	return c.post(ctx, "/onramp/quote", payload)
}

func (c *OnrampClient) post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	body, _ := json.Marshal(payload)
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
}

func (c *OnrampClient) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *OnrampClient) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.OnrampBaseURL+path, body)
	if err != nil {
		return nil, unreachable(err)
	}
	host := req.URL.Host
	token, err := bearerToken(c.cfg.APIKeyID, c.cfg.PrivateKey, method, host, req.URL.Path)
	if err != nil {
		return nil, &Error{Code: ErrUnauthorized, Message: "cannot sign request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("CB-VERSION", onrampAPIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	var env onrampEnvelope
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if json.Unmarshal(respBody, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return nil, classify(resp.StatusCode, msg)
	}
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &Error{Code: ErrRailRejected, Message: "malformed response envelope"}
	}
	return env.Data, nil
}

func onrampStatus(s string) domain.Status {
	switch s {
	case "pending", "PENDING":
		return domain.StatusPending
	case "completed", "COMPLETED":
		return domain.StatusConfirmed
	case "failed", "FAILED", "expired", "EXPIRED":
		return domain.StatusFailed
	}
	return domain.StatusCreated
}
