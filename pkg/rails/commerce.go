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

const commerceAPIVersion = "2018-03-22"

// CommerceClient creates hosted-checkout charges on the Commerce API.
type CommerceClient struct {
	cfg      *config.CommerceConfig
	merchant *config.MerchantConfig
	client   *http.Client
}

func NewCommerceClient(cfg *config.CommerceConfig, merchant *config.MerchantConfig) *CommerceClient {
	return &CommerceClient{
		cfg:      cfg,
		merchant: merchant,
		client:   &http.Client{Timeout: cfg.CallTimeout},
	}
}

func (c *CommerceClient) Rail() domain.Rail { return domain.RailHostedCharge }

func (c *CommerceClient) Configured() bool { return c.cfg.Configured() }

type ChargeReq struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	LocalPrice  commercePrice     `json:"local_price"`
	PricingType string            `json:"pricing_type"`
	RedirectURL string            `json:"redirect_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

type commercePrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type Charge struct {
	ID        string `json:"id"`
	HostedURL string `json:"hosted_url"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
	Timeline  []struct {
		Status string `json:"status"`
	} `json:"timeline"`
}

type commerceEnvelope struct {
	Data  Charge `json:"data"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent opens a fixed-price charge for the purchase asset and
// returns it as a payment intent. The correlation token rides in the
// charge metadata and comes back on every webhook event.
func (c *CommerceClient) CreateIntent(ctx context.Context, req IntentRequest) (*models.PaymentIntent, error) {
	description := req.Description
	if description == "" {
		description = req.Name + " - " + c.merchant.PurchaseAsset + " payment on " + c.merchant.Network
	}
	payload := ChargeReq{
		Name:        req.Name,
		Description: description,
		LocalPrice:  commercePrice{Amount: req.Amount, Currency: req.Currency},
		PricingType: "fixed_price",
		RedirectURL: req.RedirectURL,
		CancelURL:   req.CancelURL,
		Metadata: map[string]string{
			"network":             c.merchant.Network,
			"destination_address": req.DestinationAddress,
			"purchase_currency":   c.merchant.PurchaseAsset,
			"correlation_token":   req.CorrelationToken,
			"created_at":          time.Now().UTC().Format(time.RFC3339),
		},
	}
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, unreachable(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-CC-Api-Key", c.cfg.APIKey)
	httpReq.Header.Set("X-CC-Version", commerceAPIVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	var env commerceEnvelope
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := string(respBody)
		if json.Unmarshal(respBody, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return nil, classify(resp.StatusCode, msg)
	}
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &Error{Code: ErrRailRejected, Message: "malformed charge response", HTTPStatus: resp.StatusCode}
	}
	charge := env.Data
	log.Printf("[Commerce] charge created id=%s status=%s", charge.ID, charge.timelineStatus())

	createdAt, expiresAt := parseWindow(charge.CreatedAt, charge.ExpiresAt)
	return &models.PaymentIntent{
		ID:                 charge.ID,
		Rail:               domain.RailHostedCharge,
		Amount:             req.Amount,
		Currency:           req.Currency,
		DestinationAsset:   c.merchant.PurchaseAsset,
		DestinationNetwork: c.merchant.Network,
		DestinationAddress: req.DestinationAddress,
		CheckoutURL:        charge.HostedURL,
		Status:             chargeStatus(charge.timelineStatus()),
		CorrelationToken:   req.CorrelationToken,
		CreatedAt:          createdAt,
		ExpiresAt:          expiresAt,
	}, nil
}

// GetCharge fetches charge details by id.
func (c *CommerceClient) GetCharge(ctx context.Context, id string) (*Charge, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/charges/"+id, nil)
	if err != nil {
		return nil, unreachable(err)
	}
	httpReq.Header.Set("X-CC-Api-Key", c.cfg.APIKey)
	httpReq.Header.Set("X-CC-Version", commerceAPIVersion)
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, classify(resp.StatusCode, string(respBody))
	}
	var env commerceEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &Error{Code: ErrRailRejected, Message: "malformed charge response", HTTPStatus: resp.StatusCode}
	}
	return &env.Data, nil
}

func (ch *Charge) timelineStatus() string {
	if len(ch.Timeline) == 0 {
		return "NEW"
	}
	return ch.Timeline[0].Status
}

// chargeStatus maps a Commerce timeline status onto the intent lifecycle.
func chargeStatus(s string) domain.Status {
	switch s {
	case "NEW":
		return domain.StatusCreated
	case "PENDING":
		return domain.StatusPending
	case "COMPLETED":
		return domain.StatusConfirmed
	case "EXPIRED", "CANCELED":
		return domain.StatusFailed
	}
	return domain.StatusCreated
}

// parseWindow parses the rail's RFC3339 validity window, falling back to
// now / now+1h so ExpiresAt is always after CreatedAt.
func parseWindow(created, expires string) (time.Time, time.Time) {
	createdAt, err := time.Parse(time.RFC3339, created)
	if err != nil {
		createdAt = time.Now()
	}
	expiresAt, err := time.Parse(time.RFC3339, expires)
	if err != nil || !expiresAt.After(createdAt) {
		expiresAt = createdAt.Add(time.Hour)
	}
	return createdAt, expiresAt
}
