package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpay/config"
	"hostpay/internal/domain"
	"hostpay/internal/models"
	"hostpay/internal/service"
	"hostpay/pkg/rails"
)

const (
	testMerchant = "0x4D884A7E2459bD7DDad48Ab7e125a528DfeE60Fd"
	testSecret   = "whsec_test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeCommerce stands in for the hosted-checkout rail.
type fakeCommerce struct {
	configured bool
	err        error
}

func (f *fakeCommerce) Rail() domain.Rail { return domain.RailHostedCharge }
func (f *fakeCommerce) Configured() bool  { return f.configured }

func (f *fakeCommerce) CreateIntent(_ context.Context, req rails.IntentRequest) (*models.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PaymentIntent{
		ID:                 "charge-live-1",
		Rail:               domain.RailHostedCharge,
		Amount:             req.Amount,
		Currency:           req.Currency,
		DestinationAddress: req.DestinationAddress,
		CheckoutURL:        "https://commerce.example/pay/charge-live-1",
		Status:             domain.StatusCreated,
		CorrelationToken:   req.CorrelationToken,
		CreatedAt:          time.Now(),
		ExpiresAt:          time.Now().Add(time.Hour),
	}, nil
}

// fakeMonitor stands in for the chain-transfer rail; subscriptions are
// kept in a slice so CRUD calls can be asserted on.
type fakeMonitor struct {
	fakeCommerce
	subs []models.WebhookSubscription
}

func (f *fakeMonitor) Rail() domain.Rail { return domain.RailChainTransfer }

func (f *fakeMonitor) Subscribe(_ context.Context, spec rails.SubscriptionSpec) (*models.WebhookSubscription, error) {
	sub := models.WebhookSubscription{
		ID:              fmt.Sprintf("sub-%d", len(f.subs)+1),
		NetworkID:       spec.NetworkID,
		EventType:       spec.EventType,
		NotificationURI: spec.NotificationURI,
	}
	f.subs = append(f.subs, sub)
	return &sub, nil
}

func (f *fakeMonitor) List(context.Context) ([]models.WebhookSubscription, error) {
	return f.subs, nil
}

func (f *fakeMonitor) Update(_ context.Context, id, uri string) error {
	for i := range f.subs {
		if f.subs[i].ID == id {
			f.subs[i].NotificationURI = uri
			return nil
		}
	}
	return &rails.Error{Code: rails.ErrRailRejected, Message: "not found", HTTPStatus: 404}
}

func (f *fakeMonitor) Unsubscribe(_ context.Context, id string) error {
	for i := range f.subs {
		if f.subs[i].ID == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return nil
		}
	}
	return &rails.Error{Code: rails.ErrRailRejected, Message: "not found", HTTPStatus: 404}
}

func testConfig() *config.Config {
	return &config.Config{
		Merchant: config.MerchantConfig{
			DestinationAddress: testMerchant,
			PurchaseAsset:      "USDC",
			Network:            "base",
			NetworkID:          "base-mainnet",
		},
		Frontend: config.FrontendConfig{URL: "http://localhost:3000"},
	}
}

// newTestStack wires a full orchestrator on fakes: hosted rail as given,
// onramp unconfigured, chain monitor configured, hosted-charge webhook
// secret set, chain webhook secretless.
func newTestStack(commerce rails.Client) (*service.Orchestrator, *service.Machine) {
	machine := service.NewMachine(nil)
	orch := service.NewOrchestrator(
		testConfig(),
		commerce,
		&fakeCommerce{},
		&fakeMonitor{},
		service.NewFallbackPolicy("http://localhost:3000", "USDC", "base", time.Second),
		service.NewVerifier(map[domain.Rail]string{domain.RailHostedCharge: testSecret}),
		service.NewNormalizer(testMerchant),
		machine,
	)
	return orch, machine
}

func webhookRouter(orch *service.Orchestrator) *gin.Engine {
	h := NewWebhookHandler(orch)
	r := gin.New()
	r.POST("/api/webhook", h.HandleCommerce)
	r.POST("/api/cdp/usdc-payment", h.HandleChainEvent)
	return r
}

// createLiveIntent runs a checkout against the configured fake rail and
// returns the recorded intent.
func createLiveIntent(t *testing.T, orch *service.Orchestrator) *models.PaymentIntent {
	t.Helper()
	intent, err := orch.CreatePayment(context.Background(), models.CreatePaymentRequest{
		Amount:   "59",
		Currency: "USD",
	})
	require.NoError(t, err)
	require.False(t, intent.IsDemo)
	return intent
}

func postSigned(r *gin.Engine, path, header string, body []byte, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(header, service.Sign(body, secret))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func chargeEventBody(eventID, eventType, token string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"id":"charge-live-1","metadata":{"correlation_token":%q}}}`,
		eventID, eventType, token))
}

func TestWebhook_SignedConfirmationAdvancesIntent(t *testing.T) {
	orch, _ := newTestStack(&fakeCommerce{configured: true})
	r := webhookRouter(orch)
	intent := createLiveIntent(t, orch)

	body := chargeEventBody("ev-1", "charge:confirmed", intent.CorrelationToken)
	w := postSigned(r, "/api/webhook", "X-CC-Webhook-Signature", body, testSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Received bool                 `json:"received"`
		Outcome  service.EventOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.True(t, resp.Outcome.Applied)
	assert.Equal(t, string(domain.StatusConfirmed), resp.Outcome.Status)

	got, err := orch.GetPaymentStatus(intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
}

func TestWebhook_DuplicateDeliveryAckedOnce(t *testing.T) {
	orch, _ := newTestStack(&fakeCommerce{configured: true})
	r := webhookRouter(orch)
	intent := createLiveIntent(t, orch)

	body := chargeEventBody("ev-dup", "charge:confirmed", intent.CorrelationToken)
	first := postSigned(r, "/api/webhook", "X-CC-Webhook-Signature", body, testSecret)
	second := postSigned(r, "/api/webhook", "X-CC-Webhook-Signature", body, testSecret)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	var resp struct {
		Outcome service.EventOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Outcome.Duplicate)
	assert.False(t, resp.Outcome.Applied)
}

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	orch, _ := newTestStack(&fakeCommerce{configured: true})
	r := webhookRouter(orch)
	intent := createLiveIntent(t, orch)

	body := chargeEventBody("ev-bad", "charge:confirmed", intent.CorrelationToken)
	w := postSigned(r, "/api/webhook", "X-CC-Webhook-Signature", body, "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Missing header entirely is rejected the same way.
	w = postSigned(r, "/api/webhook", "X-CC-Webhook-Signature", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	got, err := orch.GetPaymentStatus(intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, got.Status)
}

func TestWebhook_SignedGarbageIsBadRequest(t *testing.T) {
	orch, _ := newTestStack(&fakeCommerce{configured: true})
	r := webhookRouter(orch)

	body := []byte("not json at all")
	w := postSigned(r, "/api/webhook", "X-CC-Webhook-Signature", body, testSecret)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_TransferToStrangerAcked(t *testing.T) {
	orch, _ := newTestStack(&fakeCommerce{configured: true})
	r := webhookRouter(orch)

	body := []byte(`{
		"id": "feed-1",
		"type": "erc20_transfer",
		"data": {
			"to_address": "0x2222222222222222222222222222222222222222",
			"amount": "59",
			"transaction_hash": "0xdead",
			"log_index": 0
		}
	}`)
	w := postSigned(r, "/api/cdp/usdc-payment", "cdp-webhook-signature", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Outcome service.EventOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Outcome.Dropped)
	assert.Empty(t, orch.Unresolved())
}

func TestWebhook_UnmatchedEventRecordedUnresolved(t *testing.T) {
	orch, _ := newTestStack(&fakeCommerce{configured: true})
	r := webhookRouter(orch)

	// A transfer to the merchant with no intent for that amount.
	body := []byte(fmt.Sprintf(`{
		"id": "feed-2",
		"type": "erc20_transfer",
		"data": {
			"to_address": %q,
			"amount": "123.45",
			"transaction_hash": "0xbeef",
			"log_index": 1
		}
	}`, testMerchant))
	w := postSigned(r, "/api/cdp/usdc-payment", "cdp-webhook-signature", body, "")
	require.Equal(t, http.StatusOK, w.Code)

	unresolved := orch.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "no intent matches ref", unresolved[0].Reason)
}

func TestWebhook_UnknownKindAcked(t *testing.T) {
	orch, _ := newTestStack(&fakeCommerce{configured: true})
	r := webhookRouter(orch)

	body := []byte(`{"id":"ev-odd","type":"charge:celebrated","data":{"id":"charge-live-1"}}`)
	w := postSigned(r, "/api/webhook", "X-CC-Webhook-Signature", body, testSecret)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Outcome service.EventOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Outcome.Dropped)
}
