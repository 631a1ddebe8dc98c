package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hostpay/config"
	"hostpay/internal/domain"
	"hostpay/internal/models"
	"hostpay/pkg/ethaddr"
	"hostpay/pkg/rails"
)

// EventOutcome summarizes what handleEvent did, for the ack body.
type EventOutcome struct {
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Dropped   bool   `json:"dropped,omitempty"`
	Reason    string `json:"reason,omitempty"`
	IntentID  string `json:"intent_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ValidationError is a caller-input problem on createPayment; the only
// way createPayment fails.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Orchestrator ties the rails, fallback policy, verifier, normalizer and
// status machine together. All dependencies are injected at startup;
// there is no hidden global state.
type Orchestrator struct {
	cfg        *config.Config
	clients    map[domain.Rail]rails.Client
	monitor    rails.SubscriptionClient
	policy     *FallbackPolicy
	verifier   *Verifier
	normalizer *Normalizer
	machine    *Machine
}

func NewOrchestrator(
	cfg *config.Config,
	commerce rails.Client,
	onramp rails.Client,
	monitor rails.SubscriptionClient,
	policy *FallbackPolicy,
	verifier *Verifier,
	normalizer *Normalizer,
	machine *Machine,
) *Orchestrator {
	return &Orchestrator{
		cfg: cfg,
		clients: map[domain.Rail]rails.Client{
			domain.RailHostedCharge:  commerce,
			domain.RailOnramp:        onramp,
			domain.RailChainTransfer: monitor,
		},
		monitor:    monitor,
		policy:     policy,
		verifier:   verifier,
		normalizer: normalizer,
		machine:    machine,
	}
}

// railForMethod picks the rail from the requested payment method.
// Hosted checkout is the default; card and wallet methods ride the
// onramp; an explicit transfer request uses the chain rail.
func railForMethod(method string) domain.Rail {
	switch method {
	case "apple_pay", "google_pay", "debit_card":
		return domain.RailOnramp
	case "transfer", "onchain":
		return domain.RailChainTransfer
	}
	return domain.RailHostedCharge
}

// CreatePayment validates the request, obtains an intent on the chosen
// rail (demo fallback included) and records it. It fails only on caller
// input; rail trouble degrades to demo mode.
func (o *Orchestrator) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.PaymentIntent, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Message: "not a decimal number"}
	}
	if amount.Sign() <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}
	if req.Currency == "" {
		return nil, &ValidationError{Field: "currency", Message: "required"}
	}
	destination := req.Destination
	if destination == "" {
		destination = o.cfg.Merchant.DestinationAddress
	}
	if !ethaddr.Valid(destination) {
		return nil, &ValidationError{Field: "destination_address", Message: "not a valid address"}
	}

	rail := railForMethod(req.PaymentMethod)
	client := o.clients[rail]
	name := req.Name
	if name == "" {
		name = "Subscription"
	}
	intentReq := rails.IntentRequest{
		Amount:             amount.String(),
		Currency:           req.Currency,
		Name:               name,
		Description:        req.Description,
		DestinationAddress: destination,
		CorrelationToken:   "hostpay-" + uuid.New().String(),
		RedirectURL:        o.cfg.Frontend.URL + "/success",
		CancelURL:          o.cfg.Frontend.URL + "/",
		PaymentMethod:      req.PaymentMethod,
	}
	intent := o.policy.ObtainIntent(ctx, client, intentReq)
	o.machine.Record(intent)
	log.Printf("[Orchestrator] intent %s created on %s (demo=%v amount=%s %s)",
		intent.ID, intent.Rail, intent.IsDemo, intent.Amount, intent.Currency)
	return intent, nil
}

// HandleEvent runs an inbound rail notification through the
// verify -> normalize -> apply pipeline, short-circuiting on the first
// failure. Only a VerificationError should produce a non-2xx answer.
func (o *Orchestrator) HandleEvent(ctx context.Context, rail domain.Rail, body []byte, signature string) (EventOutcome, error) {
	if err := o.verifier.Verify(rail, body, signature); err != nil {
		return EventOutcome{}, err
	}
	ev, err := o.normalizer.Normalize(rail, body)
	if err != nil {
		// Unknown taxonomy: dropped internally, acked to the rail so it
		// does not retry something a retry cannot fix.
		log.Printf("[Orchestrator] event dropped: %v", err)
		return EventOutcome{Dropped: true, Reason: err.Error()}, nil
	}
	if ev == nil {
		return EventOutcome{Dropped: true, Reason: "not addressed to merchant"}, nil
	}
	res := o.machine.Apply(ev)
	return EventOutcome{
		Applied:   res.Applied,
		Duplicate: res.Duplicate,
		Dropped:   res.Unresolved,
		Reason:    res.Reason,
		IntentID:  res.IntentID,
		Status:    string(res.Status),
	}, nil
}

// GetPaymentStatus returns the current intent view, or ErrNotFound.
func (o *Orchestrator) GetPaymentStatus(id string) (*models.PaymentIntent, error) {
	return o.machine.Get(id)
}

// SimulateDemoCompletion advances a demo intent; see Machine.
func (o *Orchestrator) SimulateDemoCompletion(id string) (*models.PaymentIntent, error) {
	return o.machine.SimulateDemoCompletion(id)
}

// Unresolved exposes the unattributable-event audit trail.
func (o *Orchestrator) Unresolved() []UnresolvedEvent {
	return o.machine.Unresolved()
}

// SetupSubscriptions registers the two standing notification targets on
// the chain-activity feed: token transfers into the merchant address and
// general activity on it.
func (o *Orchestrator) SetupSubscriptions(ctx context.Context, baseNotificationURL string) ([]models.WebhookSubscription, []error) {
	merchant := o.cfg.Merchant
	specs := []rails.SubscriptionSpec{
		{
			NetworkID:        merchant.NetworkID,
			EventType:        domain.SubEventERC20Transfer,
			NotificationURI:  baseNotificationURL + "/cdp/usdc-payment",
			ContractAddress:  merchant.TokenContract,
			RecipientAddress: merchant.DestinationAddress,
		},
		{
			NetworkID:        merchant.NetworkID,
			EventType:        domain.SubEventWalletActivity,
			NotificationURI:  baseNotificationURL + "/cdp/address-activity",
			TrackedAddresses: []string{merchant.DestinationAddress},
		},
	}
	var created []models.WebhookSubscription
	var errs []error
	for _, spec := range specs {
		sub, err := o.monitor.Subscribe(ctx, spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", spec.EventType, err))
			continue
		}
		created = append(created, *sub)
	}
	return created, errs
}

func (o *Orchestrator) ListSubscriptions(ctx context.Context) ([]models.WebhookSubscription, error) {
	return o.monitor.List(ctx)
}

func (o *Orchestrator) UpdateSubscription(ctx context.Context, id, uri string) error {
	return o.monitor.Update(ctx, id, uri)
}

func (o *Orchestrator) DeleteSubscription(ctx context.Context, id string) error {
	return o.monitor.Unsubscribe(ctx, id)
}
