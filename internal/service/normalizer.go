package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"hostpay/internal/domain"
	"hostpay/internal/models"
	"hostpay/pkg/ethaddr"
)

// Normalizer maps each rail's event schema into the canonical
// PaymentEvent. It may return (nil, nil): a deliberate drop, such as a
// token transfer addressed to someone else.
type Normalizer struct {
	merchantAddress string
}

func NewNormalizer(merchantAddress string) *Normalizer {
	return &Normalizer{merchantAddress: merchantAddress}
}

// chargeKinds is the hosted-charge rail's event taxonomy.
var chargeKinds = map[string]domain.EventKind{
	"charge:created":   domain.KindCreated,
	"charge:pending":   domain.KindPending,
	"charge:confirmed": domain.KindConfirmed,
	"charge:delayed":   domain.KindDelayed,
	"charge:failed":    domain.KindFailed,
	"charge:resolved":  domain.KindResolved,
}

// Normalize converts a verified payload for the given rail.
func (n *Normalizer) Normalize(rail domain.Rail, body []byte) (*models.PaymentEvent, error) {
	switch rail {
	case domain.RailHostedCharge:
		return n.normalizeCharge(body)
	case domain.RailChainTransfer:
		return n.normalizeChainEvent(body)
	}
	return nil, &NormalizationError{Rail: rail, Kind: "unsupported rail"}
}

type chargeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata"`
		Pricing  struct {
			Local struct {
				Amount   string `json:"amount"`
				Currency string `json:"currency"`
			} `json:"local"`
		} `json:"pricing"`
	} `json:"data"`
}

func (n *Normalizer) normalizeCharge(body []byte) (*models.PaymentEvent, error) {
	var ev chargeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, &NormalizationError{Rail: domain.RailHostedCharge, Kind: "unparseable"}
	}
	kind, ok := chargeKinds[ev.Type]
	if !ok {
		return nil, &NormalizationError{Rail: domain.RailHostedCharge, Kind: ev.Type}
	}
	// Prefer the correlation token we planted in charge metadata; the
	// charge id works too since it doubles as the intent id on this rail.
	ref := ev.Data.Metadata["correlation_token"]
	if ref == "" {
		ref = ev.Data.ID
	}
	return &models.PaymentEvent{
		EventID:    ev.ID,
		Rail:       domain.RailHostedCharge,
		IntentRef:  ref,
		Kind:       kind,
		ObservedAt: time.Now(),
		Raw:        append(json.RawMessage(nil), body...),
	}, nil
}

type chainEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		// erc20_transfer fields
		FromAddress     string `json:"from_address"`
		ToAddress       string `json:"to_address"`
		Amount          string `json:"amount"`
		ContractAddress string `json:"contract_address"`
		TransactionHash string `json:"transaction_hash"`
		LogIndex        *int   `json:"log_index"`
		// wallet_activity fields
		Address      string `json:"address"`
		ActivityType string `json:"activity_type"`
	} `json:"data"`
}

func (n *Normalizer) normalizeChainEvent(body []byte) (*models.PaymentEvent, error) {
	var ev chainEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, &NormalizationError{Rail: domain.RailChainTransfer, Kind: "unparseable"}
	}
	switch ev.Type {
	case domain.SubEventERC20Transfer:
		// A broad contract filter sees every transfer; only ones to the
		// merchant address are payments. Others are not errors.
		if !ethaddr.Equal(ev.Data.ToAddress, n.merchantAddress) {
			log.Printf("[Normalizer] transfer to %s is not for merchant, dropped", ev.Data.ToAddress)
			return nil, nil
		}
		eventID := ev.Data.TransactionHash
		if ev.Data.LogIndex != nil {
			eventID = transferEventID(ev.Data.TransactionHash, *ev.Data.LogIndex)
		}
		return &models.PaymentEvent{
			EventID:    eventID,
			Rail:       domain.RailChainTransfer,
			IntentRef:  DerivedRef(ev.Data.ToAddress, ev.Data.Amount),
			Kind:       domain.KindConfirmed,
			ObservedAt: time.Now(),
			Raw:        append(json.RawMessage(nil), body...),
		}, nil
	case domain.SubEventWalletActivity:
		return &models.PaymentEvent{
			EventID:    ev.ID,
			Rail:       domain.RailChainTransfer,
			Kind:       domain.KindActivityObserved,
			ObservedAt: time.Now(),
			Raw:        append(json.RawMessage(nil), body...),
		}, nil
	}
	return nil, &NormalizationError{Rail: domain.RailChainTransfer, Kind: ev.Type}
}

// transferEventID pins a transfer event to its log position so two
// transfers in one transaction stay distinct.
func transferEventID(hash string, logIndex int) string {
	return fmt.Sprintf("%s#%d", hash, logIndex)
}

// DerivedRef is the fallback correlation key when a rail echoes no
// identifier of ours. Two identical concurrent payments collide on it;
// the status machine surfaces that as an unresolved event.
func DerivedRef(address, amount string) string {
	return ethaddr.Canonical(address) + ":" + amount
}
