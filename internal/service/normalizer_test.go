package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpay/internal/domain"
)

const merchantAddr = "0x4D884A7E2459bD7DDad48Ab7e125a528DfeE60Fd"

func chargeBody(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "ev-123",
		"type": %q,
		"data": {
			"id": "charge-abc",
			"metadata": {"correlation_token": "hostpay-tok-1"},
			"pricing": {"local": {"amount": "59", "currency": "USD"}}
		}
	}`, eventType))
}

func TestNormalizer_ChargeKinds(t *testing.T) {
	n := NewNormalizer(merchantAddr)
	cases := map[string]domain.EventKind{
		"charge:created":   domain.KindCreated,
		"charge:pending":   domain.KindPending,
		"charge:confirmed": domain.KindConfirmed,
		"charge:delayed":   domain.KindDelayed,
		"charge:failed":    domain.KindFailed,
		"charge:resolved":  domain.KindResolved,
	}
	for eventType, kind := range cases {
		t.Run(eventType, func(t *testing.T) {
			ev, err := n.Normalize(domain.RailHostedCharge, chargeBody(eventType))
			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, kind, ev.Kind)
			assert.Equal(t, "ev-123", ev.EventID)
			assert.Equal(t, domain.RailHostedCharge, ev.Rail)
		})
	}
}

func TestNormalizer_ChargePrefersCorrelationToken(t *testing.T) {
	n := NewNormalizer(merchantAddr)
	ev, err := n.Normalize(domain.RailHostedCharge, chargeBody("charge:confirmed"))
	require.NoError(t, err)
	assert.Equal(t, "hostpay-tok-1", ev.IntentRef)

	// Without metadata the charge id carries the correlation.
	body := []byte(`{"id":"ev-9","type":"charge:confirmed","data":{"id":"charge-xyz"}}`)
	ev, err = n.Normalize(domain.RailHostedCharge, body)
	require.NoError(t, err)
	assert.Equal(t, "charge-xyz", ev.IntentRef)
}

func TestNormalizer_UnknownChargeKind(t *testing.T) {
	n := NewNormalizer(merchantAddr)
	_, err := n.Normalize(domain.RailHostedCharge, chargeBody("charge:whatever"))
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "charge:whatever", nerr.Kind)
}

func transferBody(to, amount string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "feed-ev-1",
		"type": "erc20_transfer",
		"data": {
			"from_address": "0x1111111111111111111111111111111111111111",
			"to_address": %q,
			"amount": %q,
			"contract_address": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			"transaction_hash": "0xabc123",
			"log_index": 7
		}
	}`, to, amount))
}

func TestNormalizer_TransferToMerchantConfirms(t *testing.T) {
	n := NewNormalizer(merchantAddr)
	// Case differences must not matter.
	ev, err := n.Normalize(domain.RailChainTransfer, transferBody("0x4d884a7e2459bd7ddad48ab7e125a528dfee60fd", "59"))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, domain.KindConfirmed, ev.Kind)
	assert.Equal(t, "0xabc123#7", ev.EventID)
	assert.Equal(t, DerivedRef(merchantAddr, "59"), ev.IntentRef)
}

// A transfer to anyone else is observed by the broad filter but is not
// a payment: no event, no error.
func TestNormalizer_TransferToStrangerDropped(t *testing.T) {
	n := NewNormalizer(merchantAddr)
	ev, err := n.Normalize(domain.RailChainTransfer, transferBody("0x2222222222222222222222222222222222222222", "59"))
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestNormalizer_WalletActivityIsAuditOnly(t *testing.T) {
	n := NewNormalizer(merchantAddr)
	body := []byte(`{
		"id": "feed-ev-2",
		"type": "wallet_activity",
		"data": {"address": "0x4D884A7E2459bD7DDad48Ab7e125a528DfeE60Fd", "activity_type": "received"}
	}`)
	ev, err := n.Normalize(domain.RailChainTransfer, body)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, domain.KindActivityObserved, ev.Kind)
	assert.Equal(t, "feed-ev-2", ev.EventID)
}

func TestNormalizer_UnknownChainEventType(t *testing.T) {
	n := NewNormalizer(merchantAddr)
	_, err := n.Normalize(domain.RailChainTransfer, []byte(`{"id":"x","type":"nft_mint"}`))
	var nerr *NormalizationError
	assert.True(t, errors.As(err, &nerr))
}

func TestDerivedRef_CanonicalizesAddress(t *testing.T) {
	a := DerivedRef("0x4D884A7E2459bD7DDad48Ab7e125a528DfeE60Fd", "59")
	b := DerivedRef("0x4d884a7e2459bd7ddad48ab7e125a528dfee60fd", "59")
	assert.Equal(t, a, b)
}
