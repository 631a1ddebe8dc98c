package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpay/internal/domain"
)

func newTestVerifier() *Verifier {
	return NewVerifier(map[domain.Rail]string{
		domain.RailHostedCharge: "whsec_test",
	})
}

func TestVerifier_ValidSignature(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{"id":"ev-1","type":"charge:confirmed"}`)
	sig := Sign(body, "whsec_test")

	assert.NoError(t, v.Verify(domain.RailHostedCharge, body, sig))
}

func TestVerifier_InvalidSignature(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{"id":"ev-1","type":"charge:confirmed"}`)

	err := v.Verify(domain.RailHostedCharge, body, "deadbeef")
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, VerifyInvalidSignature, verr.Code)
}

func TestVerifier_MissingSignature(t *testing.T) {
	v := newTestVerifier()
	err := v.Verify(domain.RailHostedCharge, []byte(`{}`), "")
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, VerifyInvalidSignature, verr.Code)
}

// Signature is computed over the exact raw bytes; any mutation breaks it.
func TestVerifier_TamperedBody(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{"amount":"59"}`)
	sig := Sign(body, "whsec_test")

	err := v.Verify(domain.RailHostedCharge, []byte(`{"amount":"590"}`), sig)
	assert.Error(t, err)
}

// Secretless rails still require structured payloads.
func TestVerifier_SecretlessRailRequiresJSON(t *testing.T) {
	v := newTestVerifier()

	assert.NoError(t, v.Verify(domain.RailChainTransfer, []byte(`{"type":"erc20_transfer"}`), ""))

	err := v.Verify(domain.RailChainTransfer, []byte(`not json at all`), "")
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, VerifyMalformed, verr.Code)
}

func TestVerifier_SignedButMalformed(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`garbage`)
	sig := Sign(body, "whsec_test")

	err := v.Verify(domain.RailHostedCharge, body, sig)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, VerifyMalformed, verr.Code)
}
