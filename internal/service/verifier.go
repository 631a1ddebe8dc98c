package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"

	"hostpay/internal/domain"
)

// Verifier authenticates inbound webhook payloads before anything else
// sees them. Rails with a shared secret get an HMAC check over the exact
// raw body; rails without one still must deliver valid JSON.
type Verifier struct {
	secrets map[domain.Rail]string
}

func NewVerifier(secrets map[domain.Rail]string) *Verifier {
	if secrets == nil {
		secrets = map[domain.Rail]string{}
	}
	return &Verifier{secrets: secrets}
}

// Verify checks body against the signature header for the given rail.
// A nil return is the only path on which the payload may be normalized.
func (v *Verifier) Verify(rail domain.Rail, body []byte, signature string) error {
	if secret := v.secrets[rail]; secret != "" {
		if signature == "" || !validSignature(body, signature, secret) {
			log.Printf("[Verifier] invalid signature on %s", rail)
			return &VerificationError{Code: VerifyInvalidSignature, Rail: rail}
		}
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		log.Printf("[Verifier] malformed payload on %s: %v", rail, err)
		return &VerificationError{Code: VerifyMalformed, Rail: rail}
	}
	return nil
}

func validSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign computes the hex HMAC-SHA256 of body; used by tests and local
// event simulation.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
