package service

import (
	"errors"
	"fmt"

	"hostpay/internal/domain"
)

// ErrNotFound is returned when an intent id is unknown.
var ErrNotFound = errors.New("payment not found")

type VerificationCode string

const (
	VerifyInvalidSignature VerificationCode = "invalid_signature"
	VerifyMalformed        VerificationCode = "malformed"
)

// VerificationError means the webhook envelope itself cannot be
// trusted; the transport layer answers non-2xx so the rail retries.
type VerificationError struct {
	Code VerificationCode
	Rail domain.Rail
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("webhook verification failed on %s: %s", e.Rail, e.Code)
}

// NormalizationError means a verified payload carried an event taxonomy
// this system does not know. The event is dropped but still acked.
type NormalizationError struct {
	Rail domain.Rail
	Kind string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("unknown %s event kind %q", e.Rail, e.Kind)
}
