package external

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"plara/internal/types"
)

// WebhookVerifier abstracts webhook signature checking so handlers can be
// tested with a mock verifier.
type WebhookVerifier interface {
	// Verify validates a webhook payload against the provided signature and
	// signing secret. Returns nil on success, an error on failure.
	Verify(payload []byte, signature string, secret types.SecretString) error
}

// HMACVerifier implements WebhookVerifier for Polar webhook deliveries.
// Polar signs the raw request body with HMAC-SHA256 and sends the lowercase
// hex digest in the Polar-Signature header.
type HMACVerifier struct{}

// Verify recomputes HMAC-SHA256(secret, payload) and compares it to the
// supplied hex digest in constant time.
//
// A missing secret fails closed: deliveries are rejected rather than accepted
// unverified. Absent or malformed signature strings are treated as a mismatch,
// never as a panic or a skip.
func (v *HMACVerifier) Verify(payload []byte, signature string, secret types.SecretString) error {
	if secret.Unmask() == "" {
		return types.NewAppError(
			types.ErrCodeConfigMissingWebhookSecret,
			"webhook secret is not configured",
			nil,
		)
	}

	if signature == "" {
		return types.NewAppError(
			types.ErrCodeAuthSignatureMissing,
			"webhook signature header is missing",
			nil,
		)
	}

	mac := hmac.New(sha256.New, []byte(secret.Unmask()))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant time for equal-length inputs and does not leak
	// match length for unequal ones.
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return types.NewAppError(
			types.ErrCodeAuthSignatureInvalid,
			"webhook signature verification failed",
			nil,
		)
	}

	return nil
}
