// Package tebex implements the billing provider boundary: webhook
// authentication, event decoding and the plugin API client.
package tebex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "X-Signature"

// Signature failures. Each maps to a distinct rejection.
var (
	ErrSignatureMissing  = errors.New("signature header is missing")
	ErrSignatureFormat   = errors.New("signature is not lowercase hex")
	ErrSignatureLength   = errors.New("signature has the wrong length")
	ErrSignatureMismatch = errors.New("signature does not match body")
)

// IsSignatureError reports whether err is one of the signature failures
// rather than a decoding failure.
func IsSignatureError(err error) bool {
	return errors.Is(err, ErrSignatureMissing) ||
		errors.Is(err, ErrSignatureFormat) ||
		errors.Is(err, ErrSignatureLength) ||
		errors.Is(err, ErrSignatureMismatch)
}

// Sign computes the signature of body: HMAC-SHA256 keyed with secret over
// the lowercase hex SHA-256 digest of body, rendered as lowercase hex.
func Sign(body []byte, secret string) string {
	return hex.EncodeToString(mac(body, secret))
}

func mac(body []byte, secret string) []byte {
	digest := sha256.Sum256(body)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(hex.EncodeToString(digest[:])))
	return h.Sum(nil)
}

// VerifySignature authenticates body against signature. The body must be the
// bytes exactly as received.
func VerifySignature(body []byte, signature, secret string) error {
	if signature == "" {
		return ErrSignatureMissing
	}
	for i := 0; i < len(signature); i++ {
		c := signature[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return ErrSignatureFormat
		}
	}
	if len(signature) != 2*sha256.Size {
		return ErrSignatureLength
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureFormat
	}

	if !hmac.Equal(provided, mac(body, secret)) {
		return ErrSignatureMismatch
	}
	return nil
}
