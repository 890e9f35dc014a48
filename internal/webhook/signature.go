package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Header names used by GitHub webhook deliveries
const (
	HeaderSignature = "X-Hub-Signature-256"
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
)

// SignaturePrefix is the algorithm prefix GitHub puts in front of the digest
const SignaturePrefix = "sha256="

// VerifySignature verifies the HMAC SHA256 signature of a webhook payload.
// The header must look like "sha256=<lowercase hex>"; any other shape is
// rejected before the HMAC is computed.
func VerifySignature(payload []byte, signatureHeader string, secret []byte) bool {
	if !strings.HasPrefix(signatureHeader, SignaturePrefix) {
		return false
	}

	providedSignature := signatureHeader[len(SignaturePrefix):]
	expectedSignature := Sign(payload, secret)[len(SignaturePrefix):]

	// Compare signatures using constant time comparison to prevent timing attacks
	return hmac.Equal([]byte(providedSignature), []byte(expectedSignature))
}

// Sign returns the signature header value for payload
func Sign(payload []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
