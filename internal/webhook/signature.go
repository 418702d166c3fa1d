// Package webhook receives and verifies inbound events from GitHub and
// Vercel. Verification is a keyed hash over the exact byte sequence received;
// when no secret is configured it is skipped entirely, which is an explicit
// fail-open mode for development, logged loudly at startup and per request.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Vercel signs webhooks with HMAC-SHA1
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// verifyGitHubSignature checks an X-Hub-Signature-256 header value
// ("sha256=<hex>") against the body. Comparison is constant-time.
func verifyGitHubSignature(body []byte, signature, secret string) bool {
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}

// verifyVercelSignature checks an X-Vercel-Signature header value (raw hex,
// no prefix) against the body. Comparison is constant-time.
func verifyVercelSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
