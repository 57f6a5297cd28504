package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// HMACAuth holds the credentials required for HMAC-authenticated requests
// against the paymaster relay API.
type HMACAuth struct {
	Key    string // API key, sent in clear
	Secret string // shared HMAC secret, never sent
}

// RelayHeaders returns the HTTP headers for a relay API request. The
// signature is HMAC-SHA256(secret, timestamp+method+path+body) encoded as
// base64.
//
// Returned header keys:
//   - RAFFLE_API_KEY
//   - RAFFLE_TIMESTAMP
//   - RAFFLE_SIGNATURE
func (h *HMACAuth) RelayHeaders(method, path, body string) map[string]string {
	return h.RelayHeadersAt(method, path, body, time.Now().Unix())
}

// RelayHeadersAt is like RelayHeaders but lets the caller supply the Unix
// timestamp (useful for deterministic testing).
func (h *HMACAuth) RelayHeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	message := ts + method + path + body
	sig := hmacSHA256Base64([]byte(h.Secret), message)

	return map[string]string{
		"RAFFLE_API_KEY":   h.Key,
		"RAFFLE_TIMESTAMP": ts,
		"RAFFLE_SIGNATURE": sig,
	}
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result as a base64 standard-encoded string.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
