package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header against the hex
// HMAC-SHA256 of the raw request body. A missing header or missing
// secret fails closed. Comparison is constant-time.
func VerifySignature(body []byte, signatureHeader, appSecret string) bool {
	if signatureHeader == "" || appSecret == "" {
		return false
	}

	provided := strings.TrimPrefix(signatureHeader, signaturePrefix)

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(provided), []byte(expected))
}
