package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"entry":[{"changes":[]}]}`)
	secret := "app-secret"

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: signBody(body, secret),
			secret:    secret,
			want:      true,
		},
		{
			name:      "valid signature without prefix",
			body:      body,
			signature: signBody(body, secret)[len("sha256="):],
			secret:    secret,
			want:      true,
		},
		{
			name:      "single byte body mutation",
			body:      []byte(`{"entry":[{"changes":[]}]]`),
			signature: signBody(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "wrong secret",
			body:      body,
			signature: signBody(body, "other-secret"),
			secret:    secret,
			want:      false,
		},
		{
			name:      "missing header fails closed",
			body:      body,
			signature: "",
			secret:    secret,
			want:      false,
		},
		{
			name:      "missing secret fails closed",
			body:      body,
			signature: signBody(body, secret),
			secret:    "",
			want:      false,
		},
		{
			name:      "garbage signature",
			body:      body,
			signature: "sha256=nothex",
			secret:    secret,
			want:      false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := VerifySignature(tt.body, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
