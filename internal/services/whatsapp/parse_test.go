package whatsapp

import (
	"encoding/json"
	"testing"
)

func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	return payload
}

const textMessagePayload = `{
	"entry": [{
		"changes": [{
			"value": {
				"contacts": [{"profile": {"name": "Ada Lovelace"}}],
				"messages": [{
					"id": "wamid.abc123",
					"from": "15551234567",
					"type": "text",
					"text": {"body": "Remind me to call mom"}
				}]
			}
		}]
	}]
}`

const audioMessagePayload = `{
	"entry": [{
		"changes": [{
			"value": {
				"contacts": [{"profile": {"name": "Ada Lovelace"}}],
				"messages": [{
					"id": "wamid.audio456",
					"from": "15551234567",
					"type": "audio",
					"audio": {"id": "media-789"}
				}]
			}
		}]
	}]
}`

const statusUpdatePayload = `{
	"entry": [{
		"changes": [{
			"value": {
				"statuses": [{"id": "wamid.abc123", "status": "delivered"}]
			}
		}]
	}]
}`

func TestIsMessageEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"text message", textMessagePayload, true},
		{"audio message", audioMessagePayload, true},
		{"delivery status", statusUpdatePayload, false},
		{"empty object", `{}`, false},
		{"empty entry", `{"entry": []}`, false},
		{"entry without changes", `{"entry": [{}]}`, false},
		{"changes without value", `{"entry": [{"changes": [{}]}]}`, false},
		{"value without messages", `{"entry": [{"changes": [{"value": {}}]}]}`, false},
		{"entry wrong type", `{"entry": "nope"}`, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := decodePayload(t, tt.payload)
			if got := IsMessageEvent(payload); got != tt.want {
				t.Errorf("IsMessageEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMessageText(t *testing.T) {
	t.Parallel()

	msg := ParseMessage(decodePayload(t, textMessagePayload))

	if msg.Username != "Ada Lovelace" {
		t.Errorf("username = %q, want Ada Lovelace", msg.Username)
	}
	if msg.PhoneNumber != "15551234567" {
		t.Errorf("phone_number = %q, want 15551234567", msg.PhoneNumber)
	}
	if msg.Body != "Remind me to call mom" {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.Type != MessageTypeText {
		t.Errorf("type = %q, want text", msg.Type)
	}
	if msg.AudioID != "" {
		t.Errorf("audio_id = %q, want empty", msg.AudioID)
	}
	if msg.MessageID != "wamid.abc123" {
		t.Errorf("message_id = %q", msg.MessageID)
	}
}

func TestParseMessageAudio(t *testing.T) {
	t.Parallel()

	msg := ParseMessage(decodePayload(t, audioMessagePayload))

	if msg.Type != MessageTypeAudio {
		t.Errorf("type = %q, want audio", msg.Type)
	}
	if msg.AudioID != "media-789" {
		t.Errorf("audio_id = %q, want media-789", msg.AudioID)
	}
	if msg.Body != "" {
		t.Errorf("body = %q, want empty pending transcription", msg.Body)
	}
}

func TestParseMessageDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"missing entry", `{}`},
		{"empty entry", `{"entry": []}`},
		{"missing changes", `{"entry": [{}]}`},
		{"missing value", `{"entry": [{"changes": [{}]}]}`},
		{"missing messages", `{"entry": [{"changes": [{"value": {}}]}]}`},
		{"messages wrong type", `{"entry": [{"changes": [{"value": {"messages": 5}}]}]}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := ParseMessage(decodePayload(t, tt.payload))

			if msg.Username != UnknownUser {
				t.Errorf("username = %q, want %q", msg.Username, UnknownUser)
			}
			if msg.PhoneNumber != "" {
				t.Errorf("phone_number = %q, want empty", msg.PhoneNumber)
			}
			if msg.Body != "" {
				t.Errorf("body = %q, want empty", msg.Body)
			}
			if msg.Type != MessageTypeText {
				t.Errorf("type = %q, want text", msg.Type)
			}
			if msg.AudioID != "" {
				t.Errorf("audio_id = %q, want empty", msg.AudioID)
			}
		})
	}
}

func TestParseMessageNoContactName(t *testing.T) {
	t.Parallel()

	payload := decodePayload(t, `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"id": "wamid.x",
						"from": "15550000000",
						"type": "text",
						"text": {"body": "hi"}
					}]
				}
			}]
		}]
	}`)

	msg := ParseMessage(payload)
	if msg.Username != UnknownUser {
		t.Errorf("username = %q, want %q", msg.Username, UnknownUser)
	}
	if msg.Body != "hi" {
		t.Errorf("body = %q, want hi", msg.Body)
	}
}
