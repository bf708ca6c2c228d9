package whatsapp

// UnknownUser is the display name used when the webhook payload carries
// no contact profile.
const UnknownUser = "Unknown User"

// Message types carried on the webhook message node
const (
	MessageTypeText  = "text"
	MessageTypeAudio = "audio"
)

// IncomingMessage is the normalized form of one webhook user message
type IncomingMessage struct {
	MessageID   string
	Username    string
	PhoneNumber string
	Body        string
	Type        string
	AudioID     string
}

// IsMessageEvent reports whether the payload carries at least one user
// message. Delivery receipts and other status events do not.
func IsMessageEvent(payload map[string]any) bool {
	entries, ok := payload["entry"].([]any)
	if !ok || len(entries) == 0 {
		return false
	}
	entry, ok := entries[0].(map[string]any)
	if !ok {
		return false
	}
	changes, ok := entry["changes"].([]any)
	if !ok || len(changes) == 0 {
		return false
	}
	change, ok := changes[0].(map[string]any)
	if !ok {
		return false
	}
	value, ok := change["value"].(map[string]any)
	if !ok {
		return false
	}
	messages, ok := value["messages"].([]any)
	return ok && len(messages) > 0
}

// ParseMessage extracts the first user message from a decoded webhook
// payload. Every structural miss falls back to defaults rather than
// failing: an empty payload yields an empty text message from
// "Unknown User".
func ParseMessage(payload map[string]any) IncomingMessage {
	msg := IncomingMessage{
		Username: UnknownUser,
		Type:     MessageTypeText,
	}

	value, ok := firstValue(payload)
	if !ok {
		return msg
	}

	if contacts, ok := value["contacts"].([]any); ok && len(contacts) > 0 {
		if contact, ok := contacts[0].(map[string]any); ok {
			if profile, ok := contact["profile"].(map[string]any); ok {
				if name, ok := profile["name"].(string); ok && name != "" {
					msg.Username = name
				}
			}
		}
	}

	messages, ok := value["messages"].([]any)
	if !ok || len(messages) == 0 {
		return msg
	}
	node, ok := messages[0].(map[string]any)
	if !ok {
		return msg
	}

	if id, ok := node["id"].(string); ok {
		msg.MessageID = id
	}
	if from, ok := node["from"].(string); ok {
		msg.PhoneNumber = from
	}

	msgType, _ := node["type"].(string)
	switch msgType {
	case MessageTypeAudio:
		msg.Type = MessageTypeAudio
		if audio, ok := node["audio"].(map[string]any); ok {
			if audioID, ok := audio["id"].(string); ok {
				msg.AudioID = audioID
			}
		}
	default:
		if text, ok := node["text"].(map[string]any); ok {
			if body, ok := text["body"].(string); ok {
				msg.Body = body
			}
		}
	}

	return msg
}

func firstValue(payload map[string]any) (map[string]any, bool) {
	entries, ok := payload["entry"].([]any)
	if !ok || len(entries) == 0 {
		return nil, false
	}
	entry, ok := entries[0].(map[string]any)
	if !ok {
		return nil, false
	}
	changes, ok := entry["changes"].([]any)
	if !ok || len(changes) == 0 {
		return nil, false
	}
	change, ok := changes[0].(map[string]any)
	if !ok {
		return nil, false
	}
	value, ok := change["value"].(map[string]any)
	if !ok {
		return nil, false
	}
	return value, true
}
