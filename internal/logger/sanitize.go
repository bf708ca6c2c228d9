package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the maximum length for general strings in logs
	MaxGeneralStringLength = 2000
	// MaxMessagePreviewLength is the maximum length for message body previews in logs
	MaxMessagePreviewLength = 200
)

// SanitizeString validates UTF-8, removes control characters and truncates to
// maxLength. User-supplied text must pass through here before being logged, to
// prevent log injection.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// SanitizeError sanitizes an error message for safe logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeMessagePreview sanitizes a chat message body for safe logging
func SanitizeMessagePreview(body string) string {
	return SanitizeString(body, MaxMessagePreviewLength)
}

// MaskPhone masks a phone number for logging, keeping only the last four digits
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
