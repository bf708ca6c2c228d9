package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError carries structured detail from a model provider failure
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// ExtractAPIError pulls structured detail out of an OpenAI SDK error.
// The SDK embeds a JSON error body in the message for HTTP failures.
// Returns nil when no structure can be recovered.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	statusCode := 0
	switch {
	case strings.Contains(errStr, "429"):
		statusCode = 429
	case strings.Contains(errStr, "401"):
		statusCode = 401
	case strings.Contains(errStr, "500"):
		statusCode = 500
	default:
		return nil
	}

	apiErr := &APIError{StatusCode: statusCode, Message: errStr}

	if jsonStart := strings.Index(errStr, "{"); jsonStart != -1 {
		jsonStr := errStr[jsonStart:]
		if jsonEnd := strings.LastIndex(jsonStr, "}"); jsonEnd != -1 {
			var detail struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(jsonStr[:jsonEnd+1]), &detail) == nil && detail.Message != "" {
				apiErr.Message = detail.Message
				apiErr.Type = detail.Type
				apiErr.Code = detail.Code
			}
		}
	}

	return apiErr
}

// IsRateLimitError reports whether an error is a model rate limit
func IsRateLimitError(err error) bool {
	apiErr := ExtractAPIError(err)
	return apiErr != nil && apiErr.StatusCode == 429 && apiErr.Code != "insufficient_quota"
}
