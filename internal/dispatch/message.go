package dispatch

import (
	"encoding/json"
	"strings"
)

// messageFields lists the body fields a human-readable error message is looked up in, in order
var messageFields = []string{"detail", "message", "error_description", "errors", "error"}

// ExtractMessage extracts a human-readable message out of an error response body.
// It understands '{"detail": "..."}' (including lists of validation errors), '{"message": "..."}', OAuth style
// '{"error": "...", "error_description": "..."}' and '{"errors": [{"message": "..."}]}' bodies and falls back to the
// raw text, or to fallback if the body is empty.
func ExtractMessage(body []byte, fallback string) string {
	var document map[string]any
	if err := json.Unmarshal(body, &document); err == nil {
		for _, field := range messageFields {
			if message := messageOf(document[field]); message != "" {
				return message
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}

func messageOf(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []any:
		var messages []string
		for _, item := range typed {
			if message := messageOf(item); message != "" {
				messages = append(messages, message)
			}
		}
		return strings.Join(messages, "; ")
	case map[string]any:
		for _, field := range []string{"msg", "message", "detail"} {
			if message := messageOf(typed[field]); message != "" {
				return message
			}
		}
	}
	return ""
}
