package translator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// httpStatusError maps a provider HTTP status to a descriptive error.
func httpStatusError(name string, status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	detail := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		detail = errResp.Error.Message
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s authentication failed: invalid API key", name)
	case http.StatusTooManyRequests:
		return &RateLimitError{Provider: name, Detail: detail}
	default:
		return fmt.Errorf("%s request failed with status %d: %s", name, status, detail)
	}
}

// RateLimitError 限流错误，调用方据此退避重试
type RateLimitError struct {
	Provider string
	Detail   string
}

func (e *RateLimitError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s rate limit exceeded", e.Provider)
	}
	return fmt.Sprintf("%s rate limit exceeded: %s", e.Provider, e.Detail)
}
