package ai

import (
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"
)

// providerOf mirrors the multi-adapter routing so limiter windows and
// audit labels line up with the backend that actually served the call.
func providerOf(model string) string {
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"):
		return "openai"
	default:
		return "default"
	}
}

// statusCodeOf extracts an HTTP status from the SDK error types.
func statusCodeOf(err error) (int, bool) {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode, true
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	return 0, false
}
