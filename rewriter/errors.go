package rewriter

import (
	"fmt"
	"strings"

	"yada/pipeline"
)

// APIError is a non-2xx answer from the chat completion endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error { return pipeline.ErrTransport }

func errorBody(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}
