// Package httpx builds the HTTP client shared by outbound integrations.
package httpx

import (
	"net/http"
	"time"
)

const DefaultTimeout = 90 * time.Second

// NewExternalClient returns a client for calls to Slack and Anthropic.
// Non-positive timeouts fall back to DefaultTimeout.
func NewExternalClient(timeoutSeconds int) *http.Client {
	timeout := DefaultTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &http.Client{Timeout: timeout}
}
