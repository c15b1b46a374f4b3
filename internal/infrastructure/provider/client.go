// Package provider talks to the external verification provider: code
// delivery and checking, the OAuth2 token endpoint, network enablement and
// silent number verification.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-verify-api/internal/domain"
)

const maxErrorBody = 4 << 10

// doJSON POSTs in as JSON and decodes a 2xx response into out (when non-nil).
// Non-2xx and transport failures come back as *domain.ProviderError.
func doJSON(ctx context.Context, hc *http.Client, creds Credentials, op, url string, in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if creds != nil {
		if err := creds.Apply(req); err != nil {
			return &domain.ProviderError{Op: op, Message: err.Error()}
		}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return &domain.ProviderError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.ProviderError{Op: op, Status: resp.StatusCode, Message: errorText(resp.StatusCode, b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Op: op, Status: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	return nil
}

// errorText prefers the human-readable fields of a problem+json or OAuth error
// body, falling back to the raw body and then the status text.
func errorText(status int, body []byte) string {
	var problem struct {
		Title            string `json:"title"`
		Detail           string `json:"detail"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &problem) == nil {
		for _, s := range []string{problem.Detail, problem.ErrorDescription, problem.Message, problem.Title} {
			if s != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return http.StatusText(status)
}
