package provider

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-verify-api/internal/domain"
)

type workflowStep struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
}

type verifyRequest struct {
	Brand    string         `json:"brand"`
	Workflow []workflowStep `json:"workflow"`
}

// VerifyClient drives the provider's code-delivery API.
type VerifyClient struct {
	baseURL string
	brand   string
	creds   Credentials
	http    *http.Client
}

func NewVerifyClient(baseURL, brand string, creds Credentials, timeout time.Duration) *VerifyClient {
	return &VerifyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		brand:   brand,
		creds:   creds,
		http:    NewHTTPClient(nil, timeout),
	}
}

// DispatchCode asks the provider to deliver a code to `to` over ch and
// returns the provider's request id.
func (c *VerifyClient) DispatchCode(ctx context.Context, to string, ch domain.Channel) (string, error) {
	const op = "dispatch code"
	body := verifyRequest{
		Brand:    c.brand,
		Workflow: []workflowStep{{Channel: string(ch), To: strings.TrimPrefix(to, "+")}},
	}
	var out struct {
		RequestID string `json:"request_id"`
	}
	if err := doJSON(ctx, c.http, c.creds, op, c.baseURL+"/v2/verify", body, &out); err != nil {
		return "", err
	}
	if out.RequestID == "" {
		return "", &domain.ProviderError{Op: op, Status: http.StatusOK, Message: "response has no request_id"}
	}
	return out.RequestID, nil
}

// ConfirmCode reports whether the provider accepted code for requestID. Every
// failure, including an empty request id, counts as not confirmed.
func (c *VerifyClient) ConfirmCode(ctx context.Context, requestID, code string) bool {
	// No request exists for an empty id; the provider could only reject it.
	if requestID == "" {
		return false
	}
	endpoint := c.baseURL + "/v2/verify/" + url.PathEscape(requestID)
	if err := doJSON(ctx, c.http, c.creds, "confirm code", endpoint, map[string]string{"code": code}, nil); err != nil {
		slog.Info("code not confirmed", "request_id", requestID, "err", err)
		return false
	}
	return true
}
