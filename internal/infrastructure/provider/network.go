package provider

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-verify-api/internal/domain"
)

type enablementRequest struct {
	PhoneNumber string   `json:"phone_number"`
	Scopes      []string `json:"scopes"`
	State       string   `json:"state"`
}

type enablementResponse struct {
	Scopes map[string]struct {
		AuthURL string `json:"auth_url"`
	} `json:"scopes"`
}

// NetworkClient starts the carrier authorization flow and performs the silent
// number check with the access token that flow produced.
type NetworkClient struct {
	enablementURL   string
	verificationURL string
	scope           string
	creds           Credentials
	http            *http.Client
}

func NewNetworkClient(enablementURL, verificationURL, scope string, creds Credentials, timeout time.Duration) *NetworkClient {
	return &NetworkClient{
		enablementURL:   enablementURL,
		verificationURL: verificationURL,
		scope:           scope,
		creds:           creds,
		http:            NewHTTPClient(nil, timeout),
	}
}

// Authorize returns the URL the end user must visit to authorize number
// verification for phone; the provider echoes state back on the callback.
func (c *NetworkClient) Authorize(ctx context.Context, phone, state string) (string, error) {
	const op = "network enablement"
	body := enablementRequest{PhoneNumber: phone, Scopes: []string{c.scope}, State: state}
	var out enablementResponse
	if err := doJSON(ctx, c.http, c.creds, op, c.enablementURL, body, &out); err != nil {
		return "", err
	}
	authURL := out.Scopes[c.scope].AuthURL
	if authURL == "" {
		return "", &domain.ProviderError{Op: op, Message: "no auth_url for scope " + c.scope}
	}
	return authURL, nil
}

// CheckNetworkVerification reports whether the carrier confirms phone for the
// session behind accessToken. Failures count as not verified.
func (c *NetworkClient) CheckNetworkVerification(ctx context.Context, accessToken, phone string) bool {
	var out struct {
		Verified bool `json:"devicePhoneNumberVerified"`
	}
	body := map[string]string{"phoneNumber": phone}
	if err := doJSON(ctx, c.http, BearerToken(accessToken), "number verification", c.verificationURL, body, &out); err != nil {
		slog.Warn("number verification failed", "err", err)
		return false
	}
	return out.Verified
}
