package provider

import (
	"fmt"
	"net/http"
	"time"
)

// Credentials authenticate an outbound request to the provider.
type Credentials interface {
	Apply(req *http.Request) error
}

// BasicAuth sends the API key and secret as HTTP Basic credentials.
type BasicAuth struct {
	Key    string
	Secret string
}

func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Key, b.Secret)
	return nil
}

type tokenSigner interface {
	Sign() (string, error)
}

// ApplicationJWT sends a freshly minted application JWT as a bearer token.
type ApplicationJWT struct {
	Signer tokenSigner
}

func (a ApplicationJWT) Apply(req *http.Request) error {
	tok, err := a.Signer.Sign()
	if err != nil {
		return fmt.Errorf("sign application jwt: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// BearerToken sends a user access token obtained from the OAuth exchange.
type BearerToken string

func (b BearerToken) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+string(b))
	return nil
}

// authTransport applies creds to every request sent through it.
type authTransport struct {
	creds Credentials
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if err := t.creds.Apply(r); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(r)
}

// NewHTTPClient returns a client with the given timeout. When creds is
// non-nil every request carries them.
func NewHTTPClient(creds Credentials, timeout time.Duration) *http.Client {
	c := &http.Client{Timeout: timeout}
	if creds != nil {
		c.Transport = &authTransport{creds: creds, base: http.DefaultTransport}
	}
	return c
}
