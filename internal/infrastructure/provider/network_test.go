package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScope = "dpv:FraudPreventionAndDetection#number-verification-verify-read"

type staticSigner string

func (s staticSigner) Sign() (string, error) { return string(s), nil }

type failingSigner struct{}

func (failingSigner) Sign() (string, error) { return "", errors.New("no key") }

func TestNetworkClient_Authorize(t *testing.T) {
	reqs := make(chan enablementRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got enablementRequest
		assert.Equal(t, "Bearer app-jwt", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reqs <- got
		_, _ = w.Write([]byte(`{"scopes":{"` + testScope + `":{"auth_url":"https://oidc.example/auth?x=1"}}}`))
	}))
	defer srv.Close()

	c := NewNetworkClient(srv.URL, srv.URL, testScope, ApplicationJWT{Signer: staticSigner("app-jwt")}, time.Second)
	u, err := c.Authorize(context.Background(), "+491234567", "xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://oidc.example/auth?x=1", u)
	assert.Equal(t, enablementRequest{PhoneNumber: "+491234567", Scopes: []string{testScope}, State: "xyz"}, <-reqs)
}

func TestNetworkClient_Authorize_ScopeMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scopes":{}}`))
	}))
	defer srv.Close()

	_, err := NewNetworkClient(srv.URL, srv.URL, testScope, nil, time.Second).Authorize(context.Background(), "+491234567", "xyz")
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func TestNetworkClient_Authorize_ProviderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"Not Found","detail":"Subscriber not found"}`))
	}))
	defer srv.Close()

	_, err := NewNetworkClient(srv.URL, srv.URL, testScope, nil, time.Second).Authorize(context.Background(), "+491234567", "xyz")
	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusNotFound, pe.Status)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNetworkClient_Authorize_SignerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	}))
	defer srv.Close()

	_, err := NewNetworkClient(srv.URL, srv.URL, testScope, ApplicationJWT{Signer: failingSigner{}}, time.Second).
		Authorize(context.Background(), "+491234567", "xyz")
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func TestNetworkClient_CheckNetworkVerification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		verified := body["phoneNumber"] == "+491234567"
		_ = json.NewEncoder(w).Encode(map[string]bool{"devicePhoneNumberVerified": verified})
	}))
	defer srv.Close()

	c := NewNetworkClient(srv.URL, srv.URL, testScope, nil, time.Second)
	assert.True(t, c.CheckNetworkVerification(context.Background(), "user-token", "+491234567"))
	assert.False(t, c.CheckNetworkVerification(context.Background(), "user-token", "+499999999"))
}

func TestNetworkClient_CheckNetworkVerification_FailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewNetworkClient(srv.URL, srv.URL, testScope, nil, time.Second)
	assert.False(t, c.CheckNetworkVerification(context.Background(), "expired", "+491234567"))
}
