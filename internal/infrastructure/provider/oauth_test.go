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
	"golang.org/x/oauth2"
)

type tokenServer struct {
	*httptest.Server
	status int
	body   map[string]any
	form   chan map[string]string
	auth   chan string
}

func newTokenServer() *tokenServer {
	ts := &tokenServer{
		status: http.StatusOK,
		body:   map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600},
		form:   make(chan map[string]string, 1),
		auth:   make(chan string, 1),
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		ts.form <- map[string]string{
			"grant_type":   r.PostForm.Get("grant_type"),
			"code":         r.PostForm.Get("code"),
			"redirect_uri": r.PostForm.Get("redirect_uri"),
			"client_id":    r.PostForm.Get("client_id"),
		}
		ts.auth <- r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ts.status)
		_ = json.NewEncoder(w).Encode(ts.body)
	}))
	return ts
}

func TestOAuthClient_Exchange_BasicAuth(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	c := NewOAuthClient(ts.URL, "key", "secret", oauth2.AuthStyleInHeader, NewHTTPClient(nil, time.Second))
	tok, err := c.ExchangeAuthorizationCode(context.Background(), "abc", "http://localhost:3000/callback")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	form := <-ts.form
	assert.Equal(t, "authorization_code", form["grant_type"])
	assert.Equal(t, "abc", form["code"])
	assert.Equal(t, "http://localhost:3000/callback", form["redirect_uri"])
	assert.Contains(t, <-ts.auth, "Basic ")
}

func TestOAuthClient_Exchange_BearerJWT(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	hc := NewHTTPClient(ApplicationJWT{Signer: staticSigner("app-jwt")}, time.Second)
	c := NewOAuthClient(ts.URL, "app-id", "", oauth2.AuthStyleInParams, hc)
	tok, err := c.ExchangeAuthorizationCode(context.Background(), "abc", "http://localhost:3000/callback")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.Equal(t, "app-id", (<-ts.form)["client_id"])
	assert.Equal(t, "Bearer app-jwt", <-ts.auth)
}

func TestOAuthClient_Exchange_ErrorStatus(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()
	ts.status = http.StatusBadRequest
	ts.body = map[string]any{"error": "invalid_grant", "error_description": "code expired"}

	c := NewOAuthClient(ts.URL, "key", "secret", oauth2.AuthStyleInHeader, nil)
	_, err := c.ExchangeAuthorizationCode(context.Background(), "abc", "http://localhost:3000/callback")
	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Equal(t, "code expired", pe.Message)
}

func TestOAuthClient_Exchange_MissingAccessToken(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()
	ts.body = map[string]any{"token_type": "Bearer"}

	c := NewOAuthClient(ts.URL, "key", "secret", oauth2.AuthStyleInHeader, nil)
	_, err := c.ExchangeAuthorizationCode(context.Background(), "abc", "http://localhost:3000/callback")
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func TestAuthStyle(t *testing.T) {
	assert.Equal(t, oauth2.AuthStyleInParams, AuthStyle("params"))
	assert.Equal(t, oauth2.AuthStyleInHeader, AuthStyle("header"))
	assert.Equal(t, oauth2.AuthStyleInHeader, AuthStyle(""))
}
