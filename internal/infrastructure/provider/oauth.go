package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-verify-api/internal/domain"
	"golang.org/x/oauth2"
)

// OAuthClient completes the authorization-code grant against the provider's
// token endpoint.
type OAuthClient struct {
	cfg  oauth2.Config
	http *http.Client
}

// NewOAuthClient builds a client for tokenURL. With AuthStyleInHeader the
// client id and secret go out as Basic credentials; hc may carry a bearer
// transport instead (see NewHTTPClient).
func NewOAuthClient(tokenURL, clientID, clientSecret string, style oauth2.AuthStyle, hc *http.Client) *OAuthClient {
	return &OAuthClient{
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: style,
			},
		},
		http: hc,
	}
}

// AuthStyle maps the OAUTH_AUTH_STYLE setting onto oauth2.AuthStyle.
func AuthStyle(s string) oauth2.AuthStyle {
	if strings.EqualFold(s, "params") {
		return oauth2.AuthStyleInParams
	}
	return oauth2.AuthStyleInHeader
}

func (c *OAuthClient) ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) (string, error) {
	const op = "token exchange"
	cfg := c.cfg
	cfg.RedirectURL = redirectURI
	if c.http != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			msg := re.ErrorDescription
			if msg == "" {
				msg = errorText(re.Response.StatusCode, re.Body)
			}
			return "", &domain.ProviderError{Op: op, Status: re.Response.StatusCode, Message: msg}
		}
		return "", &domain.ProviderError{Op: op, Message: err.Error()}
	}
	return tok.AccessToken, nil
}
