package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an application JWT presented to the verification provider.
type Claims struct {
	ApplicationID string `json:"application_id"`
	jwt.RegisteredClaims
}

// Signer mints short-lived RS256 application JWTs used as bearer credentials
// on outbound provider calls.
type Signer struct {
	privateKey    *rsa.PrivateKey
	applicationID string
	expiry        time.Duration
}

func NewSigner(cfg *config.Config) (*Signer, error) {
	if cfg.Provider.ApplicationID == "" {
		return nil, errors.New("APPLICATION_ID is required for jwt provider auth")
	}
	privBytes, err := os.ReadFile(cfg.Provider.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewSignerFromKey(privKey, cfg.Provider.ApplicationID, cfg.Provider.JWTExpiry), nil
}

func NewSignerFromKey(key *rsa.PrivateKey, applicationID string, expiry time.Duration) *Signer {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Signer{privateKey: key, applicationID: applicationID, expiry: expiry}
}

// Sign returns a fresh token; each carries a unique jti.
func (s *Signer) Sign() (string, error) {
	now := time.Now()
	claims := Claims{
		ApplicationID: s.applicationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.New(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}
