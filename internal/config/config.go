package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	BackendURL     string   // public base URL used to build the OAuth redirect URI
	AllowedOrigins []string // CORS allowed origins

	StoreBackend   string // "memory" | "dynamo"
	TokenCache     string // "memory" | "dynamo" | "redis"; empty follows StoreBackend
	RedisURL       string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	CodeProvider string // "remote" | "local"
	Provider     Provider

	SNSRegion    string
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	LocalCodeTTL time.Duration
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users  string
	Tokens string
}

// Provider holds the endpoints and credentials of the external verification provider.
type Provider struct {
	APIGateway            string
	APIKey                string
	APISecret             string
	AuthScheme            string // "basic" | "jwt"
	ApplicationID         string
	PrivateKeyPath        string
	JWTExpiry             time.Duration
	Brand                 string
	OAuthTokenURL         string
	OAuthAuthStyle        string // "header" | "params"
	NetworkEnablementURL  string
	NumberVerificationURL string
	Scope                 string
	Timeout               time.Duration
	DispatchTimeout       time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	backendURL := strings.TrimRight(getEnv("BACKEND_URL", ""), "/")
	gateway := strings.TrimRight(getEnv("API_GATEWAY", "https://api-eu.vonage.com"), "/")
	return &Config{
		AppPort:        portFromURL(backendURL, getEnv("APP_PORT", "3000")),
		AppEnv:         getEnv("APP_ENV", "development"),
		BackendURL:     backendURL,
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		StoreBackend:   getEnv("STORE_BACKEND", "memory"),
		TokenCache:     getEnv("TOKEN_CACHE", ""),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:  getEnv("DYNAMO_TABLE_USERS", "verify_users"),
			Tokens: getEnv("DYNAMO_TABLE_TOKENS", "verify_access_tokens"),
		},
		CodeProvider: getEnv("CODE_PROVIDER", "remote"),
		Provider: Provider{
			APIGateway:            gateway,
			APIKey:                getEnv("API_KEY", ""),
			APISecret:             getEnv("API_SECRET", ""),
			AuthScheme:            getEnv("PROVIDER_AUTH", "basic"),
			ApplicationID:         getEnv("APPLICATION_ID", ""),
			PrivateKeyPath:        getEnv("PRIVATE_KEY_PATH", "./private.key"),
			JWTExpiry:             getEnvDuration("PROVIDER_JWT_EXPIRY", 15*time.Minute),
			Brand:                 getEnv("VERIFY_BRAND", "Mock company"),
			OAuthTokenURL:         getEnv("OAUTH_TOKEN_URL", gateway+"/oauth2/token"),
			OAuthAuthStyle:        getEnv("OAUTH_AUTH_STYLE", "header"),
			NetworkEnablementURL:  getEnv("NETWORK_ENABLEMENT_URL", gateway+"/v0.1/network-enablement"),
			NumberVerificationURL: getEnv("NUMBER_VERIFICATION_URL", gateway+"/camara/number-verification/v031/verify"),
			Scope:                 getEnv("NUMBER_VERIFICATION_SCOPE", "dpv:FraudPreventionAndDetection#number-verification-verify-read"),
			Timeout:               getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second),
			DispatchTimeout:       getEnvDuration("DISPATCH_TIMEOUT", 30*time.Second),
		},
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		LocalCodeTTL: getEnvDuration("LOCAL_CODE_TTL", 10*time.Minute),
	}
}

// TokenCacheBackend resolves which backend holds OAuth access tokens.
func (c *Config) TokenCacheBackend() string {
	if c.TokenCache != "" {
		return c.TokenCache
	}
	return c.StoreBackend
}

// RedirectURI is the OAuth callback address registered with the provider.
func (c *Config) RedirectURI() string {
	base := c.BackendURL
	if base == "" {
		base = "http://localhost:" + c.AppPort
	}
	return base + "/callback"
}

var trailingPort = regexp.MustCompile(`:(\d+)/?$`)

// portFromURL prefers the port embedded in the public backend URL so the
// redirect URI and the listener agree.
func portFromURL(u, fallback string) string {
	if m := trailingPort.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15s") or plain seconds ("15").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n := getEnvInt(key, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
