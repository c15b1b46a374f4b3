package domain

import "time"

// Channel is the delivery channel for a one-time code.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// AccessToken is a provider access token correlated to an in-flight
// verification attempt by an opaque state value.
// PK: state. ExpiresAt is a Unix timestamp in seconds used as DynamoDB TTL;
// ExpiresAtMillis is the exact deadline reads are checked against.
type AccessToken struct {
	State           string `dynamodbav:"state"`
	AccessToken     string `dynamodbav:"access_token"`
	ExpiresAt       int64  `dynamodbav:"expires_at"`
	ExpiresAtMillis int64  `dynamodbav:"expires_at_ms"`
}

// AccessTokenTTL is how long a correlated access token stays readable after
// its most recent insertion.
const AccessTokenTTL = 2 * time.Hour
