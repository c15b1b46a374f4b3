package domain

import (
	"strings"
	"time"
)

// User is an identity under verification. ID is either a phone number in
// international format or an email address; the normalized form is the key.
type User struct {
	ID                    string    `json:"id" dynamodbav:"id"`
	IsPhoneNumber         bool      `json:"is_phone_number" dynamodbav:"is_phone_number"`
	Verified              bool      `json:"verified" dynamodbav:"verified"`
	PasswordHash          string    `json:"-" dynamodbav:"password_hash,omitempty"`
	VerificationRequestID string    `json:"-" dynamodbav:"verification_request_id,omitempty"`
	CreatedAt             time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt             time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Key returns the normalized store key of the user.
func (u *User) Key() string { return NormalizeID(u.ID) }

// NormalizeID returns the case-insensitive lookup key for an identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
