package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-verify-api/internal/domain"
)

// TokenRepo stores access tokens by OAuth state. PK: state.
// The table's TTL on expires_at removes items eventually; since DynamoDB may
// delete them well after that instant, Take checks expires_at_ms itself.
type TokenRepo struct {
	client    API
	tableName string
	ttl       time.Duration
	nowF      func() time.Time
}

func NewTokenRepo(client API, tableName string, ttl time.Duration) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName, ttl: ttl, nowF: time.Now}
}

// Put overwrites any previous token for state, moving its expiry to ttl from now.
func (r *TokenRepo) Put(ctx context.Context, state, token string) error {
	deadline := r.nowF().Add(r.ttl)
	// expires_at is rounded up so the TTL sweep never runs ahead of the deadline.
	item, err := attributevalue.MarshalMap(domain.AccessToken{
		State:           state,
		AccessToken:     token,
		ExpiresAt:       deadline.Add(time.Second - 1).Unix(),
		ExpiresAtMillis: deadline.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal access token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TokenRepo) Take(ctx context.Context, state string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("state", state),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return "", fmt.Errorf("access token: %w", domain.ErrNotFound)
	}
	var t domain.AccessToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return "", fmt.Errorf("unmarshal access token: %w", err)
	}
	deadline := t.ExpiresAtMillis
	if deadline == 0 {
		deadline = t.ExpiresAt * 1000
	}
	if r.nowF().UnixMilli() >= deadline {
		return "", fmt.Errorf("access token expired: %w", domain.ErrNotFound)
	}
	return t.AccessToken, nil
}
