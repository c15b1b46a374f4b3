package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-verify-api/internal/domain"
)

// userItem is the stored shape of a user. PK: user_key, the normalized id.
type userItem struct {
	UserKey string `dynamodbav:"user_key"`
	domain.User
}

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    API
	tableName string
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("user_key", domain.NormalizeID(id)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %q: %w", id, domain.ErrNotFound)
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &item.User, nil
}

// Insert writes u only if no item with the same user_key exists, so two
// processes racing on one identifier cannot both succeed.
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	err := r.put(ctx, u, "attribute_not_exists(user_key)")
	if isConditionFailed(err) {
		return fmt.Errorf("user %q: %w", u.ID, domain.ErrConflict)
	}
	return err
}

// Update replaces the stored user; it never creates one.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	err := r.put(ctx, u, "attribute_exists(user_key)")
	if isConditionFailed(err) {
		return fmt.Errorf("user %q: %w", u.ID, domain.ErrNotFound)
	}
	return err
}

func (r *UserRepo) put(ctx context.Context, u *domain.User, condition string) error {
	item, err := attributevalue.MarshalMap(userItem{UserKey: u.Key(), User: *u})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String(condition),
	})
	return err
}
