package dynamo

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory table set that honours the two condition
// expressions the repos issue.
type fakeAPI struct {
	mu      sync.Mutex
	tables  map[string]map[string]map[string]types.AttributeValue
	keys    map[string]string
	created []string
	ttl     map[string]string
	err     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		tables: map[string]map[string]map[string]types.AttributeValue{},
		keys:   map[string]string{"users": "user_key", "tokens": "state"},
		ttl:    map[string]string{},
	}
}

func (f *fakeAPI) keyOf(table string, item map[string]types.AttributeValue) string {
	s, _ := item[f.keys[table]].(*types.AttributeValueMemberS)
	if s == nil {
		return ""
	}
	return s.Value
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table := aws.ToString(in.TableName)
	return &dynamodb.GetItemOutput{Item: f.tables[table][f.keyOf(table, in.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table := aws.ToString(in.TableName)
	if f.tables[table] == nil {
		f.tables[table] = map[string]map[string]types.AttributeValue{}
	}
	key := f.keyOf(table, in.Item)
	_, exists := f.tables[table][key]
	cond := aws.ToString(in.ConditionExpression)
	switch {
	case strings.HasPrefix(cond, "attribute_not_exists") && exists,
		strings.HasPrefix(cond, "attribute_exists") && !exists:
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.tables[table][key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	for _, c := range f.created {
		if c == name {
			return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
		}
	}
	f.created = append(f.created, name)
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeAPI) UpdateTimeToLive(_ context.Context, in *dynamodb.UpdateTimeToLiveInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttl[aws.ToString(in.TableName)] = aws.ToString(in.TimeToLiveSpecification.AttributeName)
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}
