package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepo_PutTake(t *testing.T) {
	repo := NewTokenRepo(newFakeAPI(), "tokens", domain.AccessTokenTTL)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "state-1", "tok-1"))

	tok, err := repo.Take(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// Reads do not consume.
	tok, err = repo.Take(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	_, err = repo.Take(ctx, "other")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenRepo_ExpiredItemIgnored(t *testing.T) {
	repo := NewTokenRepo(newFakeAPI(), "tokens", time.Hour)
	ctx := context.Background()
	now := time.Now()
	repo.nowF = func() time.Time { return now }

	require.NoError(t, repo.Put(ctx, "s", "tok"))

	repo.nowF = func() time.Time { return now.Add(time.Hour) }
	_, err := repo.Take(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenRepo_PutOverwritesAndRestartsExpiry(t *testing.T) {
	repo := NewTokenRepo(newFakeAPI(), "tokens", time.Hour)
	ctx := context.Background()
	now := time.Now()
	repo.nowF = func() time.Time { return now }
	require.NoError(t, repo.Put(ctx, "s", "old"))

	repo.nowF = func() time.Time { return now.Add(50 * time.Minute) }
	require.NoError(t, repo.Put(ctx, "s", "new"))

	repo.nowF = func() time.Time { return now.Add(90 * time.Minute) }
	tok, err := repo.Take(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "new", tok)
}

func TestBootstrap_CreatesTablesAndTTL(t *testing.T) {
	api := newFakeAPI()
	tables := config.DynamoTables{Users: "users", Tokens: "tokens"}
	Bootstrap(context.Background(), api, tables)
	// Second run hits ResourceInUseException and is a no-op.
	Bootstrap(context.Background(), api, tables)

	assert.Equal(t, []string{"users", "tokens"}, api.created)
	assert.Equal(t, "expires_at", api.ttl["tokens"])
}

func TestTokenRepo_DeadlineIsExactToTheMillisecond(t *testing.T) {
	api := newFakeAPI()
	repo := NewTokenRepo(api, "tokens", domain.AccessTokenTTL)
	ctx := context.Background()
	// Mid-second insertion: whole-second truncation would expire it early.
	now := time.UnixMilli(1_700_000_000_900)
	repo.nowF = func() time.Time { return now }
	require.NoError(t, repo.Put(ctx, "s", "tok"))

	repo.nowF = func() time.Time { return now.Add(domain.AccessTokenTTL - time.Millisecond) }
	tok, err := repo.Take(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	repo.nowF = func() time.Time { return now.Add(domain.AccessTokenTTL) }
	_, err = repo.Take(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenRepo_TTLAttributeRoundsUp(t *testing.T) {
	api := newFakeAPI()
	repo := NewTokenRepo(api, "tokens", time.Hour)
	now := time.UnixMilli(1_700_000_000_100)
	repo.nowF = func() time.Time { return now }
	require.NoError(t, repo.Put(context.Background(), "s", "tok"))

	var stored domain.AccessToken
	require.NoError(t, attributevalue.UnmarshalMap(api.tables["tokens"]["s"], &stored))
	assert.Equal(t, int64(1_700_003_601), stored.ExpiresAt)
	assert.Equal(t, int64(1_700_003_600_100), stored.ExpiresAtMillis)
}

func TestTokenRepo_ItemWithoutMillisUsesSeconds(t *testing.T) {
	api := newFakeAPI()
	repo := NewTokenRepo(api, "tokens", time.Hour)
	item, err := attributevalue.MarshalMap(struct {
		State       string `dynamodbav:"state"`
		AccessToken string `dynamodbav:"access_token"`
		ExpiresAt   int64  `dynamodbav:"expires_at"`
	}{"s", "tok", 1_700_000_000})
	require.NoError(t, err)
	api.tables["tokens"] = map[string]map[string]types.AttributeValue{"s": item}

	repo.nowF = func() time.Time { return time.Unix(1_699_999_999, 0) }
	_, err = repo.Take(context.Background(), "s")
	require.NoError(t, err)

	repo.nowF = func() time.Time { return time.Unix(1_700_000_000, 0) }
	_, err = repo.Take(context.Background(), "s")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
