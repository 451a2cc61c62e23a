package dynamo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/storage"
)

// fakeDynamo is an in-memory stand-in that understands only the item layout
// used by Storage.
type fakeDynamo struct {
	mu      sync.Mutex
	created bool
	items   map[string]map[string]types.AttributeValue
	err     error
	txErr   error // returned by TransactWriteItems only
}

func newFakeDynamo(created bool) *fakeDynamo {
	return &fakeDynamo{created: created, items: make(map[string]map[string]types.AttributeValue)}
}

func pkOf(m map[string]types.AttributeValue) string {
	return m[keyAttr].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if !f.created {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no table")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = true
	return &dynamodb.CreateTableOutput{TableDescription: &types.TableDescription{TableName: in.TableName}}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	pk := pkOf(in.Key)
	item, ok := f.items[pk]
	if !ok {
		item = map[string]types.AttributeValue{keyAttr: &types.AttributeValueMemberS{Value: pk}}
		f.items[pk] = item
	}
	var seq int64
	if v, ok := item["seq"].(*types.AttributeValueMemberN); ok {
		seq, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	seq++
	item["seq"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(seq, 10)}

	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"seq": item["seq"]}}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	if f.txErr != nil {
		return nil, f.txErr
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i].Code = aws.String("None")
		if ti.Put.ConditionExpression == nil {
			continue
		}
		if _, exists := f.items[pkOf(ti.Put.Item)]; exists {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, ti := range in.TransactItems {
		f.items[pkOf(ti.Put.Item)] = ti.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var n int32
	for pk := range f.items {
		if strings.HasPrefix(pk, recordPref) {
			n++
		}
	}
	return &dynamodb.ScanOutput{Count: n}, nil
}

func TestStorage_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s, err := NewWithClient(ctx, newFakeDynamo(true), "urls", zap.NewNop())
	require.NoError(t, err)

	r, err := s.Insert(ctx, "https://www.freecodecamp.org")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ShortID)

	r, err = s.Insert(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.ShortID)

	found, err := s.FindByShortID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://www.freecodecamp.org", found.Original)

	found, err = s.FindByOriginal(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.ShortID)

	_, err = s.FindByShortID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStorage_InsertConflict(t *testing.T) {
	ctx := context.Background()
	s, err := NewWithClient(ctx, newFakeDynamo(true), "urls", zap.NewNop())
	require.NoError(t, err)

	_, err = s.Insert(ctx, "https://example.com")
	require.NoError(t, err)

	_, err = s.Insert(ctx, "https://example.com")
	assert.ErrorIs(t, err, storage.ErrConflict)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNewWithClient_CreatesTable(t *testing.T) {
	fake := newFakeDynamo(false)

	_, err := NewWithClient(context.Background(), fake, "urls", zap.NewNop())
	require.NoError(t, err)
	assert.True(t, fake.created)
}

func TestStorage_Failures(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo(true)
	s, err := NewWithClient(ctx, fake, "urls", zap.NewNop())
	require.NoError(t, err)

	fake.err = errors.New("throttled")

	_, err = s.Insert(ctx, "https://example.com")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrConflict)

	_, err = s.FindByShortID(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, s.PingContext(ctx))
}

func TestStorage_InsertCanceledWithoutConflict(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo(true)
	s, err := NewWithClient(ctx, fake, "urls", zap.NewNop())
	require.NoError(t, err)

	fake.txErr = &types.TransactionCanceledException{
		Message: aws.String("Transaction cancelled"),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("TransactionConflict")},
			{Code: aws.String("None")},
		},
	}

	_, err = s.Insert(ctx, "https://example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrConflict)

	var canceled *types.TransactionCanceledException
	assert.ErrorAs(t, err, &canceled)
}
