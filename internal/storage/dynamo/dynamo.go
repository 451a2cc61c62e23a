// Package dynamo stores URL records in a single DynamoDB table.
//
// Three kinds of items share the table, told apart by the partition key prefix:
//
//	counter#urls      the id sequence, bumped with an atomic ADD
//	url#<id>          the record itself
//	orig#<sha256>     uniqueness marker for the original URL
//
// The record and its marker are written in one transaction conditioned on the
// marker being absent, so an original URL is stored at most once.
package dynamo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/storage"
)

const (
	keyAttr    = "pk"
	counterKey = "counter#urls"
	recordPref = "url#"
	markerPref = "orig#"

	tableWaitTimeout = 2 * time.Minute
)

// API is the subset of the DynamoDB client used by Storage.
type API interface {
	DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Options configure the connection to DynamoDB.
type Options struct {
	Region   string
	Table    string
	Endpoint string // local endpoint, e.g. DynamoDB Local; enables dummy credentials
}

type urlItem struct {
	PK          string `dynamodbav:"pk"`
	ShortID     int64  `dynamodbav:"short_id"`
	OriginalURL string `dynamodbav:"original_url"`
	CreatedAt   int64  `dynamodbav:"created_at"`
}

type counterItem struct {
	Seq int64 `dynamodbav:"seq"`
}

// Storage implements the URL store on top of DynamoDB.
type Storage struct {
	api    API
	table  string
	logger *zap.Logger
}

// New loads the AWS configuration, builds a client and makes sure the table exists.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Storage, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	if opts.Endpoint != "" {
		logger.Info("using custom DynamoDB endpoint", zap.String("endpoint", opts.Endpoint))
	}

	return NewWithClient(ctx, client, opts.Table, logger)
}

// NewWithClient wraps an existing client, creating the table when missing.
func NewWithClient(ctx context.Context, api API, table string, logger *zap.Logger) (*Storage, error) {
	s := &Storage{api: api, table: table, logger: logger}
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) ensureTable(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		s.logger.Info("connected to DynamoDB table", zap.String("table", s.table))
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table: %w", err)
	}

	s.logger.Info("table doesn't exist, creating", zap.String("table", s.table))
	_, err = s.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(keyAttr), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(keyAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.api)
	if err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("wait for table: %w", err)
	}
	return nil
}

func key(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keyAttr: &types.AttributeValueMemberS{Value: pk},
	}
}

func recordKey(id int64) string {
	return recordPref + strconv.FormatInt(id, 10)
}

func markerKey(original string) string {
	sum := sha256.Sum256([]byte(original))
	return markerPref + hex.EncodeToString(sum[:])
}

func (s *Storage) get(ctx context.Context, pk string) (*storage.URLRecord, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if out.Item == nil {
		return nil, storage.ErrNotFound
	}

	var item urlItem
	if err = attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &storage.URLRecord{ShortID: item.ShortID, Original: item.OriginalURL}, nil
}

func (s *Storage) FindByShortID(ctx context.Context, id int64) (*storage.URLRecord, error) {
	return s.get(ctx, recordKey(id))
}

func (s *Storage) FindByOriginal(ctx context.Context, original string) (*storage.URLRecord, error) {
	return s.get(ctx, markerKey(original))
}

func (s *Storage) nextID(ctx context.Context) (int64, error) {
	update := expression.Add(expression.Name("seq"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(counterKey),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var c counterItem
	if err = attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return 0, fmt.Errorf("failed to unmarshal sequence: %w", err)
	}
	return c.Seq, nil
}

// Insert takes the next id from the counter item and writes the record with
// its marker. A lost race on the marker leaves a gap in the sequence.
func (s *Storage) Insert(ctx context.Context, original string) (*storage.URLRecord, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	record, err := attributevalue.MarshalMap(urlItem{PK: recordKey(id), ShortID: id, OriginalURL: original, CreatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	marker, err := attributevalue.MarshalMap(urlItem{PK: markerKey(original), ShortID: id, OriginalURL: original, CreatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(keyAttr))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build condition: %w", err)
	}

	put := func(item map[string]types.AttributeValue) types.TransactWriteItem {
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                aws.String(s.table),
			Item:                     item,
			ConditionExpression:      cond.Condition(),
			ExpressionAttributeNames: cond.Names(),
		}}
	}

	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{put(record), put(marker)},
	})
	if err != nil {
		if conditionFailed(err) {
			s.logger.Info("original url already stored", zap.String("url", original), zap.Int64("skipped_id", id))
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("failed to put item: %w", err)
	}

	return &storage.URLRecord{ShortID: id, Original: original}, nil
}

// conditionFailed reports whether a transaction was canceled because an item
// already existed. Cancellations for throttling or concurrent transactions
// are not conflicts.
func conditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// Count scans the table counting record items.
func (s *Storage) Count(ctx context.Context) (int64, error) {
	filter := expression.Name(keyAttr).BeginsWith(recordPref)
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build filter: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		Select:                    types.SelectCount,
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var total int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to scan table: %w", err)
		}
		total += int64(page.Count)
	}
	return total, nil
}

func (s *Storage) PingContext(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	return err
}

func (s *Storage) Close() error {
	return nil
}
