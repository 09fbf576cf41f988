package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/bindex/blobstore"
)

// ErrConcurrentUpdate is returned when another writer published a version
// concurrently. Callers should re-read the current version and retry.
var ErrConcurrentUpdate = errors.New("concurrent index update detected")

// DynamoDBClient is the subset of the DynamoDB API the pointer uses.
// *dynamodb.Client satisfies it.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ DynamoDBClient = (*dynamodb.Client)(nil)

// Pointer tracks which stored index blob is current. S3 writes are atomic
// per object but offer no compare-and-swap across objects, so the pointer
// lives in a DynamoDB table with conditional writes: concurrent publishers
// race on a version number and exactly one wins.
//
// Table schema: partition key store_id (S), sort key version (N). Create
// the table with:
//
//	aws dynamodb create-table \
//	  --table-name bindex-pointers \
//	  --attribute-definitions AttributeName=store_id,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=store_id,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type Pointer struct {
	client  DynamoDBClient
	table   string
	storeID string
}

// NewPointer creates a Pointer in the given table. storeID is the partition
// key identifying one logical index store, typically "s3://bucket/prefix".
func NewPointer(client DynamoDBClient, table, storeID string) *Pointer {
	return &Pointer{
		client:  client,
		table:   table,
		storeID: storeID,
	}
}

// Current returns the latest published version and index blob name. It
// fails with blobstore.ErrNotFound when nothing was published yet.
func (p *Pointer) Current(ctx context.Context) (uint64, string, error) {
	version, name, err := p.latest(ctx)
	if err != nil {
		return 0, "", err
	}
	if version == 0 {
		return 0, "", blobstore.ErrNotFound
	}
	return version, name, nil
}

// Publish records name as the next index version and returns the version it
// was assigned. It fails with ErrConcurrentUpdate when another writer
// claimed that version first.
func (p *Pointer) Publish(ctx context.Context, name string) (uint64, error) {
	current, _, err := p.latest(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.table),
		Item: map[string]types.AttributeValue{
			"store_id":   &types.AttributeValueMemberS{Value: p.storeID},
			"version":    &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"index_name": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return 0, ErrConcurrentUpdate
		}
		return 0, fmt.Errorf("s3: failed to publish version %d: %w", next, err)
	}
	return next, nil
}

// latest returns the highest committed version, or 0 when none exists.
func (p *Pointer) latest(ctx context.Context) (uint64, string, error) {
	resp, err := p.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(p.table),
		KeyConditionExpression: aws.String("store_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: p.storeID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: failed to query pointer table: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: malformed version attribute")
	}
	nameAttr, ok := item["index_name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: malformed index_name attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: failed to parse version: %w", err)
	}
	return version, nameAttr.Value, nil
}
