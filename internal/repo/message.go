package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"aws-examples-api/internal/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// =====================================================
// Error Definitions
// =====================================================

// ErrMessageNotFound indicates the table has no item for the requested id
var ErrMessageNotFound = errors.New("message not found")

// =====================================================
// Repository Definition
// =====================================================

// MessageRepository reads and writes greeting records in DynamoDB.
// The table is keyed by a numeric "id" partition key.
type MessageRepository struct {
	db    dynamodbiface.DynamoDBAPI
	table string
}

// NewMessageRepository creates a new MessageRepository for table
func NewMessageRepository(db dynamodbiface.DynamoDBAPI, table string) *MessageRepository {
	return &MessageRepository{db: db, table: table}
}

// Table returns the table name
func (r *MessageRepository) Table() string {
	return r.table
}

// Get returns the message stored under id.
//
// Returns:
//   - ErrMessageNotFound if no item exists
//   - wrapped SDK errors for throttling, permissions or network failures
func (r *MessageRepository) Get(ctx context.Context, id int64) (*domain.Message, error) {
	out, err := r.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       messageKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrMessageNotFound
	}

	var msg domain.Message
	if err := dynamodbattribute.UnmarshalMap(out.Item, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message %d: %w", id, err)
	}
	return &msg, nil
}

// Put writes msg, replacing any existing item with the same id
func (r *MessageRepository) Put(ctx context.Context, msg domain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	item, err := dynamodbattribute.MarshalMap(msg)
	if err != nil {
		return fmt.Errorf("marshal message %d: %w", msg.ID, err)
	}

	_, err = r.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put message %d: %w", msg.ID, err)
	}
	return nil
}

// Ping verifies the table exists and is reachable with the current credentials
func (r *MessageRepository) Ping(ctx context.Context) error {
	out, err := r.db.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", r.table, err)
	}

	if out.Table != nil && out.Table.TableStatus != nil {
		switch status := aws.StringValue(out.Table.TableStatus); status {
		case dynamodb.TableStatusActive, dynamodb.TableStatusUpdating:
		default:
			return fmt.Errorf("table %s is %s", r.table, status)
		}
	}
	return nil
}

func messageKey(id int64) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"id": {N: aws.String(strconv.FormatInt(id, 10))},
	}
}
