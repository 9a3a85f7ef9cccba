package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"assistbot/internal/domain"
)

const (
	DefaultTableName = "AI-Assistant-Users"
	userIDAttr       = "UserID"
)

// DynamoDBAPI is the subset of *dynamodb.Client used by DynamoDBStore.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// todoRecord is the item layout: hash key UserID, list attribute TodoList.
type todoRecord struct {
	UserID   string   `dynamodbav:"UserID"`
	TodoList []string `dynamodbav:"TodoList"`
}

// DynamoDBStore implements domain.TodoStore with one DynamoDB item per sender.
// Put is an unconditional PutItem, so concurrent writers overwrite each other.
type DynamoDBStore struct {
	client    DynamoDBAPI
	tableName string
	logger    *slog.Logger
}

func NewDynamoDBStore(client DynamoDBAPI, tableName string, logger *slog.Logger) *DynamoDBStore {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &DynamoDBStore{client: client, tableName: tableName, logger: logger}
}

func (s *DynamoDBStore) Get(ctx context.Context, senderID string) ([]string, error) {
	if s.client == nil {
		return nil, domain.Fail("storage", domain.ReasonUnavailable, fmt.Errorf("DynamoDB client not initialized"))
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]dynamodbtypes.AttributeValue{
			userIDAttr: &dynamodbtypes.AttributeValueMemberS{Value: senderID},
		},
	})
	if err != nil {
		return nil, domain.Fail("storage", classifyAWSError(err), fmt.Errorf("get item: %w", err))
	}
	if result.Item == nil {
		return []string{}, nil
	}

	var rec todoRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, domain.Fail("storage", domain.ReasonMalformed, fmt.Errorf("unmarshal item: %w", err))
	}
	if rec.TodoList == nil {
		return []string{}, nil
	}
	return rec.TodoList, nil
}

func (s *DynamoDBStore) Put(ctx context.Context, senderID string, items []string) error {
	if s.client == nil {
		return domain.Fail("storage", domain.ReasonUnavailable, fmt.Errorf("DynamoDB client not initialized"))
	}
	if items == nil {
		items = []string{}
	}

	item, err := attributevalue.MarshalMap(todoRecord{UserID: senderID, TodoList: items})
	if err != nil {
		return domain.Fail("storage", domain.ReasonMalformed, fmt.Errorf("marshal item: %w", err))
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return domain.Fail("storage", classifyAWSError(err), fmt.Errorf("put item: %w", err))
	}

	s.logger.Debug("todo list saved", "table", s.tableName, "sender", senderID, "items", len(items))
	return nil
}

func (s *DynamoDBStore) Close() error { return nil }

// classifyAWSError maps DynamoDB SDK errors onto failure reasons.
func classifyAWSError(err error) domain.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var rnf *dynamodbtypes.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return domain.ReasonRejected
	}
	return domain.ReasonUnavailable
}
