package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/walkflow"
)

// DynamoDBStore implements walkflow.SubmissionStore using AWS DynamoDB
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
}

// NewDynamoDBStore creates a new DynamoDB-backed submission store
func NewDynamoDBStore(client DynamoDBClient, tableName string) walkflow.SubmissionStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}
}

// SaveSubmission writes a submission once; submissions are never overwritten
func (s *DynamoDBStore) SaveSubmission(ctx context.Context, sub *walkflow.Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("submission ID is required")
	}

	// Marshal the submission
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	// Add keys
	item[AttrPK] = &types.AttributeValueMemberS{Value: submissionPK(sub.ID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: submissionSK()}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeSubmission}

	// Add GSI keys
	if sub.WorkflowID != "" {
		item[AttrGSI1PK] = &types.AttributeValueMemberS{Value: submissionGSI1PK(sub.WorkflowID)}
		item[AttrGSI1SK] = &types.AttributeValueMemberS{Value: submissionGSI1SK(sub.ID)}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("submission %s: %w", sub.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to save submission: %w", err)
	}

	return nil
}

// GetSubmission loads a submission by ID
func (s *DynamoDBStore) GetSubmission(ctx context.Context, id string) (*walkflow.Submission, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: submissionPK(id)},
			AttrSK: &types.AttributeValueMemberS{Value: submissionSK()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}

	var sub walkflow.Submission
	if err := attributevalue.UnmarshalMap(result.Item, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission: %w", err)
	}

	return &sub, nil
}

// ListSubmissions returns a workflow's submissions, newest first.
// The table is only indexed by workflow, so WorkflowID is required.
func (s *DynamoDBStore) ListSubmissions(ctx context.Context, filter walkflow.SubmissionFilter) ([]*walkflow.Submission, error) {
	if filter.WorkflowID == "" {
		return nil, fmt.Errorf("workflow ID is required to list submissions")
	}

	var submissions []*walkflow.Submission
	var lastEvaluatedKey map[string]types.AttributeValue

	// Paginate through all results
	for {
		queryInput := &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			IndexName:              aws.String(IndexWorkflowIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: submissionGSI1PK(filter.WorkflowID)},
			},
			ScanIndexForward: aws.Bool(false),
		}
		if filter.Limit > 0 {
			queryInput.Limit = aws.Int32(int32(filter.Limit - len(submissions)))
		}

		if lastEvaluatedKey != nil {
			queryInput.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Query(ctx, queryInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions: %w", err)
		}

		for _, item := range result.Items {
			var sub walkflow.Submission
			if err := attributevalue.UnmarshalMap(item, &sub); err != nil {
				return nil, fmt.Errorf("failed to unmarshal submission: %w", err)
			}
			submissions = append(submissions, &sub)
		}

		// Stop at the limit or when there are no more results
		if filter.Limit > 0 && len(submissions) >= filter.Limit {
			break
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return submissions, nil
}
