package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/walkflow"
)

// mockDynamoDBClient implements DynamoDBClient interface for testing
type mockDynamoDBClient struct {
	putItemFunc func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	getItemFunc func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	queryFunc   func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params, optFns...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func marshalTestItem(t *testing.T, sub *walkflow.Submission) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		t.Fatalf("MarshalMap() failed: %v", err)
	}
	return item
}

func TestNewDynamoDBStore(t *testing.T) {
	client := &mockDynamoDBClient{}
	store := NewDynamoDBStore(client, "test-table")

	if store == nil {
		t.Fatal("NewDynamoDBStore() returned nil")
	}

	// Verify it implements the interface
	var _ walkflow.SubmissionStore = store
}

func TestDynamoDBStore_SaveSubmission(t *testing.T) {
	var capturedInput *dynamodb.PutItemInput

	client := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			capturedInput = params
			return &dynamodb.PutItemOutput{}, nil
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	ctx := context.Background()

	sub := newTestSubmission("01HZX0000000000000000000A1", "report-issue")
	if err := store.SaveSubmission(ctx, sub); err != nil {
		t.Fatalf("SaveSubmission() failed: %v", err)
	}

	if capturedInput == nil {
		t.Fatal("PutItem was not called")
	}

	if *capturedInput.TableName != "test-table" {
		t.Errorf("TableName = %s, want test-table", *capturedInput.TableName)
	}

	if capturedInput.ConditionExpression == nil || *capturedInput.ConditionExpression != "attribute_not_exists(PK)" {
		t.Errorf("ConditionExpression = %v, want attribute_not_exists(PK)", capturedInput.ConditionExpression)
	}

	wantKeys := map[string]string{
		AttrPK:         submissionPK(sub.ID),
		AttrSK:         submissionSK(),
		AttrEntityType: EntityTypeSubmission,
		AttrGSI1PK:     submissionGSI1PK(sub.WorkflowID),
		AttrGSI1SK:     submissionGSI1SK(sub.ID),
	}
	for attr, want := range wantKeys {
		v, ok := capturedInput.Item[attr]
		if !ok {
			t.Errorf("%s not set", attr)
			continue
		}
		if got := v.(*types.AttributeValueMemberS).Value; got != want {
			t.Errorf("%s = %s, want %s", attr, got, want)
		}
	}

	if _, ok := capturedInput.Item["fields"]; !ok {
		t.Error("fields not marshaled")
	}
}

func TestDynamoDBStore_SaveSubmission_NoWorkflowID(t *testing.T) {
	var capturedInput *dynamodb.PutItemInput

	client := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			capturedInput = params
			return &dynamodb.PutItemOutput{}, nil
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	if err := store.SaveSubmission(context.Background(), newTestSubmission("01HZX0000000000000000000A1", "")); err != nil {
		t.Fatalf("SaveSubmission() failed: %v", err)
	}

	if _, ok := capturedInput.Item[AttrGSI1PK]; ok {
		t.Error("GSI1PK should not be set without a workflow ID")
	}
}

func TestDynamoDBStore_SaveSubmission_Duplicate(t *testing.T) {
	client := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	err := store.SaveSubmission(context.Background(), newTestSubmission("01HZX0000000000000000000A1", "report-issue"))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("SaveSubmission() error = %v, want ErrAlreadyExists", err)
	}
}

func TestDynamoDBStore_SaveSubmission_Error(t *testing.T) {
	client := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, errors.New("dynamodb error")
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	err := store.SaveSubmission(context.Background(), newTestSubmission("01HZX0000000000000000000A1", "report-issue"))
	if err == nil {
		t.Error("SaveSubmission() should have failed with DynamoDB error")
	}
	if errors.Is(err, ErrAlreadyExists) {
		t.Error("generic DynamoDB error should not be reported as a duplicate")
	}
}

func TestDynamoDBStore_GetSubmission(t *testing.T) {
	sub := newTestSubmission("01HZX0000000000000000000A1", "report-issue")

	var capturedInput *dynamodb.GetItemInput
	client := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			capturedInput = params
			return &dynamodb.GetItemOutput{Item: marshalTestItem(t, sub)}, nil
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	retrieved, err := store.GetSubmission(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission() failed: %v", err)
	}

	pk := capturedInput.Key[AttrPK].(*types.AttributeValueMemberS).Value
	if pk != submissionPK(sub.ID) {
		t.Errorf("PK = %s, want %s", pk, submissionPK(sub.ID))
	}

	if retrieved.ID != sub.ID {
		t.Errorf("ID = %s, want %s", retrieved.ID, sub.ID)
	}
	if !retrieved.SubmittedAt.Equal(sub.SubmittedAt) {
		t.Errorf("SubmittedAt = %v, want %v", retrieved.SubmittedAt, sub.SubmittedAt)
	}

	var description string
	if err := retrieved.Field("description", &description); err != nil {
		t.Fatalf("Field() failed: %v", err)
	}
	if description != "Cracked slab" {
		t.Errorf("description = %s, want Cracked slab", description)
	}
}

func TestDynamoDBStore_GetSubmission_NotFound(t *testing.T) {
	client := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: nil}, nil
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	_, err := store.GetSubmission(context.Background(), "non-existent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSubmission() error = %v, want ErrNotFound", err)
	}
}

func TestDynamoDBStore_GetSubmission_Error(t *testing.T) {
	client := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, errors.New("dynamodb error")
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	if _, err := store.GetSubmission(context.Background(), "01HZX0000000000000000000A1"); err == nil {
		t.Error("GetSubmission() should have failed with DynamoDB error")
	}
}

func TestDynamoDBStore_ListSubmissions(t *testing.T) {
	page1 := []*walkflow.Submission{
		newTestSubmission("01HZX0000000000000000000A3", "report-issue"),
		newTestSubmission("01HZX0000000000000000000A2", "report-issue"),
	}
	page2 := []*walkflow.Submission{
		newTestSubmission("01HZX0000000000000000000A1", "report-issue"),
	}

	var calls int
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			calls++

			if *params.IndexName != IndexWorkflowIndex {
				t.Errorf("IndexName = %s, want %s", *params.IndexName, IndexWorkflowIndex)
			}
			if params.ScanIndexForward == nil || *params.ScanIndexForward {
				t.Error("query should read newest first")
			}
			pk := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
			if pk != submissionGSI1PK("report-issue") {
				t.Errorf(":pk = %s, want %s", pk, submissionGSI1PK("report-issue"))
			}

			if params.ExclusiveStartKey == nil {
				items := []map[string]types.AttributeValue{marshalTestItem(t, page1[0]), marshalTestItem(t, page1[1])}
				return &dynamodb.QueryOutput{
					Items: items,
					LastEvaluatedKey: map[string]types.AttributeValue{
						AttrPK: &types.AttributeValueMemberS{Value: submissionPK(page1[1].ID)},
					},
				}, nil
			}
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{marshalTestItem(t, page2[0])},
			}, nil
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	subs, err := store.ListSubmissions(context.Background(), walkflow.SubmissionFilter{WorkflowID: "report-issue"})
	if err != nil {
		t.Fatalf("ListSubmissions() failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("Query called %d times, want 2", calls)
	}
	if len(subs) != 3 {
		t.Fatalf("ListSubmissions() returned %d submissions, want 3", len(subs))
	}
	if subs[0].ID != "01HZX0000000000000000000A3" || subs[2].ID != "01HZX0000000000000000000A1" {
		t.Errorf("unexpected order: %s ... %s", subs[0].ID, subs[2].ID)
	}
}

func TestDynamoDBStore_ListSubmissions_Limit(t *testing.T) {
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			if params.Limit == nil || *params.Limit != 1 {
				t.Errorf("Limit = %v, want 1", params.Limit)
			}
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{
					marshalTestItem(t, newTestSubmission("01HZX0000000000000000000A3", "report-issue")),
				},
				LastEvaluatedKey: map[string]types.AttributeValue{
					AttrPK: &types.AttributeValueMemberS{Value: "SUBMISSION#01HZX0000000000000000000A3"},
				},
			}, nil
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	subs, err := store.ListSubmissions(context.Background(), walkflow.SubmissionFilter{WorkflowID: "report-issue", Limit: 1})
	if err != nil {
		t.Fatalf("ListSubmissions() failed: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("ListSubmissions() returned %d submissions, want 1", len(subs))
	}
}

func TestDynamoDBStore_ListSubmissions_RequiresWorkflowID(t *testing.T) {
	store := NewDynamoDBStore(&mockDynamoDBClient{}, "test-table")

	if _, err := store.ListSubmissions(context.Background(), walkflow.SubmissionFilter{}); err == nil {
		t.Error("ListSubmissions() should require a workflow ID")
	}
}

func TestDynamoDBStore_ListSubmissions_Error(t *testing.T) {
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return nil, errors.New("dynamodb error")
		},
	}

	store := NewDynamoDBStore(client, "test-table")
	if _, err := store.ListSubmissions(context.Background(), walkflow.SubmissionFilter{WorkflowID: "report-issue"}); err == nil {
		t.Error("ListSubmissions() should have failed with DynamoDB error")
	}
}
