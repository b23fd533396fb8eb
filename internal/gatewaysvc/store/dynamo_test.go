package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall[T, U any] func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// mockClient fails the test on any call without an expectation.
type mockClient struct {
	PutFunc    apiCall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	UpdateFunc apiCall[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput]
	DeleteFunc apiCall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	QueryFunc  apiCall[dynamodb.QueryInput, dynamodb.QueryOutput]
	ScanFunc   apiCall[dynamodb.ScanInput, dynamodb.ScanOutput]
}

var _ DynamoDBAPI = (*mockClient)(nil)

func newMockClient(t *testing.T) *mockClient {
	return &mockClient{
		PutFunc:    unexpected[dynamodb.PutItemInput, dynamodb.PutItemOutput](t),
		UpdateFunc: unexpected[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput](t),
		DeleteFunc: unexpected[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t),
		QueryFunc:  unexpected[dynamodb.QueryInput, dynamodb.QueryOutput](t),
		ScanFunc:   unexpected[dynamodb.ScanInput, dynamodb.ScanOutput](t),
	}
}

func unexpected[T, U any](t *testing.T) apiCall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Fatal("unexpected call")
		return nil, nil
	}
}

func (m *mockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

func (m *mockClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return m.UpdateFunc(ctx, params, optFns...)
}

func (m *mockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteFunc(ctx, params, optFns...)
}

func (m *mockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}

func (m *mockClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return m.ScanFunc(ctx, params, optFns...)
}

var cardSchema = KeySchema{PartitionKey: "uuid", SortKey: "ts"}

func TestDynamoTableQueryAllFollowsLastEvaluatedKey(t *testing.T) {
	client := newMockClient(t)
	table := NewDynamoTable(client, "cards", cardSchema, time.Second)

	lastKey := Item{
		"uuid": &types.AttributeValueMemberN{Value: "1"},
		"ts":   &types.AttributeValueMemberS{Value: "b"},
	}
	var inputs []*dynamodb.QueryInput
	client.QueryFunc = func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
		inputs = append(inputs, params)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "store calls carry a deadline")

		if params.ExclusiveStartKey == nil {
			return &dynamodb.QueryOutput{Items: []Item{item("a"), item("b")}, LastEvaluatedKey: lastKey}, nil
		}
		return &dynamodb.QueryOutput{Items: []Item{item("c")}}, nil
	}

	items, err := QueryAll(context.Background(), table, Equal("uuid", int64(1)), 0, Limits{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(items))

	require.Len(t, inputs, 2)
	assert.Equal(t, "cards", aws.ToString(inputs[0].TableName))
	assert.Equal(t, "#0 = :0", aws.ToString(inputs[0].KeyConditionExpression))
	assert.Equal(t, "uuid", inputs[0].ExpressionAttributeNames["#0"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1"}, inputs[0].ExpressionAttributeValues[":0"])
	assert.Nil(t, inputs[0].Limit)
	assert.Equal(t, lastKey, inputs[1].ExclusiveStartKey)
	assert.Equal(t, inputs[0].KeyConditionExpression, inputs[1].KeyConditionExpression, "the same query is reissued")
}

func TestDynamoTableScanPage(t *testing.T) {
	client := newMockClient(t)
	table := NewDynamoTable(client, "medias", KeySchema{PartitionKey: "ts", SortKey: "name"}, 0)

	t.Run("with filter and limit", func(t *testing.T) {
		client.ScanFunc = func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			assert.Equal(t, "medias", aws.ToString(params.TableName))
			assert.Equal(t, "#0 BETWEEN :0 AND :1", aws.ToString(params.FilterExpression))
			assert.Equal(t, "ts", params.ExpressionAttributeNames["#0"])
			assert.Equal(t, int32(10), aws.ToInt32(params.Limit))
			return &dynamodb.ScanOutput{Items: []Item{item("x")}}, nil
		}

		filter := Between("ts", "20190717", "20200717")
		page, err := table.ScanPage(context.Background(), &filter, QueryOptions{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, ids(page.Items))
		assert.Empty(t, page.LastKey)
	})

	t.Run("without filter", func(t *testing.T) {
		client.ScanFunc = func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			assert.Nil(t, params.FilterExpression)
			assert.Nil(t, params.ExpressionAttributeValues)
			return &dynamodb.ScanOutput{}, nil
		}

		page, err := table.ScanPage(context.Background(), nil, QueryOptions{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}

func TestDynamoTableUpdate(t *testing.T) {
	client := newMockClient(t)
	table := NewDynamoTable(client, "cards", cardSchema, time.Second)
	key := Item{
		"uuid": &types.AttributeValueMemberN{Value: "1"},
		"ts":   &types.AttributeValueMemberS{Value: "2020"},
	}

	client.UpdateFunc = func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
		assert.Equal(t, key, params.Key)
		assert.Equal(t, types.ReturnValueAllNew, params.ReturnValues)
		assert.True(t, strings.HasPrefix(aws.ToString(params.UpdateExpression), "SET "))
		assert.Contains(t, aws.ToString(params.ConditionExpression), "attribute_exists")

		names := map[string]bool{}
		for _, n := range params.ExpressionAttributeNames {
			names[n] = true
		}
		assert.Equal(t, map[string]bool{"uuid": true, "content": true, "title": true}, names)

		return &dynamodb.UpdateItemOutput{Attributes: Item{"title": &types.AttributeValueMemberS{Value: "new"}}}, nil
	}

	out, err := table.Update(context.Background(), key, map[string]any{"title": "new", "content": "body"})
	require.NoError(t, err)
	assert.Equal(t, "new", out["title"].(*types.AttributeValueMemberS).Value)

	_, err = table.Update(context.Background(), key, nil)
	assert.Error(t, err)
}

func TestDynamoTableDelete(t *testing.T) {
	client := newMockClient(t)
	table := NewDynamoTable(client, "cards", cardSchema, time.Second)

	client.DeleteFunc = func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
		assert.Equal(t, types.ReturnValueAllOld, params.ReturnValues)
		return &dynamodb.DeleteItemOutput{}, nil
	}

	old, err := table.Delete(context.Background(), Item{})
	require.NoError(t, err)
	assert.Nil(t, old)
}

func TestDynamoTableErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		code string
	}{
		{
			name: "conditional check failed",
			err:  &types.ConditionalCheckFailedException{Message: aws.String("the conditional request failed")},
			want: ErrNotFound,
			code: "ConditionalCheckFailedException",
		},
		{
			name: "throttled",
			err:  &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"},
			want: ErrUnavailable,
			code: "ProvisionedThroughputExceededException",
		},
		{
			name: "deadline",
			err:  &smithy.OperationError{ServiceID: "DynamoDB", OperationName: "PutItem", Err: context.DeadlineExceeded},
			want: ErrTimeout,
		},
		{
			name: "network",
			err:  errors.New("connection refused"),
			want: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient(t)
			table := NewDynamoTable(client, "cards", cardSchema, time.Second)
			client.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
				return nil, tt.err
			}

			err := table.Put(context.Background(), Item{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)

			var se *StoreError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, "PutItem", se.Op)
		})
	}
}

func TestDynamoTableTimeout(t *testing.T) {
	client := newMockClient(t)
	table := NewDynamoTable(client, "cards", cardSchema, 10*time.Millisecond)

	client.ScanFunc = func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := table.ScanPage(context.Background(), nil, QueryOptions{})
	assert.ErrorIs(t, err, ErrTimeout)
}
