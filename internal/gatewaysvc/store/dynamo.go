package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoTable.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoTable implements Table over one DynamoDB table. Every call runs under
// its own timeout.
type DynamoTable struct {
	client  DynamoDBAPI
	name    string
	schema  KeySchema
	timeout time.Duration
}

var _ Table = (*DynamoTable)(nil)

func NewDynamoTable(client DynamoDBAPI, name string, schema KeySchema, timeout time.Duration) *DynamoTable {
	return &DynamoTable{
		client:  client,
		name:    name,
		schema:  schema,
		timeout: timeout,
	}
}

func (t *DynamoTable) Name() string      { return t.name }
func (t *DynamoTable) Schema() KeySchema { return t.schema }

func (t *DynamoTable) Put(ctx context.Context, item Item) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	_, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	})
	if err != nil {
		return t.classify(ctx, "PutItem", err)
	}
	return nil
}

func (t *DynamoTable) Update(ctx context.Context, key Item, set map[string]any) (Item, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("update %s: no attributes to set", t.name)
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	var update expression.UpdateBuilder
	for _, name := range names {
		update = update.Set(expression.Name(name), expression.Value(set[name]))
	}

	// only existing records are updated
	exists := expression.AttributeExists(expression.Name(t.schema.PartitionKey))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(exists).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, t.classify(ctx, "UpdateItem", err)
	}
	return out.Attributes, nil
}

func (t *DynamoTable) Delete(ctx context.Context, key Item) (Item, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(t.name),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, t.classify(ctx, "DeleteItem", err)
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}
	return out.Attributes, nil
}

func (t *DynamoTable) QueryPage(ctx context.Context, key Condition, opts QueryOptions) (Page, error) {
	keyCond, err := keyCondition(key)
	if err != nil {
		return Page{}, err
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return Page{}, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(int32(opts.Limit))
	}
	if len(opts.StartKey) > 0 {
		input.ExclusiveStartKey = opts.StartKey
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.client.Query(ctx, input)
	if err != nil {
		return Page{}, t.classify(ctx, "Query", err)
	}
	log.Debugf("query %s %s %s: %d items, more=%t", t.name, key.Name, key.Op, len(out.Items), len(out.LastEvaluatedKey) > 0)

	return Page{Items: out.Items, LastKey: out.LastEvaluatedKey}, nil
}

func (t *DynamoTable) ScanPage(ctx context.Context, filter *Condition, opts QueryOptions) (Page, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(t.name),
	}

	if filter != nil {
		cond, err := filterCondition(*filter)
		if err != nil {
			return Page{}, err
		}
		expr, err := expression.NewBuilder().WithFilter(cond).Build()
		if err != nil {
			return Page{}, fmt.Errorf("failed to build filter: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(int32(opts.Limit))
	}
	if len(opts.StartKey) > 0 {
		input.ExclusiveStartKey = opts.StartKey
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.client.Scan(ctx, input)
	if err != nil {
		return Page{}, t.classify(ctx, "Scan", err)
	}
	log.Debugf("scan %s: %d items, more=%t", t.name, len(out.Items), len(out.LastEvaluatedKey) > 0)

	return Page{Items: out.Items, LastKey: out.LastEvaluatedKey}, nil
}

func (t *DynamoTable) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *DynamoTable) classify(ctx context.Context, op string, err error) error {
	se := &StoreError{Op: op, Table: t.name, Kind: ErrUnavailable, Err: err}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		se.Code = apiErr.ErrorCode()
	}

	var condErr *types.ConditionalCheckFailedException
	switch {
	case errors.As(err, &condErr):
		se.Kind = ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		se.Kind = ErrTimeout
	}
	return se
}

func keyCondition(c Condition) (expression.KeyConditionBuilder, error) {
	if !c.valid() {
		return expression.KeyConditionBuilder{}, fmt.Errorf("invalid key condition on %q", c.Name)
	}
	key := expression.Key(c.Name)
	switch c.Op {
	case OpEqual:
		return key.Equal(expression.Value(c.Values[0])), nil
	case OpBetween:
		return key.Between(expression.Value(c.Values[0]), expression.Value(c.Values[1])), nil
	case OpLessThan:
		return key.LessThan(expression.Value(c.Values[0])), nil
	}
	return expression.KeyConditionBuilder{}, fmt.Errorf("unsupported key condition %s", c.Op)
}

func filterCondition(c Condition) (expression.ConditionBuilder, error) {
	if !c.valid() {
		return expression.ConditionBuilder{}, fmt.Errorf("invalid filter on %q", c.Name)
	}
	name := expression.Name(c.Name)
	switch c.Op {
	case OpEqual:
		return name.Equal(expression.Value(c.Values[0])), nil
	case OpBetween:
		return name.Between(expression.Value(c.Values[0]), expression.Value(c.Values[1])), nil
	case OpLessThan:
		return name.LessThan(expression.Value(c.Values[0])), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("unsupported filter %s", c.Op)
}
