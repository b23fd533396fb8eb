package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// MemoryTable is an in-process Table with the same query, pagination and
// conditional update behaviour as DynamoTable. Items are kept ordered by
// partition key then sort key.
type MemoryTable struct {
	mu     sync.RWMutex
	name   string
	schema KeySchema
	items  []Item

	// PageSize caps the items evaluated per page when a request sets no
	// limit, standing in for DynamoDB's 1 MB page boundary. Zero means one
	// page holds everything.
	PageSize int
}

var _ Table = (*MemoryTable)(nil)

func NewMemoryTable(name string, schema KeySchema) *MemoryTable {
	return &MemoryTable{name: name, schema: schema}
}

func (t *MemoryTable) Name() string      { return t.name }
func (t *MemoryTable) Schema() KeySchema { return t.schema }

// Len is the number of stored items.
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *MemoryTable) Put(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.checkKey(item); err != nil {
		return t.validation("PutItem", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i, found := t.search(item)
	if found {
		t.items[i] = copyItem(item)
		return nil
	}
	t.items = append(t.items, nil)
	copy(t.items[i+1:], t.items[i:])
	t.items[i] = copyItem(item)
	return nil
}

func (t *MemoryTable) Update(ctx context.Context, key Item, set map[string]any) (Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("update %s: no attributes to set", t.name)
	}
	if err := t.checkKey(key); err != nil {
		return nil, t.validation("UpdateItem", err)
	}

	values := make(Item, len(set))
	for name, v := range set {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		values[name] = av
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i, found := t.search(key)
	if !found {
		return nil, &StoreError{Op: "UpdateItem", Table: t.name, Code: "ConditionalCheckFailedException", Kind: ErrNotFound, Err: fmt.Errorf("the conditional request failed")}
	}

	updated := copyItem(t.items[i])
	for name, av := range values {
		updated[name] = av
	}
	t.items[i] = updated
	return copyItem(updated), nil
}

func (t *MemoryTable) Delete(ctx context.Context, key Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.checkKey(key); err != nil {
		return nil, t.validation("DeleteItem", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i, found := t.search(key)
	if !found {
		return nil, nil
	}
	old := t.items[i]
	t.items = append(t.items[:i], t.items[i+1:]...)
	return old, nil
}

func (t *MemoryTable) QueryPage(ctx context.Context, key Condition, opts QueryOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if !key.valid() {
		return Page{}, fmt.Errorf("invalid key condition on %q", key.Name)
	}
	if key.Name != t.schema.PartitionKey || key.Op != OpEqual {
		return Page{}, t.validation("Query", fmt.Errorf("query condition must be an equality on partition key %q", t.schema.PartitionKey))
	}
	match, err := matcher(key)
	if err != nil {
		return Page{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	// only the matching partition is evaluated
	var candidates []Item
	for _, item := range t.items {
		if match(item) {
			candidates = append(candidates, item)
		}
	}
	return t.page(candidates, nil, opts), nil
}

func (t *MemoryTable) ScanPage(ctx context.Context, filter *Condition, opts QueryOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	var match func(Item) bool
	if filter != nil {
		if !filter.valid() {
			return Page{}, fmt.Errorf("invalid filter on %q", filter.Name)
		}
		m, err := matcher(*filter)
		if err != nil {
			return Page{}, err
		}
		match = m
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.page(t.items, match, opts), nil
}

// page evaluates up to the page limit items after the start key and applies
// the filter to the evaluated items, as DynamoDB does.
func (t *MemoryTable) page(items []Item, filter func(Item) bool, opts QueryOptions) Page {
	start := 0
	if len(opts.StartKey) > 0 {
		start = sort.Search(len(items), func(i int) bool {
			return t.compareKeys(items[i], opts.StartKey) > 0
		})
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = t.PageSize
	}
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	out := Page{Items: []Item{}}
	for _, item := range items[start:end] {
		if filter == nil || filter(item) {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	if end < len(items) {
		out.LastKey = t.keyOf(items[end-1])
	}
	return out
}

func (t *MemoryTable) search(key Item) (int, bool) {
	i := sort.Search(len(t.items), func(i int) bool {
		return t.compareKeys(t.items[i], key) >= 0
	})
	return i, i < len(t.items) && t.compareKeys(t.items[i], key) == 0
}

func (t *MemoryTable) compareKeys(a, b Item) int {
	if c, _ := compareValues(a[t.schema.PartitionKey], b[t.schema.PartitionKey]); c != 0 {
		return c
	}
	if t.schema.SortKey == "" {
		return 0
	}
	c, _ := compareValues(a[t.schema.SortKey], b[t.schema.SortKey])
	return c
}

func (t *MemoryTable) keyOf(item Item) Item {
	key := Item{t.schema.PartitionKey: item[t.schema.PartitionKey]}
	if t.schema.SortKey != "" {
		key[t.schema.SortKey] = item[t.schema.SortKey]
	}
	return key
}

func (t *MemoryTable) checkKey(item Item) error {
	for _, name := range []string{t.schema.PartitionKey, t.schema.SortKey} {
		if name == "" {
			continue
		}
		switch item[name].(type) {
		case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		default:
			return fmt.Errorf("missing key attribute %q", name)
		}
	}
	return nil
}

func (t *MemoryTable) validation(op string, err error) error {
	return &StoreError{Op: op, Table: t.name, Code: "ValidationException", Kind: ErrUnavailable, Err: err}
}

func matcher(c Condition) (func(Item) bool, error) {
	values := make([]types.AttributeValue, len(c.Values))
	for i, v := range c.Values {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal condition value: %w", err)
		}
		values[i] = av
	}

	return func(item Item) bool {
		got, ok := item[c.Name]
		if !ok {
			return false
		}
		switch c.Op {
		case OpEqual:
			cmp, ok := compareValues(got, values[0])
			return ok && cmp == 0
		case OpLessThan:
			cmp, ok := compareValues(got, values[0])
			return ok && cmp < 0
		case OpBetween:
			lo, ok1 := compareValues(got, values[0])
			hi, ok2 := compareValues(got, values[1])
			return ok1 && ok2 && lo >= 0 && hi <= 0
		}
		return false
	}, nil
}

// compareValues orders two scalar values of the same type. Numbers compare
// by value, strings and binaries bytewise. The second result is false when
// the values are not comparable.
func compareValues(a, b types.AttributeValue) (int, bool) {
	switch a := a.(type) {
	case *types.AttributeValueMemberS:
		if b, ok := b.(*types.AttributeValueMemberS); ok {
			switch {
			case a.Value < b.Value:
				return -1, true
			case a.Value > b.Value:
				return 1, true
			}
			return 0, true
		}
	case *types.AttributeValueMemberN:
		if b, ok := b.(*types.AttributeValueMemberN); ok {
			da, err1 := decimal.NewFromString(a.Value)
			db, err2 := decimal.NewFromString(b.Value)
			if err1 != nil || err2 != nil {
				return 0, false
			}
			return da.Cmp(db), true
		}
	case *types.AttributeValueMemberB:
		if b, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(a.Value, b.Value), true
		}
	}
	return 0, false
}

func copyItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
