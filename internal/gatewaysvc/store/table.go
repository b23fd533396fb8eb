package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a record in the store's attribute-value representation.
type Item = map[string]types.AttributeValue

// KeySchema names the partition and sort key attributes of a table.
type KeySchema struct {
	PartitionKey string
	SortKey      string
}

// QueryOptions applies to a single page request.
type QueryOptions struct {
	StartKey Item // continuation marker from the previous page
	Limit    int  // page size; zero lets the store decide
}

// Page is one response of a query or scan. A nil or empty LastKey means the
// result is exhausted.
type Page struct {
	Items   []Item
	LastKey Item
}

// Table is the query capability the services need from a store.
type Table interface {
	Name() string
	Schema() KeySchema
	Put(ctx context.Context, item Item) error
	// Update sets the given attributes on an existing record and returns the
	// record after the update. It fails with ErrNotFound when key is absent.
	Update(ctx context.Context, key Item, set map[string]any) (Item, error)
	// Delete removes the record and returns it, or nil if it did not exist.
	Delete(ctx context.Context, key Item) (Item, error)
	QueryPage(ctx context.Context, key Condition, opts QueryOptions) (Page, error)
	// ScanPage reads the table, keeping only items that match filter when it
	// is not nil.
	ScanPage(ctx context.Context, filter *Condition, opts QueryOptions) (Page, error)
}
