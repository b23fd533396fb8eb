package store

import (
	"context"
	"fmt"
)

// Limits caps the aggregation of paginated results. Zero values disable the
// corresponding cap.
type Limits struct {
	MaxPages int
	MaxItems int
}

var DefaultLimits = Limits{MaxPages: 1000, MaxItems: 100000}

// FetchFunc fetches the page that starts after startKey.
type FetchFunc func(ctx context.Context, startKey Item) (Page, error)

// Collect issues fetch until a page comes back without a continuation marker
// and concatenates the items in the order the store returned them.
func Collect(ctx context.Context, limits Limits, fetch FetchFunc) ([]Item, error) {
	items := []Item{}
	var startKey Item

	for pages := 0; ; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limits.MaxPages > 0 && pages >= limits.MaxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrPaginationLimit, limits.MaxPages)
		}

		page, err := fetch(ctx, startKey)
		if err != nil {
			return nil, err
		}
		pages++

		items = append(items, page.Items...)
		if limits.MaxItems > 0 && len(items) > limits.MaxItems {
			return nil, fmt.Errorf("%w: more than %d items", ErrPaginationLimit, limits.MaxItems)
		}

		if len(page.LastKey) == 0 {
			return items, nil
		}
		startKey = page.LastKey
	}
}

// QueryAll runs a key condition query and follows every continuation marker.
func QueryAll(ctx context.Context, t Table, key Condition, pageSize int, limits Limits) ([]Item, error) {
	return Collect(ctx, limits, func(ctx context.Context, startKey Item) (Page, error) {
		return t.QueryPage(ctx, key, QueryOptions{StartKey: startKey, Limit: pageSize})
	})
}

// ScanAll scans the table and follows every continuation marker.
func ScanAll(ctx context.Context, t Table, filter *Condition, pageSize int, limits Limits) ([]Item, error) {
	return Collect(ctx, limits, func(ctx context.Context, startKey Item) (Page, error) {
		return t.ScanPage(ctx, filter, QueryOptions{StartKey: startKey, Limit: pageSize})
	})
}
