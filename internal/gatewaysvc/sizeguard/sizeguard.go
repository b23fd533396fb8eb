// Package sizeguard estimates DynamoDB item sizes and rejects items that
// would exceed the store's per-item limit before a write is attempted.
package sizeguard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultCeiling is the DynamoDB maximum item size in bytes.
const DefaultCeiling = 400000

var ErrItemTooLarge = errors.New("item exceeds maximum size")

// ItemTooLargeError reports the estimated footprint of a rejected item.
type ItemTooLargeError struct {
	Size    int
	Ceiling int
}

func (e *ItemTooLargeError) Error() string {
	return fmt.Sprintf("item is %d bytes, maximum is %d bytes", e.Size, e.Ceiling)
}

func (e *ItemTooLargeError) Unwrap() error {
	return ErrItemTooLarge
}

// Guard checks items against Ceiling. The store keeps one copy of an item in
// the base table and one per secondary index that projects it; Indexes is that
// index count and scales the estimate by Indexes+1. Zero leaves index
// duplication out of the estimate.
type Guard struct {
	Ceiling int
	Indexes int
}

func New(ceiling, indexes int) Guard {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if indexes < 0 {
		indexes = 0
	}
	return Guard{Ceiling: ceiling, Indexes: indexes}
}

// Footprint is the estimated stored size of item including index copies.
func (g Guard) Footprint(item map[string]types.AttributeValue) int {
	return Estimate(item) * (g.Indexes + 1)
}

// Check returns nil when the footprint is at most the ceiling.
func (g Guard) Check(item map[string]types.AttributeValue) error {
	ceiling := g.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	size := g.Footprint(item)
	if size > ceiling {
		return &ItemTooLargeError{Size: size, Ceiling: ceiling}
	}
	return nil
}

// Estimate approximates the size DynamoDB charges for an item: attribute
// names plus encoded values.
func Estimate(item map[string]types.AttributeValue) int {
	size := 0
	for name, v := range item {
		size += len(name) + valueSize(v)
	}
	return size
}

func valueSize(v types.AttributeValue) int {
	switch v := v.(type) {
	case *types.AttributeValueMemberS:
		return len(v.Value)
	case *types.AttributeValueMemberN:
		return numberSize(v.Value)
	case *types.AttributeValueMemberB:
		return len(v.Value)
	case *types.AttributeValueMemberBOOL, *types.AttributeValueMemberNULL:
		return 1
	case *types.AttributeValueMemberSS:
		n := 0
		for _, s := range v.Value {
			n += len(s)
		}
		return n
	case *types.AttributeValueMemberNS:
		n := 0
		for _, s := range v.Value {
			n += numberSize(s)
		}
		return n
	case *types.AttributeValueMemberBS:
		n := 0
		for _, b := range v.Value {
			n += len(b)
		}
		return n
	case *types.AttributeValueMemberL:
		n := 3
		for _, e := range v.Value {
			n += 1 + valueSize(e)
		}
		return n
	case *types.AttributeValueMemberM:
		n := 3
		for k, e := range v.Value {
			n += 1 + len(k) + valueSize(e)
		}
		return n
	}
	return 0
}

// numberSize is one byte per two significant digits plus one.
func numberSize(n string) int {
	n = strings.TrimLeft(n, "+-")
	if i := strings.IndexAny(n, "eE"); i >= 0 {
		n = n[:i]
	}
	digits := strings.Replace(n, ".", "", 1)
	digits = strings.Trim(digits, "0")
	if digits == "" {
		return 1
	}
	return (len(digits)+1)/2 + 1
}
