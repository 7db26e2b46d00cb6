package query

import "fmt"

// SortKey orders filter query results.
type SortKey string

// Supported sort keys. Recency is the default: newest source update first,
// product ID as tiebreak so pagination is stable.
const (
	SortRecency   SortKey = "recency"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortName      SortKey = "name"
)

// ParseSortKey validates a sort key; empty means the default.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortRecency, nil
	case SortRecency, SortPriceAsc, SortPriceDesc, SortName:
		return SortKey(s), nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}
