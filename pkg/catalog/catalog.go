// Package catalog aggregates classified purchase items across receipts
// and answers the queries the report is built from. The catalog itself is
// an append-only log; every derived view is a pure function over the item
// sequence.
package catalog

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

// amountPattern extracts the decimal amount from a price rendered with a
// currency marker, like "$4.99" or "kr7.00".
var amountPattern = regexp.MustCompile(`\d+\.\d+`)

// Catalog holds the full ordered sequence of purchase items. Ingest is
// safe to call from multiple fetch workers; the append is serialized so
// items of one receipt stay contiguous and in row order.
type Catalog struct {
	mu    sync.Mutex
	items []api.Item
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Ingest appends items to the log. Items are never removed or mutated
// after ingestion.
func (c *Catalog) Ingest(items ...api.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, items...)
}

// Items returns a copy of the ordered item log.
func (c *Catalog) Items() []api.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of ingested items.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ByKind returns the items of the given kind, in order.
func ByKind(items []api.Item, kind api.Kind) []api.Item {
	var out []api.Item
	for _, i := range items {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

// Free returns the items whose price is exactly "Free". Together with
// Paid it partitions the input disjointly and exhaustively.
func Free(items []api.Item) []api.Item {
	var out []api.Item
	for _, i := range items {
		if i.Free() {
			out = append(out, i)
		}
	}
	return out
}

// Paid returns the items whose price is not exactly "Free".
func Paid(items []api.Item) []api.Item {
	var out []api.Item
	for _, i := range items {
		if !i.Free() {
			out = append(out, i)
		}
	}
	return out
}

// DistinctByName keeps the first occurrence of each name, preserving
// relative order. A later item sharing a name with an earlier one is an
// update, not a new purchase; the number of dropped duplicates is the
// update count.
func DistinctByName(items []api.Item) []api.Item {
	seen := make(map[string]struct{}, len(items))
	var out []api.Item
	for _, i := range items {
		if _, ok := seen[i.Name]; ok {
			continue
		}
		seen[i.Name] = struct{}{}
		out = append(out, i)
	}
	return out
}

// MoneySpent sums the prices of all non-free items. A price that is
// neither "Free" nor carries a decimal amount is skipped with a warning
// rather than aborting the whole statistics pass.
func MoneySpent(items []api.Item) float64 {
	var total float64
	for _, i := range items {
		if i.Free() {
			continue
		}
		amount := amountPattern.FindString(i.Price)
		if amount == "" {
			slog.Warn("skipping item with unparsable price", "name", i.Name, "price", i.Price)
			continue
		}
		v, _ := strconv.ParseFloat(amount, 64)
		total += v
	}
	// Prices are cent amounts; rounding clears the float accumulation
	// error before the total is formatted.
	return math.Round(total*100) / 100
}

// FormatMoney renders a total without a trailing fractional part when it
// is a whole amount: 5, not 5.0; 3.99 stays 3.99.
func FormatMoney(total float64) string {
	return strconv.FormatFloat(total, 'f', -1, 64)
}

// SortByPriceName returns a new slice sorted by price descending, ties
// broken by name ascending (case-sensitive). "Free" compares as 0 here;
// the display string is unaffected.
func SortByPriceName(items []api.Item) []api.Item {
	out := make([]api.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := priceValue(out[a].Price), priceValue(out[b].Price)
		if pa != pb {
			return pa > pb
		}
		return out[a].Name < out[b].Name
	})
	return out
}

// priceValue parses a price for comparison only. "Free" and anything
// without a decimal amount count as 0.
func priceValue(price string) float64 {
	amount := amountPattern.FindString(price)
	if amount == "" {
		return 0
	}
	v, _ := strconv.ParseFloat(amount, 64)
	return v
}
