package catalog

import (
	"math"
	"time"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

// BarScale maps a percentage to a histogram bar length; BarWidth is the
// resulting field width (100% * 0.65 = 65 characters). Both are part of
// the output contract so bar lengths reproduce exactly.
const (
	BarScale = 0.65
	BarWidth = 65
)

// Stats summarizes one item list the way the report prints it.
type Stats struct {
	// Total counts every item, updates included.
	Total int
	// Distinct counts unique names across the whole list.
	Distinct int

	FreeDistinct int
	FreeUpdates  int
	PaidDistinct int
	PaidUpdates  int

	// MoneySpent is the numeric sum over paid items.
	MoneySpent float64
}

// ComputeStats derives the free/paid/update counts and spend total for a
// list of items.
func ComputeStats(items []api.Item) Stats {
	free := Free(items)
	paid := Paid(items)

	s := Stats{
		Total:        len(items),
		Distinct:     len(DistinctByName(items)),
		FreeDistinct: len(DistinctByName(free)),
		PaidDistinct: len(DistinctByName(paid)),
		MoneySpent:   MoneySpent(paid),
	}
	s.FreeUpdates = len(free) - s.FreeDistinct
	s.PaidUpdates = len(paid) - s.PaidDistinct
	return s
}

// Bucket is one histogram row.
type Bucket struct {
	Label   string
	Count   int
	Percent float64
	// BarLen is round(Percent * BarScale), capped by construction at BarWidth.
	BarLen int
}

// ByWeekday buckets items by the weekday of their purchase date,
// Sunday first.
func ByWeekday(items []api.Item) []Bucket {
	counts := make([]int, 7)
	for _, i := range items {
		counts[int(i.Date.Weekday())]++
	}

	buckets := make([]Bucket, 7)
	for d := range counts {
		buckets[d] = makeBucket(time.Weekday(d).String(), counts[d], len(items))
	}
	return buckets
}

// ByMonth buckets items by the calendar month of their purchase date,
// January first.
func ByMonth(items []api.Item) []Bucket {
	counts := make([]int, 13)
	for _, i := range items {
		counts[int(i.Date.Month())]++
	}

	buckets := make([]Bucket, 12)
	for m := 1; m <= 12; m++ {
		buckets[m-1] = makeBucket(time.Month(m).String(), counts[m], len(items))
	}
	return buckets
}

func makeBucket(label string, count, total int) Bucket {
	b := Bucket{Label: label, Count: count}
	if total > 0 {
		b.Percent = float64(count) / float64(total) * 100
		b.BarLen = int(math.Round(b.Percent * BarScale))
	}
	return b
}
