package catalog

import (
	"testing"
	"time"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

func TestComputeStats(t *testing.T) {
	items := []api.Item{
		{Name: "A", Price: "Free"},
		{Name: "A", Price: "Free"}, // update
		{Name: "B", Price: "4.99"},
		{Name: "B", Price: "Free"}, // free update of a paid app
		{Name: "C", Price: "0.99"},
		{Name: "C", Price: "0.99"}, // paid update
	}

	s := ComputeStats(items)

	if s.Total != 6 {
		t.Errorf("Total: got %d, want 6", s.Total)
	}
	if s.Distinct != 3 {
		t.Errorf("Distinct: got %d, want 3", s.Distinct)
	}
	if s.FreeDistinct != 2 {
		t.Errorf("FreeDistinct: got %d, want 2", s.FreeDistinct)
	}
	if s.FreeUpdates != 1 {
		t.Errorf("FreeUpdates: got %d, want 1", s.FreeUpdates)
	}
	if s.PaidDistinct != 2 {
		t.Errorf("PaidDistinct: got %d, want 2", s.PaidDistinct)
	}
	if s.PaidUpdates != 1 {
		t.Errorf("PaidUpdates: got %d, want 1", s.PaidUpdates)
	}
	if got := FormatMoney(s.MoneySpent); got != "6.97" {
		t.Errorf("MoneySpent: got %s, want 6.97", got)
	}
}

func TestByWeekdaySingleDay(t *testing.T) {
	tuesday := time.Date(2009, time.June, 16, 0, 0, 0, 0, time.Local)
	if tuesday.Weekday() != time.Tuesday {
		t.Fatalf("fixture date is a %v, expected Tuesday", tuesday.Weekday())
	}

	items := make([]api.Item, 10)
	for i := range items {
		items[i] = api.Item{Name: "A", Date: tuesday}
	}

	buckets := ByWeekday(items)
	if len(buckets) != 7 {
		t.Fatalf("got %d buckets, want 7", len(buckets))
	}
	if buckets[0].Label != "Sunday" {
		t.Errorf("first bucket is %q, want Sunday", buckets[0].Label)
	}

	for _, b := range buckets {
		if b.Label == "Tuesday" {
			if b.Count != 10 || b.Percent != 100.0 || b.BarLen != BarWidth {
				t.Errorf("Tuesday: got count=%d percent=%.1f barlen=%d, want 10/100.0/%d",
					b.Count, b.Percent, b.BarLen, BarWidth)
			}
			continue
		}
		if b.Count != 0 || b.Percent != 0 || b.BarLen != 0 {
			t.Errorf("%s: got count=%d percent=%.1f barlen=%d, want all zero",
				b.Label, b.Count, b.Percent, b.BarLen)
		}
	}
}

func TestByMonth(t *testing.T) {
	items := []api.Item{
		{Date: time.Date(2008, time.December, 18, 0, 0, 0, 0, time.Local)},
		{Date: time.Date(2009, time.June, 1, 0, 0, 0, 0, time.Local)},
		{Date: time.Date(2009, time.June, 16, 0, 0, 0, 0, time.Local)},
		{Date: time.Date(2009, time.June, 30, 0, 0, 0, 0, time.Local)},
	}

	buckets := ByMonth(items)
	if len(buckets) != 12 {
		t.Fatalf("got %d buckets, want 12", len(buckets))
	}
	if buckets[0].Label != "January" {
		t.Errorf("first bucket is %q, want January", buckets[0].Label)
	}

	june := buckets[5]
	if june.Count != 3 || june.Percent != 75.0 {
		t.Errorf("June: got count=%d percent=%.1f, want 3/75.0", june.Count, june.Percent)
	}
	// round(75 * 0.65) = round(48.75) = 49
	if june.BarLen != 49 {
		t.Errorf("June: got barlen=%d, want 49", june.BarLen)
	}

	december := buckets[11]
	if december.Count != 1 || december.Percent != 25.0 || december.BarLen != 16 {
		t.Errorf("December: got count=%d percent=%.1f barlen=%d, want 1/25.0/16",
			december.Count, december.Percent, december.BarLen)
	}
}

func TestBucketsEmptyInput(t *testing.T) {
	for _, b := range append(ByWeekday(nil), ByMonth(nil)...) {
		if b.Count != 0 || b.Percent != 0 || b.BarLen != 0 {
			t.Errorf("%s: got count=%d percent=%f barlen=%d, want all zero",
				b.Label, b.Count, b.Percent, b.BarLen)
		}
	}
}
