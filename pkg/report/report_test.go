package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

var tuesday = time.Date(2009, time.June, 16, 0, 0, 0, 0, time.Local)

func fixtureItems() []api.Item {
	return []api.Item{
		{Name: "Super App", Version: "v1.2", Seller: "Pear Inc", Price: "$4.99", Date: tuesday, Kind: api.KindApp},
		{Name: "Freebie", Version: "v2.0", Seller: "Pear Inc", Price: "Free", Date: tuesday, Kind: api.KindApp},
		{Name: "Freebie", Version: "v2.1", Seller: "Pear Inc", Price: "Free", Date: tuesday, Kind: api.KindApp},
		{Name: "Some Song", Price: "$1.99", Date: tuesday, Kind: api.KindMusic},
	}
}

func render(items []api.Item, opts Options, skipped int) string {
	var buf bytes.Buffer
	New(&buf).Render(items, opts, skipped)
	return buf.String()
}

func TestRenderListings(t *testing.T) {
	out := render(fixtureItems(), AllOptions(), 0)

	for _, want := range []string{
		"Applications - iPhone and iPod Touch",
		"Music - Songs, singles and records",
		"Super App",
		"Some Song",
		"16/06/09",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	// Free updates are collapsed: Freebie appears once in the app listing.
	listing := out[:strings.Index(out, "Purchases by weekday")]
	if got := strings.Count(listing, "Freebie"); got != 1 {
		t.Errorf("Freebie listed %d times, want 1\n%s", got, out)
	}

	// Paid before free.
	if strings.Index(out, "Super App") > strings.Index(out, "Freebie") {
		t.Errorf("paid app listed after free app\n%s", out)
	}
}

func TestRenderListingSelection(t *testing.T) {
	out := render(fixtureItems(), Options{FreeApps: true}, 0)

	if strings.Contains(out, "Super App") {
		t.Errorf("paid app listed despite free-only selection\n%s", out)
	}
	if !strings.Contains(out, "Freebie") {
		t.Errorf("free app missing\n%s", out)
	}
	if !strings.Contains(out, "Could not find any data about music") {
		t.Errorf("music placeholder missing\n%s", out)
	}
}

func TestRenderColumnAlignment(t *testing.T) {
	items := []api.Item{
		{Name: "A Name Longer Than The Minimum", Seller: "S", Price: "$4.99", Date: tuesday, Kind: api.KindApp},
	}
	out := render(items, AllOptions(), 0)

	// Name column width grows to the longest name plus one, so the header
	// row carries the same padding as the data row.
	want := "Name" + strings.Repeat(" ", len("A Name Longer Than The Minimum")+1-len("Name")) + "  "
	if !strings.Contains(out, want+"   Price") {
		t.Errorf("header not padded to the name column width\n%s", out)
	}
}

func TestRenderHistograms(t *testing.T) {
	out := render(fixtureItems(), AllOptions(), 0)

	// Every purchase happened on a Tuesday in June.
	fullBar := "[" + strings.Repeat("=", 65) + "] 100.0%"
	for _, want := range []string{
		"Purchases by weekday",
		"   Tuesday: " + fullBar,
		"Purchases by month",
		"      June: " + fullBar,
		"    Monday: [" + strings.Repeat(" ", 65) + "] 0.0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderStatistics(t *testing.T) {
	out := render(fixtureItems(), AllOptions(), 0)

	for _, want := range []string{
		"Apps statistics:",
		" Total applications: 2",
		"    Total free apps: 1",
		" Total free updates: 1",
		"    Total paid apps: 1",
		" Total paid updates: 0",
		"Total spent on apps: $4.99",
		"Music statistics:",
		"         Total music: 1",
		"    Total free music: 0",
		"    Total paid music: 1",
		"Total spent on music: $1.99",
		"Total spent in the iTunes Store: $6.98",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	if strings.Contains(out, "Skipped") {
		t.Errorf("skip notice printed for a clean run\n%s", out)
	}
}

func TestRenderCurrencySubstitution(t *testing.T) {
	items := []api.Item{
		{Name: "A", Price: "kr7.00", Date: tuesday, Kind: api.KindApp},
		{Name: "B", Price: "kr3.50", Date: tuesday, Kind: api.KindApp},
	}
	out := render(items, AllOptions(), 0)

	if !strings.Contains(out, "Total spent on apps: kr10.5") {
		t.Errorf("currency formatting not taken from the first paid item\n%s", out)
	}
}

func TestRenderCurrencySubstitutesFirstAmountOnly(t *testing.T) {
	// A price text carrying a second decimal run keeps it verbatim; only
	// the first run is replaced by the sum.
	items := []api.Item{
		{Name: "A", Price: "1.00(2.00)", Date: tuesday, Kind: api.KindApp},
	}
	out := render(items, AllOptions(), 0)

	if !strings.Contains(out, "Total spent on apps: 1(2.00)") {
		t.Errorf("substitution touched more than the first amount\n%s", out)
	}
}

func TestRenderNoData(t *testing.T) {
	out := render(nil, AllOptions(), 2)

	for _, want := range []string{
		"Could not find any data about applications",
		"Could not find any data about music",
		"Total spent on apps: None",
		"Total spent on music: None",
		"Total spent in the iTunes Store: None",
		"Skipped 2 malformed receipt(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}
