// Package report renders catalog query results as aligned text tables,
// histogram bars and totals.
package report

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/pkarlsson/appreceipts/pkg/api"
	"github.com/pkarlsson/appreceipts/pkg/catalog"
)

// Reference column width minimums.
const (
	minNameWidth   = 14
	minPriceWidth  = 8
	minSellerWidth = 14
)

var amountPattern = regexp.MustCompile(`\d+\.\d+`)

// Options selects which listings to print. Statistics and histograms are
// always printed.
type Options struct {
	FreeApps  bool
	PaidApps  bool
	FreeMusic bool
	PaidMusic bool
}

// AllOptions lists everything.
func AllOptions() Options {
	return Options{FreeApps: true, PaidApps: true, FreeMusic: true, PaidMusic: true}
}

// Renderer writes the final report.
type Renderer struct {
	w io.Writer
}

// New creates a renderer writing to w.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Render prints the app and music listings selected by opts, the weekday
// and month histograms, the per-kind statistics blocks and the grand
// total. skipped is the number of malformed messages dropped during the
// run, printed when nonzero.
func (r *Renderer) Render(items []api.Item, opts Options, skipped int) {
	apps := catalog.ByKind(items, api.KindApp)
	music := catalog.ByKind(items, api.KindMusic)

	r.listApps(apps, opts)
	r.listMusic(music, opts)

	r.histogram("Purchases by weekday", catalog.ByWeekday(items))
	r.histogram("Purchases by month", catalog.ByMonth(items))

	appStats := catalog.ComputeStats(apps)
	musicStats := catalog.ComputeStats(music)

	r.appStatistics(appStats, catalog.Paid(apps))
	fmt.Fprintln(r.w)
	r.musicStatistics(musicStats, catalog.Paid(music))
	fmt.Fprintln(r.w)

	grandTotal := math.Round((appStats.MoneySpent+musicStats.MoneySpent)*100) / 100
	paid := append(catalog.Paid(apps), catalog.Paid(music)...)
	fmt.Fprintf(r.w, "Total spent in the iTunes Store: %s\n", currencyAmount(paid, grandTotal))

	if skipped > 0 {
		fmt.Fprintf(r.w, "\nSkipped %d malformed receipt(s)\n", skipped)
	}
}

// selectRows combines the paid rows as-is with the free rows
// deduplicated by name (free updates carry no information), sorted by
// the shared price-descending, name-ascending contract.
func selectRows(items []api.Item, paid, free bool) []api.Item {
	var rows []api.Item
	if paid {
		rows = append(rows, catalog.Paid(items)...)
	}
	if free {
		rows = append(rows, catalog.DistinctByName(catalog.Free(items))...)
	}
	return catalog.SortByPriceName(rows)
}

func (r *Renderer) listApps(apps []api.Item, opts Options) {
	rows := selectRows(apps, opts.PaidApps, opts.FreeApps)

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "Applications - iPhone and iPod Touch")
	if len(rows) == 0 {
		fmt.Fprintln(r.w, "Could not find any data about applications")
		fmt.Fprintln(r.w)
		return
	}
	fmt.Fprintln(r.w)

	nameW, priceW := minNameWidth, minPriceWidth
	sellerW, dateW := minSellerWidth, 0
	for _, app := range rows {
		nameW = max(nameW, len(app.Name)+1)
		priceW = max(priceW, len(app.Price)+1)
		sellerW = max(sellerW, len(app.Seller)+1)
		dateW = max(dateW, len(dateString(app))+1)
	}

	// Price is the only right-justified column.
	format := "%*s  %*s  %*s  %*s\n"
	fmt.Fprintf(r.w, format, -nameW, "Name", priceW, "Price", -sellerW, "Seller", -dateW, "Date")
	fmt.Fprintf(r.w, format, -nameW, "----", priceW, "-----", -sellerW, "------", -dateW, "----")

	for _, app := range rows {
		fmt.Fprintf(r.w, format, -nameW, app.Name, priceW, app.Price, -sellerW, app.Seller, -dateW, dateString(app))
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) listMusic(music []api.Item, opts Options) {
	rows := selectRows(music, opts.PaidMusic, opts.FreeMusic)

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "Music - Songs, singles and records")
	if len(rows) == 0 {
		fmt.Fprintln(r.w, "Could not find any data about music")
		fmt.Fprintln(r.w)
		return
	}
	fmt.Fprintln(r.w)

	nameW, priceW, dateW := minNameWidth, minPriceWidth, 0
	for _, m := range rows {
		nameW = max(nameW, len(m.Name)+1)
		priceW = max(priceW, len(m.Price)+1)
		dateW = max(dateW, len(dateString(m))+1)
	}

	format := "%*s  %*s  %*s\n"
	fmt.Fprintf(r.w, format, -nameW, "Name", priceW, "Price", -dateW, "Date")
	fmt.Fprintf(r.w, format, -nameW, "----", priceW, "-----", -dateW, "----")

	for _, m := range rows {
		fmt.Fprintf(r.w, format, -nameW, m.Name, priceW, m.Price, -dateW, dateString(m))
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) histogram(title string, buckets []catalog.Bucket) {
	fmt.Fprintln(r.w, title)
	for _, b := range buckets {
		bar := strings.Repeat("=", b.BarLen)
		fmt.Fprintf(r.w, "%10s: [%*s] %.1f%%\n", b.Label, -catalog.BarWidth, bar, b.Percent)
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) appStatistics(stats catalog.Stats, paid []api.Item) {
	title := "Apps statistics:"
	fmt.Fprintln(r.w, title)
	fmt.Fprintln(r.w, strings.Repeat("-", len(title)))
	fmt.Fprintf(r.w, " Total applications: %d\n", stats.Distinct)
	fmt.Fprintf(r.w, "    Total free apps: %d\n", stats.FreeDistinct)
	fmt.Fprintf(r.w, " Total free updates: %d\n", stats.FreeUpdates)
	fmt.Fprintf(r.w, "    Total paid apps: %d\n", stats.PaidDistinct)
	fmt.Fprintf(r.w, " Total paid updates: %d\n", stats.PaidUpdates)
	fmt.Fprintf(r.w, "Total spent on apps: %s\n", currencyAmount(paid, stats.MoneySpent))
}

func (r *Renderer) musicStatistics(stats catalog.Stats, paid []api.Item) {
	title := "Music statistics:"
	fmt.Fprintln(r.w, title)
	fmt.Fprintln(r.w, strings.Repeat("-", len(title)))
	fmt.Fprintf(r.w, "         Total music: %d\n", stats.Distinct)
	fmt.Fprintf(r.w, "    Total free music: %d\n", stats.FreeDistinct)
	fmt.Fprintf(r.w, "    Total paid music: %d\n", stats.PaidDistinct)
	fmt.Fprintf(r.w, "Total spent on music: %s\n", currencyAmount(paid, stats.MoneySpent))
}

// currencyAmount renders a spend total in the currency formatting of the
// first paid item by substituting the summed amount for the first decimal
// run in its price text. The receipt template never captures the currency
// symbol separately, so this is the only faithful way to keep it.
func currencyAmount(paid []api.Item, total float64) string {
	if len(paid) == 0 {
		return "None"
	}
	price := paid[0].Price
	loc := amountPattern.FindStringIndex(price)
	if loc == nil {
		return price
	}
	return price[:loc[0]] + catalog.FormatMoney(total) + price[loc[1]:]
}

func dateString(i api.Item) string {
	return i.Date.Format("02/01/06")
}
