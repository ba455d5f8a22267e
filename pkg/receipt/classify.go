package receipt

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

// App descriptions look like "Name, vVERSION, Seller: SELLER"; the
// "Seller:" prefix and the seller text itself are both optional.
var appPattern = regexp.MustCompile(`^(.+), (v.+?), (?:Seller:)? ?(.*)$`)

// Classify turns one raw item row into a typed purchase. It is a
// classification, not a validation: every row produces exactly one item.
// Rows whose description does not match the app pattern fall into the
// music bucket with the trimmed description as the name.
func Classify(row api.ItemRow, date time.Time) api.Item {
	item := api.Item{
		Number: strings.TrimSpace(row.Number),
		Price:  strings.TrimSpace(row.Price),
		Date:   date,
	}

	if m := appPattern.FindStringSubmatch(row.Description); m != nil {
		item.Kind = api.KindApp
		item.Name = strings.TrimSpace(m[1])
		item.Version = strings.TrimSpace(m[2])
		item.Seller = strings.TrimSpace(m[3])
		return item
	}

	item.Kind = api.KindMusic
	item.Name = strings.TrimSpace(row.Description)
	return item
}
