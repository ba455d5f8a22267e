// Package api defines the core data types and interfaces for appreceipts.
package api

import (
	"context"
	"time"
)

// Kind classifies what a purchased item is.
type Kind int

const (
	// KindApp is an application purchase (description carried name, version and seller).
	KindApp Kind = iota
	// KindMusic is a music purchase, and the fallback for anything that is not an app.
	KindMusic
	// KindOther is reserved for future item types (TV shows etc.). The
	// classifier never produces it today.
	KindOther
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindApp:
		return "app"
	case KindMusic:
		return "music"
	default:
		return "other"
	}
}

// BilledTo is the billing block of a receipt, name first. In the raw
// message the email line precedes the name line.
type BilledTo struct {
	Name  string
	Email string
}

// ItemRow is one raw purchase row as it appears in a receipt body:
// an item number (optionally prefixed with a Q quantity marker), a
// free-text description, and a price column.
type ItemRow struct {
	Number      string
	Description string
	Price       string
}

// Receipt is one parsed purchase email. It is constructed once by the
// parser and never mutated.
type Receipt struct {
	BilledTo BilledTo
	Date     time.Time
	// Total is the numeric amount after "Order Total:". The currency
	// symbol is not captured separately; this is a known limitation of
	// the receipt template pattern.
	Total string
	Rows  []ItemRow
}

// Item is one classified purchase. Version and Seller are only set for apps.
type Item struct {
	Number  string
	Name    string
	Price   string
	Version string
	Seller  string
	Date    time.Time
	Kind    Kind
}

// Free reports whether the item was a free download. The comparison is
// an exact string match, matching the receipt template.
func (i Item) Free() bool {
	return i.Price == "Free"
}

// RawMessage is one raw email body obtained from a source.
type RawMessage struct {
	// ID identifies the message within its source (sequence number,
	// filename, ...), used only for logging.
	ID   string
	Body string
}

// Source yields raw receipt message bodies. Implementations must close
// the out channel when done and respect context cancellation.
type Source interface {
	Fetch(ctx context.Context, out chan<- RawMessage) error
}
