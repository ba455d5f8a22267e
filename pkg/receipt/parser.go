// Package receipt turns raw iTunes Store receipt emails into structured
// purchase records. Parsing operates purely on in-memory text; no network
// or filesystem access happens here.
package receipt

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

// ErrMalformedReceipt is returned when a mandatory field pattern does not
// match. The message should be skipped; one bad message never aborts a run.
var ErrMalformedReceipt = errors.New("malformed receipt")

var (
	// The plain-text part sits between the first pair of MIME boundary
	// markers. Some message variants are already plain text, in which
	// case the body is used verbatim.
	partPattern = regexp.MustCompile(`(?s)------=_Part_.+?\r\n\r\n(.+?)---=_Part_`)

	// Quoted-printable hex escapes, uppercase only, as the template emits them.
	hexPattern = regexp.MustCompile(`=([A-F0-9]{2})`)

	// Email line precedes the name line; captures are reversed on extraction.
	billedToPattern = regexp.MustCompile(`Billed to:\r\n([^\r]+)\r\n([^\r]+)\r?\n`)

	datePattern  = regexp.MustCompile(`Receipt Date: ([^\r]+)\r?\n`)
	totalPattern = regexp.MustCompile(`Order Total: (\d+\.\d+)`)

	// One purchase row: optional Q+digits quantity marker, free text,
	// trailing amount or the literal word Free.
	itemPattern = regexp.MustCompile(`(Q?\d+)\s+(\S.+)\s+(\S*Free|\S*\d+\.\d+\S*)\r?\n`)
)

// Parse converts one raw email body into a Receipt.
//
// The body may be MIME multipart with quoted-printable encoding; the
// plain-text part is extracted and decoded before field extraction. A
// receipt with zero item rows is returned as-is, but a missing billed-to,
// date or total field yields ErrMalformedReceipt.
func Parse(body string) (*api.Receipt, error) {
	body = decodeBody(body)

	billedMatch := billedToPattern.FindStringSubmatch(body)
	if billedMatch == nil {
		return nil, fmt.Errorf("%w: no billed-to block", ErrMalformedReceipt)
	}

	dateMatch := datePattern.FindStringSubmatch(body)
	if dateMatch == nil {
		return nil, fmt.Errorf("%w: no receipt date", ErrMalformedReceipt)
	}
	date, err := parseReceiptDate(dateMatch[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}

	totalMatch := totalPattern.FindStringSubmatch(body)
	if totalMatch == nil {
		return nil, fmt.Errorf("%w: no order total", ErrMalformedReceipt)
	}

	rec := &api.Receipt{
		BilledTo: api.BilledTo{
			// Reversed: the second captured line is the name.
			Name:  billedMatch[2],
			Email: billedMatch[1],
		},
		Date:  date,
		Total: totalMatch[1],
	}

	for _, row := range itemPattern.FindAllStringSubmatch(body, -1) {
		// The description capture keeps the column padding before the
		// price; every column is stripped.
		rec.Rows = append(rec.Rows, api.ItemRow{
			Number:      strings.TrimSpace(row[1]),
			Description: strings.TrimSpace(row[2]),
			Price:       strings.TrimSpace(row[3]),
		})
	}

	return rec, nil
}

// decodeBody extracts the plain-text MIME part, if any, and undoes the
// quoted-printable encoding.
func decodeBody(body string) string {
	if part := partPattern.FindStringSubmatch(body); part != nil {
		body = part[1]
	}

	// Soft line breaks: a literal '=' glued to the line ending.
	body = strings.ReplaceAll(body, "=\r\n", "")
	body = strings.ReplaceAll(body, "=\n", "")

	// Zero matches leaves the body unchanged.
	return hexPattern.ReplaceAllStringFunc(body, func(esc string) string {
		b, err := hex.DecodeString(esc[1:])
		if err != nil {
			return esc
		}
		return string(b)
	})
}

// parseReceiptDate parses the day/month/year form used by the receipt
// template. Two-digit years pivot the way Ruby's Time.mktime did:
// 0-68 land in the 2000s, 69-99 in the 1900s.
func parseReceiptDate(text string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("bad date %q", text)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad day in %q", text)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad month in %q", text)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad year in %q", text)
	}

	switch {
	case year < 69:
		year += 2000
	case year < 100:
		year += 1900
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date out of range %q", text)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), nil
}
