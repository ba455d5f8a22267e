package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/pkarlsson/appreceipts/pkg/api"
	"github.com/pkarlsson/appreceipts/pkg/catalog"
)

type fakeSource struct {
	messages []api.RawMessage
	err      error
}

func (s *fakeSource) Fetch(ctx context.Context, out chan<- api.RawMessage) error {
	defer close(out)
	for _, m := range s.messages {
		select {
		case out <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

const appReceipt = "Billed to:\r\n" +
	"john@example.com\r\n" +
	"John Appleseed\r\n" +
	"Receipt Date: 16/06/09\r\n" +
	"Item Number  Description   Unit Price\r\n" +
	"Q1234567  Super App, v1.2, Seller: Pear Inc   4.99\r\n" +
	"Order Total: 4.99 USD  \r\n"

const musicReceipt = "Billed to:\r\n" +
	"john@example.com\r\n" +
	"John Appleseed\r\n" +
	"Receipt Date: 18/12/08\r\n" +
	"Item Number  Description   Unit Price\r\n" +
	"7654321  Some Song   Free\r\n" +
	"Order Total: 0.00 USD  \r\n"

func TestRun(t *testing.T) {
	src := &fakeSource{messages: []api.RawMessage{
		{ID: "1", Body: appReceipt},
		{ID: "2", Body: musicReceipt},
		{ID: "3", Body: "not a receipt"},
	}}

	cat := catalog.New()
	res, err := Run(context.Background(), src, cat, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Receipts != 2 {
		t.Errorf("Receipts: got %d, want 2", res.Receipts)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped: got %d, want 1", res.Skipped)
	}

	items := cat.Items()
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}

	app := items[0]
	if app.Kind != api.KindApp || app.Name != "Super App" || app.Price != "4.99" {
		t.Errorf("app item: got %+v", app)
	}
	song := items[1]
	if song.Kind != api.KindMusic || song.Name != "Some Song" || !song.Free() {
		t.Errorf("music item: got %+v", song)
	}

	if got := catalog.FormatMoney(catalog.MoneySpent(items)); got != "4.99" {
		t.Errorf("money spent: got %s, want 4.99", got)
	}
}

func TestRunNoData(t *testing.T) {
	tests := []struct {
		name     string
		messages []api.RawMessage
	}{
		{name: "empty source"},
		{
			name:     "only malformed messages",
			messages: []api.RawMessage{{ID: "1", Body: "junk"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{messages: tc.messages}
			_, err := Run(context.Background(), src, catalog.New(), nil)
			if !errors.Is(err, ErrNoData) {
				t.Errorf("got %v, want ErrNoData", err)
			}
		})
	}
}

func TestRunSourceError(t *testing.T) {
	srcErr := errors.New("connection reset")
	src := &fakeSource{
		messages: []api.RawMessage{{ID: "1", Body: appReceipt}},
		err:      srcErr,
	}

	cat := catalog.New()
	res, err := Run(context.Background(), src, cat, nil)
	if !errors.Is(err, srcErr) {
		t.Fatalf("got %v, want the source error", err)
	}
	// Messages delivered before the failure are kept.
	if res.Receipts != 1 || cat.Len() != 1 {
		t.Errorf("got receipts=%d items=%d, want 1/1", res.Receipts, cat.Len())
	}
}
