package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efreitasn/metaexchange/internal/domain"
	"go.uber.org/multierr"
)

const lineA = "1548759600.25189\t" + `{"AcqTime":"2019-01-29T11:00:00.2518854Z","Bids":[{"Order":{"Id":null,"Time":"0001-01-01T00:00:00","Type":"Buy","Kind":"Limit","Amount":0.01,"Price":2960.64}}],"Asks":[{"Order":{"Id":null,"Time":"0001-01-01T00:00:00","Type":"Sell","Kind":"Limit","Amount":0.405,"Price":2964.29},{"Order":{"Id":null,"Time":"0001-01-01T00:00:00","Type":"Sell","Kind":"Limit","Amount":0.5,"Price":2965.0}}]}`

const lineB = "1548759601.25189\t" + `{"AcqTime":"2019-01-29T11:00:01Z","Bids":[{"Order":{"Id":"b1","Type":"Buy","Kind":"Limit","Amount":1.5,"Price":2950}}],"Asks":[]}`

func TestLoad_TwoExchanges(t *testing.T) {
	book, err := Load(strings.NewReader(lineA+"\n"+lineB+"\n"), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if book.Exchanges != 2 || book.Accounts.Len() != 2 {
		t.Fatalf("exchanges = %d, accounts = %d, want 2, 2", book.Exchanges, book.Accounts.Len())
	}
	if len(book.Asks) != 2 || len(book.Bids) != 2 {
		t.Fatalf("asks = %d, bids = %d, want 2, 2", len(book.Asks), len(book.Bids))
	}

	for _, acc := range book.Accounts.All() {
		if acc.Base != DefaultBaseBalance || acc.Quote != DefaultQuoteBalance {
			t.Errorf("account %s balances = %v/%v, want %v/%v", acc.Exchange, acc.Base, acc.Quote, DefaultBaseBalance, DefaultQuoteBalance)
		}
	}

	ask := book.Asks[0]
	if ask.Side != domain.BookSideAsk || ask.Price != 2964.29 || ask.Remaining != 0.405 || ask.Account != 0 {
		t.Errorf("first ask = %+v", ask)
	}
	bid := book.Bids[1]
	if bid.ID != "b1" || bid.Side != domain.BookSideBid || bid.Account != 1 {
		t.Errorf("second bid = %+v", bid)
	}
	if !book.Asks[0].Time.IsZero() {
		t.Errorf("order time = %v, want zero time for 0001-01-01", book.Asks[0].Time)
	}
}

func TestLoad_Limit(t *testing.T) {
	opts := DefaultOptions()
	opts.Limit = 1
	book, err := Load(strings.NewReader(lineA+"\n"+lineB+"\n"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", book.Exchanges)
	}
	if len(book.Bids) != 1 {
		t.Errorf("bids = %d, want 1", len(book.Bids))
	}
}

func TestLoad_CustomBalances(t *testing.T) {
	book, err := Load(strings.NewReader(lineB), Options{BaseBalance: 1, QuoteBalance: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acc := book.Accounts.MustGet(0)
	if acc.Base != 1 || acc.Quote != 2 {
		t.Errorf("balances = %v/%v, want 1/2", acc.Base, acc.Quote)
	}
}

func TestLoad_SkipsLinesWithoutTab(t *testing.T) {
	book, err := Load(strings.NewReader("garbage\n\n"+lineB), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", book.Exchanges)
	}
}

func TestLoad_LimitCountsSkippedLines(t *testing.T) {
	opts := DefaultOptions()
	opts.Limit = 2
	book, err := Load(strings.NewReader("header\n"+lineA+"\n"+lineB+"\n"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", book.Exchanges)
	}
	if got := book.Accounts.MustGet(0).Exchange; got != "exchange-2" {
		t.Errorf("exchange = %q, want %q", got, "exchange-2")
	}
	if len(book.Bids) != 1 || book.Bids[0].Price != 2960.64 {
		t.Errorf("bids = %+v, want only the second line's bid", book.Bids)
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	_, err := Load(strings.NewReader("1\t{not json"), DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error = %v, want a line 1 decode error", err)
	}
}

func TestLoad_InvalidOrdersAreCollected(t *testing.T) {
	line := "1\t" + `{"Bids":[{"Order":{"Type":"Buy","Amount":0,"Price":100}},{"Order":{"Type":"Sell","Amount":1,"Price":100}}],"Asks":[{"Order":{"Type":"Sell","Amount":1,"Price":-5}}]}`

	_, err := Load(strings.NewReader(line), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for invalid orders")
	}
	errs := multierr.Errors(err)
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), err)
	}
	if !errors.Is(err, domain.ErrWrongSide) {
		t.Error("expected ErrWrongSide among the errors")
	}
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Error("expected ErrInvalidOrder among the errors")
	}
}

func TestLoad_NegativeBalances(t *testing.T) {
	_, err := Load(strings.NewReader(lineB), Options{BaseBalance: -1})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order_books_data")
	if err := os.WriteFile(path, []byte(lineA+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	book, err := LoadFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(book.Asks) != 2 {
		t.Errorf("asks = %d, want 2", len(book.Asks))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing"), DefaultOptions()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}
