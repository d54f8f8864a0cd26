// Package snapshot decodes consolidated order-book snapshots. A snapshot
// file holds one exchange per line in the form
//
//	<timestamp>\t<order book json>
//
// and every exchange read gets its own account seeded with the configured
// starting balances.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/efreitasn/metaexchange/internal/domain"
	"go.uber.org/multierr"
)

// Default starting balances for every exchange account.
const (
	DefaultBaseBalance  = 5.0
	DefaultQuoteBalance = 10000.0
)

// maxLineSize bounds a single snapshot line; full books easily exceed
// bufio's 64 KiB default.
const maxLineSize = 64 << 20

// Options controls how a snapshot is loaded.
type Options struct {
	Limit        int // max lines to read, skipped lines included; 0 = all
	BaseBalance  float64
	QuoteBalance float64
}

// DefaultOptions returns Options with the default starting balances and
// no limit.
func DefaultOptions() Options {
	return Options{BaseBalance: DefaultBaseBalance, QuoteBalance: DefaultQuoteBalance}
}

// Book is a decoded snapshot: the accounts it created and the orders of
// both sides bound to them.
type Book struct {
	Accounts  *domain.AccountTable
	Asks      []*domain.Order
	Bids      []*domain.Order
	Exchanges int
}

// orderBook mirrors one line's JSON payload.
type orderBook struct {
	AcqTime jsonTime        `json:"AcqTime"`
	Asks    []orderEnvelope `json:"Asks"`
	Bids    []orderEnvelope `json:"Bids"`
}

type orderEnvelope struct {
	Order order `json:"Order"`
}

type order struct {
	ID     string   `json:"Id"`
	Time   jsonTime `json:"Time"`
	Type   string   `json:"Type"` // "Buy" for bids, "Sell" for asks
	Kind   string   `json:"Kind"`
	Amount float64  `json:"Amount"`
	Price  float64  `json:"Price"`
}

// jsonTime accepts RFC 3339 timestamps with or without a zone offset.
// Unparseable values decode to the zero time; timestamps are informational.
type jsonTime time.Time

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func (t *jsonTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = jsonTime(parsed)
			return nil
		}
	}
	return nil
}

// LoadFile opens path and decodes it with Load.
func LoadFile(path string, opts Options) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return Load(f, opts)
}

// Load decodes a snapshot from r. Lines without a tab separator are
// skipped. Malformed JSON stops the load; invalid orders are collected
// and reported together.
func Load(r io.Reader, opts Options) (*Book, error) {
	if opts.BaseBalance < 0 || opts.QuoteBalance < 0 {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("starting balances must be >= 0, got base=%v quote=%v", opts.BaseBalance, opts.QuoteBalance),
		}
	}

	book := &Book{Accounts: domain.NewAccountTable()}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineSize)

	var errs error
	lineNo := 0
	for (opts.Limit <= 0 || lineNo < opts.Limit) && sc.Scan() {
		lineNo++
		_, payload, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			continue
		}

		var ob orderBook
		if err := json.Unmarshal([]byte(payload), &ob); err != nil {
			return nil, fmt.Errorf("line %d: decode order book: %w", lineNo, err)
		}

		account := book.Accounts.Add(fmt.Sprintf("exchange-%d", lineNo), opts.BaseBalance, opts.QuoteBalance)
		book.Exchanges++

		asks, err := convert(ob.Asks, domain.BookSideAsk, account.ID, lineNo)
		errs = multierr.Append(errs, err)
		bids, err := convert(ob.Bids, domain.BookSideBid, account.ID, lineNo)
		errs = multierr.Append(errs, err)

		book.Asks = append(book.Asks, asks...)
		book.Bids = append(book.Bids, bids...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if errs != nil {
		return nil, errs
	}
	return book, nil
}

// convert binds decoded orders to account and validates them.
func convert(envs []orderEnvelope, side domain.BookSide, account domain.AccountID, lineNo int) ([]*domain.Order, error) {
	wantType := "Sell"
	if side == domain.BookSideBid {
		wantType = "Buy"
	}

	var errs error
	orders := make([]*domain.Order, 0, len(envs))
	for _, env := range envs {
		src := env.Order
		if src.Type != "" && !strings.EqualFold(src.Type, wantType) {
			errs = multierr.Append(errs, fmt.Errorf("line %d: order %q of type %q listed under %ss: %w",
				lineNo, src.ID, src.Type, side, domain.ErrWrongSide))
			continue
		}
		o := &domain.Order{
			ID:        src.ID,
			Side:      side,
			Price:     src.Price,
			Remaining: src.Amount,
			Account:   account,
			Time:      time.Time(src.Time),
		}
		if err := o.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		orders = append(orders, o)
	}
	return orders, errs
}
