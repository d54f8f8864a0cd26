package domain

import (
	"fmt"
	"math"
	"time"
)

// BookSide identifies which side of the book a standing order rests on.
type BookSide string

const (
	BookSideAsk BookSide = "ask"
	BookSideBid BookSide = "bid"
)

// Side is the direction of a request, from the requester's perspective.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide converts a request string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", &ValidationError{
		Message: fmt.Sprintf("side must be %q or %q, got %q", SideBuy, SideSell, s),
		Err:     ErrInvalidSide,
	}
}

// Taker returns the request side that consumes orders on this book side:
// buying takes asks, selling takes bids.
func (s BookSide) Taker() Side {
	if s == BookSideAsk {
		return SideBuy
	}
	return SideSell
}

// Book returns the book side a request on this side consumes.
func (s Side) Book() BookSide {
	if s == SideBuy {
		return BookSideAsk
	}
	return BookSideBid
}

// Order is one standing limit order on some exchange. Remaining only
// ever decreases; once it reaches zero the order leaves its queue.
type Order struct {
	ID        string
	Side      BookSide
	Price     float64 // quote per unit of base
	Remaining float64 // base still available
	Account   AccountID
	Time      time.Time
}

// Validate checks the order's price and amount.
func (o *Order) Validate() error {
	switch {
	case o.Side != BookSideAsk && o.Side != BookSideBid:
		return &ValidationError{Message: fmt.Sprintf("order %q: unknown side %q", o.ID, o.Side), Err: ErrInvalidOrder}
	case !finitePositive(o.Price):
		return &ValidationError{Message: fmt.Sprintf("order %q: price must be > 0, got %v", o.ID, o.Price), Err: ErrInvalidOrder}
	case !finitePositive(o.Remaining):
		return &ValidationError{Message: fmt.Sprintf("order %q: amount must be > 0, got %v", o.ID, o.Remaining), Err: ErrInvalidOrder}
	}
	return nil
}

// ValidateAmount rejects requested amounts that are not finite and
// strictly positive.
func ValidateAmount(amount float64) error {
	if !finitePositive(amount) {
		return &ValidationError{
			Message: fmt.Sprintf("amount must be a positive number, got %v", amount),
			Err:     ErrInvalidAmount,
		}
	}
	return nil
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}
