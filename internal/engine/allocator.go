package engine

import (
	"errors"
	"math"

	"github.com/efreitasn/metaexchange/internal/domain"
)

// Allocator computes execution plans against a consolidated book of asks
// and bids spread over several exchange accounts. Each Buy or Sell fills
// greedily from the best feasible order and mutates the touched accounts
// and orders in place, so later calls see the running balances.
//
// Allocator is not safe for concurrent use; callers serialise requests
// against one instance.
type Allocator struct {
	accounts *domain.AccountTable
	asks     *FeasibilityQueue
	bids     *FeasibilityQueue
}

// NewAllocator creates an Allocator over the given accounts and queues.
// Both queues must read balances from accounts.
func NewAllocator(accounts *domain.AccountTable, asks, bids *FeasibilityQueue) *Allocator {
	return &Allocator{
		accounts: accounts,
		asks:     asks,
		bids:     bids,
	}
}

// NewAllocatorFromOrders builds the ask and bid queues from loose orders
// and returns an Allocator over them.
func NewAllocatorFromOrders(accounts *domain.AccountTable, asks, bids []*domain.Order) (*Allocator, error) {
	askQ := NewFeasibilityQueue(domain.BookSideAsk, accounts)
	for _, o := range asks {
		if err := askQ.Enqueue(o); err != nil {
			return nil, err
		}
	}
	bidQ := NewFeasibilityQueue(domain.BookSideBid, accounts)
	for _, o := range bids {
		if err := bidQ.Enqueue(o); err != nil {
			return nil, err
		}
	}
	return NewAllocator(accounts, askQ, bidQ), nil
}

// Accounts returns the account table the allocator mutates.
func (a *Allocator) Accounts() *domain.AccountTable {
	return a.accounts
}

// Asks returns the ask queue.
func (a *Allocator) Asks() *FeasibilityQueue {
	return a.asks
}

// Bids returns the bid queue.
func (a *Allocator) Bids() *FeasibilityQueue {
	return a.bids
}

// Buy fills up to amount of the base asset from the ask side. It returns
// the unfilled remainder and the fills in execution order. The amount
// must be positive.
func (a *Allocator) Buy(amount float64) (float64, []domain.Fill) {
	var fills []domain.Fill

	for amount > 0 {
		// Peek best ask.
		order, err := a.asks.PeekBest()
		if errors.Is(err, domain.ErrEmptyQueue) {
			break
		}
		account := a.accounts.MustGet(order.Account)

		// The best ask is unaffordable, so every ask is.
		if account.Quote <= 0 {
			break
		}

		// Compute fill, clamped to what the account can pay.
		fillAmount := math.Min(order.Remaining, amount)
		fillValue := fillAmount * order.Price
		if fillValue > account.Quote {
			fillAmount = math.Min(account.Quote/order.Price, fillAmount)
			fillValue = account.Quote
		}

		account.Quote -= fillValue
		account.Base += fillAmount

		order.Remaining -= fillAmount
		amount -= fillAmount

		a.settle(a.asks, order)
		a.refresh(order.Account)

		if fillAmount <= 0 {
			continue
		}
		fills = append(fills, domain.Fill{
			Side:     domain.SideBuy,
			Price:    order.Price,
			Amount:   fillAmount,
			Account:  account.ID,
			Exchange: account.Exchange,
		})
	}

	return math.Max(amount, 0), fills
}

// Sell fills up to amount of the base asset into the bid side. It
// returns the unfilled remainder and the fills in execution order. The
// amount must be positive.
func (a *Allocator) Sell(amount float64) (float64, []domain.Fill) {
	var fills []domain.Fill

	for amount > 0 {
		// Peek best bid.
		order, err := a.bids.PeekBest()
		if errors.Is(err, domain.ErrEmptyQueue) {
			break
		}
		account := a.accounts.MustGet(order.Account)

		// The best bid cannot be delivered on, so no bid can.
		if account.Base <= 0 {
			break
		}

		// Compute fill, clamped to what the account holds.
		fillAmount := math.Min(math.Min(order.Remaining, amount), account.Base)
		fillValue := fillAmount * order.Price

		account.Quote += fillValue
		account.Base -= fillAmount

		order.Remaining -= fillAmount
		amount -= fillAmount

		a.settle(a.bids, order)
		a.refresh(order.Account)

		fills = append(fills, domain.Fill{
			Side:     domain.SideSell,
			Price:    order.Price,
			Amount:   fillAmount,
			Account:  account.ID,
			Exchange: account.Exchange,
		})
	}

	return math.Max(amount, 0), fills
}

// Execute dispatches to Buy or Sell.
func (a *Allocator) Execute(side domain.Side, amount float64) (float64, []domain.Fill) {
	if side == domain.SideSell {
		return a.Sell(amount)
	}
	return a.Buy(amount)
}

// Quote simulates Execute on a copy of the book and balances, leaving
// the allocator untouched.
func (a *Allocator) Quote(side domain.Side, amount float64) (float64, []domain.Fill) {
	return a.Clone().Execute(side, amount)
}

// Clone returns an independent deep copy of the allocator, its accounts
// and its queues.
func (a *Allocator) Clone() *Allocator {
	accounts := a.accounts.Clone()
	return NewAllocator(accounts, a.asks.clone(accounts), a.bids.clone(accounts))
}

// settle drops a fully consumed order from the head of q, or restores
// its place after a partial fill.
func (a *Allocator) settle(q *FeasibilityQueue, order *domain.Order) {
	if order.Remaining > 0 {
		_ = q.Reinsert(order) // order was just peeked, so it is queued
		return
	}
	_, _ = q.PopBest() // same order the loop peeked
}

// refresh re-ranks the account's orders on both sides: a fill spends one
// currency and credits the other, which can flip feasibility either way.
func (a *Allocator) refresh(id domain.AccountID) {
	a.asks.RefreshAccount(id)
	a.bids.RefreshAccount(id)
}
