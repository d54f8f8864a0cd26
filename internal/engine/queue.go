package engine

import (
	"fmt"

	"github.com/efreitasn/metaexchange/internal/domain"
	"github.com/google/btree"
)

// queueEntry is one order resting in a FeasibilityQueue. The feasibility
// flag is a snapshot of the owning account's balance taken when the entry
// was (re)inserted; it is part of the tree key, so it only changes through
// a delete and reinsert.
type queueEntry struct {
	feasible bool
	price    float64
	seq      uint64
	order    *domain.Order
}

// PriceLevel is an aggregated run of orders at one price in queue order.
type PriceLevel struct {
	Price       float64
	TotalAmount float64
	OrderCount  int
	Feasible    bool
}

// askLess orders the ask side: feasible before infeasible, then price
// ascending, then insertion order. Min() returns the cheapest ask whose
// account can pay for it.
func askLess(a, b queueEntry) bool {
	if a.feasible != b.feasible {
		return a.feasible
	}
	if a.feasible && a.price != b.price {
		return a.price < b.price
	}
	return a.seq < b.seq
}

// bidLess orders the bid side: feasible before infeasible, then price
// descending, then insertion order. Min() returns the richest bid whose
// account can deliver the base asset.
func bidLess(a, b queueEntry) bool {
	if a.feasible != b.feasible {
		return a.feasible
	}
	if a.feasible && a.price != b.price {
		return a.price > b.price
	}
	return a.seq < b.seq
}

// FeasibilityQueue is a priority queue over the orders of one book side,
// ranked by executable price with orders whose account cannot currently
// trade pushed to the back. Not safe for concurrent use.
type FeasibilityQueue struct {
	side      domain.BookSide
	accounts  *domain.AccountTable
	tree      *btree.BTreeG[queueEntry]
	index     map[*domain.Order]queueEntry
	byAccount map[domain.AccountID]map[*domain.Order]struct{}
	seq       uint64
}

// NewFeasibilityQueue creates an empty queue for the given book side.
// Balances are read from accounts whenever feasibility is evaluated.
func NewFeasibilityQueue(side domain.BookSide, accounts *domain.AccountTable) *FeasibilityQueue {
	const degree = 32
	less := askLess
	if side == domain.BookSideBid {
		less = bidLess
	}
	return &FeasibilityQueue{
		side:      side,
		accounts:  accounts,
		tree:      btree.NewG[queueEntry](degree, less),
		index:     make(map[*domain.Order]queueEntry),
		byAccount: make(map[domain.AccountID]map[*domain.Order]struct{}),
	}
}

// Side returns the book side this queue holds.
func (q *FeasibilityQueue) Side() domain.BookSide {
	return q.side
}

// Len returns the number of queued orders.
func (q *FeasibilityQueue) Len() int {
	return q.tree.Len()
}

// Enqueue adds an order to the queue.
func (q *FeasibilityQueue) Enqueue(order *domain.Order) error {
	if order.Side != q.side {
		return fmt.Errorf("order %q is on the %s side, queue holds %ss: %w", order.ID, order.Side, q.side, domain.ErrWrongSide)
	}
	if err := order.Validate(); err != nil {
		return err
	}
	if _, err := q.accounts.Get(order.Account); err != nil {
		return fmt.Errorf("order %q: %w", order.ID, err)
	}
	if _, ok := q.index[order]; ok {
		return fmt.Errorf("order %q: %w", order.ID, domain.ErrDuplicateOrder)
	}

	q.seq++
	q.insert(queueEntry{price: order.Price, seq: q.seq, order: order})

	owned := q.byAccount[order.Account]
	if owned == nil {
		owned = make(map[*domain.Order]struct{})
		q.byAccount[order.Account] = owned
	}
	owned[order] = struct{}{}
	return nil
}

// PeekBest returns the highest-priority order without removing it.
func (q *FeasibilityQueue) PeekBest() (*domain.Order, error) {
	entry, ok := q.tree.Min()
	if !ok {
		return nil, domain.ErrEmptyQueue
	}
	return entry.order, nil
}

// PopBest removes and returns the highest-priority order.
func (q *FeasibilityQueue) PopBest() (*domain.Order, error) {
	entry, ok := q.tree.DeleteMin()
	if !ok {
		return nil, domain.ErrEmptyQueue
	}
	q.forget(entry.order)
	return entry.order, nil
}

// Reinsert restores heap order for an order whose remaining amount was
// reduced in place. An order with nothing left is dropped instead. The
// order keeps its original insertion sequence.
func (q *FeasibilityQueue) Reinsert(order *domain.Order) error {
	entry, ok := q.index[order]
	if !ok {
		return fmt.Errorf("order %q is not queued", order.ID)
	}
	q.tree.Delete(entry)
	if order.Remaining <= 0 {
		q.forget(order)
		return nil
	}
	q.insert(entry)
	return nil
}

// RefreshAccount re-evaluates feasibility for every queued order owned by
// the account, moving those whose flag changed. Call it after the
// account's balances change.
func (q *FeasibilityQueue) RefreshAccount(id domain.AccountID) {
	account, err := q.accounts.Get(id)
	if err != nil {
		return
	}
	feasible := account.CanSpend(q.side)
	for order := range q.byAccount[id] {
		entry := q.index[order]
		if entry.feasible == feasible {
			continue
		}
		q.tree.Delete(entry)
		entry.feasible = feasible
		q.tree.ReplaceOrInsert(entry)
		q.index[order] = entry
	}
}

// Walk iterates orders in priority order. The callback returns true to
// continue, false to stop.
func (q *FeasibilityQueue) Walk(fn func(*domain.Order) bool) {
	q.tree.Ascend(func(entry queueEntry) bool {
		return fn(entry.order)
	})
}

// TopLevels returns up to n aggregated price levels in priority order.
// Adjacent orders share a level when both price and feasibility match.
func (q *FeasibilityQueue) TopLevels(n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, min(n, q.Len()))
	q.tree.Ascend(func(entry queueEntry) bool {
		if len(levels) > 0 {
			last := &levels[len(levels)-1]
			if last.Price == entry.price && last.Feasible == entry.feasible {
				last.TotalAmount += entry.order.Remaining
				last.OrderCount++
				return true
			}
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:       entry.price,
			TotalAmount: entry.order.Remaining,
			OrderCount:  1,
			Feasible:    entry.feasible,
		})
		return true
	})
	return levels
}

// clone returns a deep copy of the queue bound to accounts, which must be
// a clone of the table this queue reads from.
func (q *FeasibilityQueue) clone(accounts *domain.AccountTable) *FeasibilityQueue {
	c := NewFeasibilityQueue(q.side, accounts)
	c.seq = q.seq
	q.tree.Ascend(func(entry queueEntry) bool {
		cp := *entry.order
		entry.order = &cp
		c.tree.ReplaceOrInsert(entry)
		c.index[&cp] = entry
		owned := c.byAccount[cp.Account]
		if owned == nil {
			owned = make(map[*domain.Order]struct{})
			c.byAccount[cp.Account] = owned
		}
		owned[&cp] = struct{}{}
		return true
	})
	return c
}

// insert stores entry with a freshly evaluated feasibility flag.
func (q *FeasibilityQueue) insert(entry queueEntry) {
	entry.feasible = q.accounts.MustGet(entry.order.Account).CanSpend(q.side)
	q.tree.ReplaceOrInsert(entry)
	q.index[entry.order] = entry
}

func (q *FeasibilityQueue) forget(order *domain.Order) {
	delete(q.index, order)
	if owned := q.byAccount[order.Account]; owned != nil {
		delete(owned, order)
		if len(owned) == 0 {
			delete(q.byAccount, order.Account)
		}
	}
}
