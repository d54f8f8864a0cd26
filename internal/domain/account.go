package domain

import "fmt"

// AccountID is the position of an account in its AccountTable.
type AccountID int

// Account holds the balances kept on one exchange. Base is the traded
// asset (e.g. BTC), Quote the settlement currency (e.g. EUR).
//
// Accounts carry no behaviour of their own; the allocator is responsible
// for never debiting either balance below zero.
type Account struct {
	ID       AccountID
	Exchange string
	Base     float64
	Quote    float64
}

// CanSpend reports whether the account has a positive balance in the
// currency a requester spends when taking an order on the given book side:
// quote for asks (buying), base for bids (selling).
func (a *Account) CanSpend(side BookSide) bool {
	if side == BookSideAsk {
		return a.Quote > 0
	}
	return a.Base > 0
}

// AccountTable owns every account of one allocation session. Orders
// refer to accounts by AccountID only.
type AccountTable struct {
	accounts []*Account
}

// NewAccountTable creates an empty AccountTable.
func NewAccountTable() *AccountTable {
	return &AccountTable{}
}

// Add registers a new account for the exchange with the given starting
// balances and returns it.
func (t *AccountTable) Add(exchange string, base, quote float64) *Account {
	a := &Account{
		ID:       AccountID(len(t.accounts)),
		Exchange: exchange,
		Base:     base,
		Quote:    quote,
	}
	t.accounts = append(t.accounts, a)
	return a
}

// Get returns the account with the given id, or ErrAccountNotFound.
func (t *AccountTable) Get(id AccountID) (*Account, error) {
	if id < 0 || int(id) >= len(t.accounts) {
		return nil, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return t.accounts[id], nil
}

// MustGet is Get for ids that are known to be valid, such as those of
// orders already accepted by a queue.
func (t *AccountTable) MustGet(id AccountID) *Account {
	a, err := t.Get(id)
	if err != nil {
		panic(err)
	}
	return a
}

// All returns the accounts in id order. The slice is shared; callers
// must not append to it.
func (t *AccountTable) All() []*Account {
	return t.accounts
}

// Len returns the number of accounts.
func (t *AccountTable) Len() int {
	return len(t.accounts)
}

// Clone returns a deep copy of the table.
func (t *AccountTable) Clone() *AccountTable {
	c := &AccountTable{accounts: make([]*Account, len(t.accounts))}
	for i, a := range t.accounts {
		cp := *a
		c.accounts[i] = &cp
	}
	return c
}
