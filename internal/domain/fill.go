package domain

import "time"

// Fill is one line of an execution plan: take Amount at Price on the
// given exchange.
type Fill struct {
	Side     Side
	Price    float64
	Amount   float64
	Account  AccountID
	Exchange string
}

// Plan is the result of one buy or sell request. Remaining > 0 means the
// request could only be partially satisfied.
type Plan struct {
	ID        string
	Side      Side
	Requested float64
	Remaining float64
	Fills     []Fill
	CreatedAt time.Time
}

// Filled returns the total base amount across all fills.
func (p *Plan) Filled() float64 {
	var total float64
	for _, f := range p.Fills {
		total += f.Amount
	}
	return total
}

// Partial reports whether part of the request went unfilled.
func (p *Plan) Partial() bool {
	return p.Remaining > 0
}

// Cost returns the total quote value of all fills.
func (p *Plan) Cost() float64 {
	var total float64
	for _, f := range p.Fills {
		total += f.Price * f.Amount
	}
	return total
}

// AveragePrice computes the volume-weighted average fill price as
// sum(price × amount) / sum(amount). Returns (0, false) when the plan
// has no fills.
func (p *Plan) AveragePrice() (float64, bool) {
	filled := p.Filled()
	if len(p.Fills) == 0 || filled == 0 {
		return 0, false
	}
	return p.Cost() / filled, true
}
