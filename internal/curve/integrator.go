package curve

import "github.com/holiman/uint256"

// Cost returns the exact payment owed for minting amount starting at
// supplyBefore, via trapezoidal integration of the curve:
//
//	cost = ceil((priceAt(S) + priceAt(S+amount)) * amount / (2*SCALE))
//
// Ceiling rounding means a buyer can never underpay relative to the
// continuous integral. Zero amounts are rejected with ErrInvalidAmount.
func (p *Params) Cost(amount, supplyBefore *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	pStart, err := p.PriceAt(supplyBefore)
	if err != nil {
		return nil, err
	}
	supplyAfter, overflow := new(uint256.Int).AddOverflow(supplyBefore, amount)
	if overflow {
		return nil, ErrOverflow
	}
	pEnd, err := p.PriceAt(supplyAfter)
	if err != nil {
		return nil, err
	}
	sum, overflow := pEnd.AddOverflow(pStart, pEnd)
	if overflow {
		return nil, ErrOverflow
	}
	return mulDiv(sum, amount, twoScale, roundUp)
}

// Refund returns the payout owed for burning amount down from supplyBefore:
//
//	refund = floor((priceAt(S-amount) + priceAt(S)) * amount / (2*SCALE))
//
// Floor rounding means the reserve can never pay out more than the
// continuous integral; together with the ceiling on Cost a mint+burn round
// trip can never drain the reserve. A zero amount is a valid no-op quote
// and returns zero.
func (p *Params) Refund(amount, supplyBefore *uint256.Int) (*uint256.Int, error) {
	if amount == nil {
		return nil, ErrInvalidAmount
	}
	if amount.Gt(supplyBefore) {
		return nil, ErrInvalidAmount
	}
	if amount.IsZero() {
		return new(uint256.Int), nil
	}
	supplyAfter := new(uint256.Int).Sub(supplyBefore, amount)
	pLow, err := p.PriceAt(supplyAfter)
	if err != nil {
		return nil, err
	}
	pHigh, err := p.PriceAt(supplyBefore)
	if err != nil {
		return nil, err
	}
	sum, overflow := pHigh.AddOverflow(pLow, pHigh)
	if overflow {
		return nil, ErrOverflow
	}
	return mulDiv(sum, amount, twoScale, roundDown)
}
