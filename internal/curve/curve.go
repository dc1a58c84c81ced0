package curve

import "github.com/holiman/uint256"

// PriceAt evaluates the curve at the given supply point:
//
//	price = initialPrice + slope*supply/SCALE
//
// Pure and deterministic. Returns ErrOverflow if slope*supply does not fit
// in 256 bits before the scale-down.
func (p *Params) PriceAt(supply *uint256.Int) (*uint256.Int, error) {
	term, overflow := new(uint256.Int).MulOverflow(p.slope, supply)
	if overflow {
		return nil, ErrOverflow
	}
	term.Div(term, Scale)
	price, overflow := term.AddOverflow(term, p.initialPrice)
	if overflow {
		return nil, ErrOverflow
	}
	return price, nil
}
