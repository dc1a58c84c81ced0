package curve

import "github.com/holiman/uint256"

// TokensForPayment inverts the cost integral: it returns the largest amount
// whose Cost at supplyBefore does not exceed payment.
//
// Substituting the trapezoid into cost(a) = payment gives the quadratic
//
//	slope*a^2 + 2*b*SCALE*a - 2*payment*SCALE^2 = 0, b = priceAt(S)
//
// whose positive root is a = SCALE*(sqrt(b^2 + 2*slope*payment) - b)/slope.
// Both the square root and the final division round down, so the result can
// never overestimate what the payment affords. With slope = 0 the quadratic
// degenerates to a = payment*SCALE/b.
//
// A zero payment is rejected with ErrInvalidAmount; a positive payment whose
// affordable amount floors to zero fails with ErrInsufficientPayment.
func (p *Params) TokensForPayment(payment, supplyBefore *uint256.Int) (*uint256.Int, error) {
	if payment == nil || payment.IsZero() {
		return nil, ErrInvalidAmount
	}
	b, err := p.PriceAt(supplyBefore)
	if err != nil {
		return nil, err
	}

	var amount *uint256.Int
	if p.slope.IsZero() {
		// Linear case: every unit costs b/SCALE.
		amount, err = mulDiv(payment, Scale, b, roundDown)
		if err != nil {
			return nil, err
		}
	} else {
		radicand, overflow := new(uint256.Int).MulOverflow(b, b)
		if overflow {
			return nil, ErrOverflow
		}
		term, overflow := new(uint256.Int).MulOverflow(p.slope, payment)
		if overflow {
			return nil, ErrOverflow
		}
		term, overflow = term.MulOverflow(term, two)
		if overflow {
			return nil, ErrOverflow
		}
		radicand, overflow = radicand.AddOverflow(radicand, term)
		if overflow {
			return nil, ErrOverflow
		}
		root := sqrtFloor(radicand)
		// root >= b always: radicand >= b^2 and the square root is monotonic.
		root.Sub(root, b)
		amount, err = mulDiv(Scale, root, p.slope, roundDown)
		if err != nil {
			return nil, err
		}
	}
	if amount.IsZero() {
		return nil, ErrInsufficientPayment
	}
	return amount, nil
}
