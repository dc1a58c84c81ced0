package curve

import "github.com/holiman/uint256"

// rounding selects the direction a truncating division is adjusted in.
type rounding int

const (
	roundDown rounding = iota
	roundUp
)

// mulDiv computes x*y/d with a 512-bit intermediate product, so the
// multiplication itself cannot wrap; only a quotient that does not fit in
// 256 bits is an overflow. The remainder decides the roundUp adjustment.
func mulDiv(x, y, d *uint256.Int, dir rounding) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrOverflow
	}
	q, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if dir == roundUp {
		rem := new(uint256.Int).MulMod(x, y, d)
		if !rem.IsZero() {
			q, overflow = q.AddOverflow(q, one)
			if overflow {
				return nil, ErrOverflow
			}
		}
	}
	return q, nil
}

// sqrtFloor returns the largest integer r with r*r <= x, via Newton's method.
// The initial guess 2^ceil(bitlen/2) is an upper bound on the root, and the
// iteration decreases monotonically from above, so the loop terminates at the
// floor exactly.
func sqrtFloor(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return new(uint256.Int)
	}
	z := new(uint256.Int).Lsh(one, uint(x.BitLen()+1)/2)
	y := new(uint256.Int)
	for {
		y.Div(x, z)
		y.Add(y, z)
		y.Rsh(y, 1)
		if y.Cmp(z) >= 0 {
			return z
		}
		z, y = y, z
	}
}
