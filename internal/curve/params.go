package curve

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ScaleDecimals is the number of decimals in the engine's fixed-point unit.
// Prices, supplies, amounts and payments all share this unit.
const ScaleDecimals = 18

var (
	// Scale is the fixed-point unit, 10^18.
	Scale = uint256.MustFromDecimal("1000000000000000000")

	twoScale = uint256.MustFromDecimal("2000000000000000000")
	one      = uint256.NewInt(1)
	two      = uint256.NewInt(2)
)

// Params holds the linear curve coefficients. Immutable after construction;
// accessors return copies.
type Params struct {
	initialPrice *uint256.Int
	slope        *uint256.Int
}

// NewParams validates and builds curve parameters. A curve with both a zero
// initial price and a zero slope prices every amount at zero and cannot be
// inverted, so it is rejected outright.
func NewParams(initialPrice, slope *uint256.Int) (*Params, error) {
	if initialPrice == nil || slope == nil {
		return nil, errors.New("curve: initial price and slope are required")
	}
	if initialPrice.IsZero() && slope.IsZero() {
		return nil, errors.New("curve: degenerate curve, initial price and slope both zero")
	}
	return &Params{
		initialPrice: new(uint256.Int).Set(initialPrice),
		slope:        new(uint256.Int).Set(slope),
	}, nil
}

// ParamsFromDecimal builds parameters from decimal string representations,
// as they arrive from configuration.
func ParamsFromDecimal(initialPrice, slope string) (*Params, error) {
	p, err := uint256.FromDecimal(initialPrice)
	if err != nil {
		return nil, fmt.Errorf("curve: parse initial price %q: %w", initialPrice, err)
	}
	s, err := uint256.FromDecimal(slope)
	if err != nil {
		return nil, fmt.Errorf("curve: parse slope %q: %w", slope, err)
	}
	return NewParams(p, s)
}

// InitialPrice returns a copy of the price at zero supply.
func (p *Params) InitialPrice() *uint256.Int {
	return new(uint256.Int).Set(p.initialPrice)
}

// Slope returns a copy of the per-token price increment.
func (p *Params) Slope() *uint256.Int {
	return new(uint256.Int).Set(p.slope)
}
