package curve

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqrtFloor(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"zero", "0", "0"},
		{"one", "1", "1"},
		{"two", "2", "1"},
		{"three", "3", "1"},
		{"four", "4", "2"},
		{"eight", "8", "2"},
		{"nine", "9", "3"},
		{"below perfect square", "99", "9"},
		{"perfect square", "100", "10"},
		{"above perfect square", "101", "10"},
		{"10^26", "100000000000000000000000000", "10000000000000"},
		{"non-square 29 digits", "100000000000000002000000000000", "316227766016837"},
		{"1.21e26", "121000000000000000000000000", "11000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sqrtFloor(uint256.MustFromDecimal(tt.in))
			assert.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestSqrtFloorContract(t *testing.T) {
	// r*r <= x < (r+1)*(r+1) for a spread of magnitudes.
	inputs := []string{
		"5", "17", "1000003", "999999999999999999",
		"123456789123456789123456789", "340282366920938463463374607431768211455",
	}
	for _, raw := range inputs {
		x := uint256.MustFromDecimal(raw)
		r := sqrtFloor(x)

		square := new(uint256.Int).Mul(r, r)
		require.True(t, !square.Gt(x), "r^2 must not exceed %s", raw)

		next := new(uint256.Int).Add(r, one)
		nextSquare, overflow := new(uint256.Int).MulOverflow(next, next)
		if !overflow {
			require.True(t, nextSquare.Gt(x), "(r+1)^2 must exceed %s", raw)
		}
	}
}

func TestMulDivRounding(t *testing.T) {
	ten := uint256.NewInt(10)
	three := uint256.NewInt(3)

	down, err := mulDiv(ten, one, three, roundDown)
	require.NoError(t, err)
	assert.Equal(t, "3", down.Dec())

	up, err := mulDiv(ten, one, three, roundUp)
	require.NoError(t, err)
	assert.Equal(t, "4", up.Dec())

	// Exact division is unaffected by direction.
	exactDown, err := mulDiv(uint256.NewInt(9), one, three, roundDown)
	require.NoError(t, err)
	exactUp, err := mulDiv(uint256.NewInt(9), one, three, roundUp)
	require.NoError(t, err)
	assert.True(t, exactDown.Eq(exactUp))
}

func TestMulDivWideIntermediate(t *testing.T) {
	// x*y overflows 256 bits but the quotient fits.
	x := new(uint256.Int).Lsh(one, 200)
	y := new(uint256.Int).Lsh(one, 100)
	d := new(uint256.Int).Lsh(one, 150)

	q, err := mulDiv(x, y, d, roundDown)
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Lsh(one, 150).Dec(), q.Dec())
}

func TestMulDivOverflow(t *testing.T) {
	x := new(uint256.Int).Lsh(one, 200)
	y := new(uint256.Int).Lsh(one, 200)

	_, err := mulDiv(x, y, one, roundDown)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = mulDiv(x, y, new(uint256.Int), roundDown)
	assert.ErrorIs(t, err, ErrOverflow)
}
