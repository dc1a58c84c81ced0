package settle

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/ledger"
	"github.com/rovshanmuradov/curve-engine/internal/rail"
	"github.com/rovshanmuradov/curve-engine/internal/storage"
)

const alice = "alice"

var (
	oneToken   = uint256.MustFromDecimal("1000000000000000000")
	mintCost   = uint256.MustFromDecimal("10500000000000") // cost of one token from zero supply
	twoCost    = uint256.MustFromDecimal("20000000000000")
	seedFunds  = uint256.MustFromDecimal("100000000000000")
	zero       = new(uint256.Int)
	testLogger = zap.NewNop()
)

type fixture struct {
	engine *Engine
	ledger *ledger.Memory
	rail   *rail.Memory
	store  *storage.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	params, err := curve.ParamsFromDecimal("10000000000000", "1000000000000")
	require.NoError(t, err)

	l := ledger.NewMemory()
	r := rail.NewMemory()
	r.Fund(alice, seedFunds)
	store := storage.NewMemory()

	return &fixture{
		engine: New(params, l, r, testLogger, WithStorage(store)),
		ledger: l,
		rail:   r,
		store:  store,
	}
}

func TestMintHappyPath(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)

	assert.Equal(t, OpMint, receipt.Op)
	assert.Equal(t, oneToken.Dec(), receipt.Amount.Dec())
	assert.Equal(t, mintCost.Dec(), receipt.Cost.Dec())
	assert.True(t, receipt.ExcessRefunded.IsZero())
	assert.Equal(t, oneToken.Dec(), receipt.SupplyAfter.Dec())

	assert.Equal(t, oneToken.Dec(), f.ledger.Supply().Dec())
	assert.Equal(t, oneToken.Dec(), f.ledger.BalanceOf(alice).Dec())

	reserve, err := f.rail.Reserve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mintCost.Dec(), reserve.Dec())

	saved, err := f.store.GetSettlement(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, OpMint, saved.Op)
	assert.Equal(t, mintCost.Dec(), saved.Cost)
}

func TestMintRefundsExcessPayment(t *testing.T) {
	f := newFixture(t)
	payment := uint256.MustFromDecimal("20000000000000")

	receipt, err := f.engine.Mint(context.Background(), alice, oneToken, payment, payment)
	require.NoError(t, err)

	wantExcess := new(uint256.Int).Sub(payment, mintCost)
	assert.Equal(t, wantExcess.Dec(), receipt.ExcessRefunded.Dec())

	// Only the cost stays in the reserve; the excess went back to alice.
	reserve, err := f.rail.Reserve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mintCost.Dec(), reserve.Dec())

	wantFunds := new(uint256.Int).Sub(seedFunds, mintCost)
	assert.Equal(t, wantFunds.Dec(), f.rail.Funds(alice).Dec())
}

func TestMintSlippageExceeded(t *testing.T) {
	f := newFixture(t)
	lowBound := uint256.MustFromDecimal("10000000000000")

	_, err := f.engine.Mint(context.Background(), alice, oneToken, seedFunds, lowBound)
	assert.ErrorIs(t, err, curve.ErrSlippageExceeded)
	assert.True(t, f.ledger.Supply().IsZero(), "failed mint must not move supply")
	assert.True(t, f.ledger.BalanceOf(alice).IsZero())
}

func TestMintInsufficientPayment(t *testing.T) {
	f := newFixture(t)
	offered := uint256.MustFromDecimal("10000000000000")

	_, err := f.engine.Mint(context.Background(), alice, oneToken, offered, seedFunds)
	assert.ErrorIs(t, err, curve.ErrInsufficientPayment)
	assert.True(t, f.ledger.Supply().IsZero())
}

func TestMintInvalidAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Mint(context.Background(), alice, zero, mintCost, mintCost)
	assert.ErrorIs(t, err, curve.ErrInvalidAmount)

	_, err = f.engine.Mint(context.Background(), alice, nil, mintCost, mintCost)
	assert.ErrorIs(t, err, curve.ErrInvalidAmount)
}

func TestMintRollsBackOnCollectFailure(t *testing.T) {
	f := newFixture(t)
	f.rail.FailCollect = errors.New("rail offline")

	_, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	assert.ErrorIs(t, err, curve.ErrTransferFailed)

	assert.True(t, f.ledger.Supply().IsZero(), "supply must be rolled back")
	assert.True(t, f.ledger.BalanceOf(alice).IsZero(), "balance must be rolled back")
	assert.Equal(t, seedFunds.Dec(), f.rail.Funds(alice).Dec(), "no funds may move")
}

func TestBurnHappyPath(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)

	receipt, err := f.engine.Burn(context.Background(), alice, oneToken, zero)
	require.NoError(t, err)

	assert.Equal(t, OpBurn, receipt.Op)
	assert.Equal(t, mintCost.Dec(), receipt.Refund.Dec(), "round trip refund equals cost on this curve")
	assert.True(t, receipt.SupplyAfter.IsZero(), "supply restored to zero")
	assert.True(t, f.ledger.BalanceOf(alice).IsZero())

	// The reserve never pays out more than it collected.
	reserve, err := f.rail.Reserve(context.Background())
	require.NoError(t, err)
	assert.True(t, reserve.IsZero())
	assert.Equal(t, seedFunds.Dec(), f.rail.Funds(alice).Dec())
}

func TestBurnInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)

	tooMuch := new(uint256.Int).Add(oneToken, oneToken)
	_, err = f.engine.Burn(context.Background(), alice, tooMuch, zero)
	assert.ErrorIs(t, err, curve.ErrInsufficientBalance)
	assert.Equal(t, oneToken.Dec(), f.ledger.Supply().Dec(), "supply unchanged on failure")
}

func TestBurnSlippageExceeded(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)

	greedy := new(uint256.Int).Add(mintCost, uint256.NewInt(1))
	_, err = f.engine.Burn(context.Background(), alice, oneToken, greedy)
	assert.ErrorIs(t, err, curve.ErrSlippageExceeded)
	assert.Equal(t, oneToken.Dec(), f.ledger.Supply().Dec())
}

func TestBurnInsufficientReserve(t *testing.T) {
	f := newFixture(t)

	// Tokens exist on the ledger but the rail never collected anything.
	require.NoError(t, f.ledger.IncreaseSupply(oneToken))
	require.NoError(t, f.ledger.Credit(alice, oneToken))

	_, err := f.engine.Burn(context.Background(), alice, oneToken, zero)
	assert.ErrorIs(t, err, curve.ErrInsufficientReserve)
	assert.Equal(t, oneToken.Dec(), f.ledger.Supply().Dec())
	assert.Equal(t, oneToken.Dec(), f.ledger.BalanceOf(alice).Dec())
}

func TestBurnRollsBackOnPayOutFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)

	f.rail.FailPayOut = errors.New("rail offline")
	_, err = f.engine.Burn(context.Background(), alice, oneToken, zero)
	assert.ErrorIs(t, err, curve.ErrTransferFailed)

	assert.Equal(t, oneToken.Dec(), f.ledger.Supply().Dec(), "supply must be rolled back")
	assert.Equal(t, oneToken.Dec(), f.ledger.BalanceOf(alice).Dec(), "balance must be rolled back")
}

func TestBurnReentrancyBlocked(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)

	var reentrantErr error
	f.rail.PayOutHook = func(ctx context.Context, _ string, _ *uint256.Int) error {
		// Hostile callback from inside the payout tries to burn again.
		_, reentrantErr = f.engine.Burn(ctx, alice, oneToken, zero)
		return nil
	}

	_, err = f.engine.Burn(context.Background(), alice, oneToken, zero)
	require.NoError(t, err, "outer burn commits")
	assert.ErrorIs(t, reentrantErr, curve.ErrReentrantCall, "inner burn must be rejected")
}

func TestMintReentrancyBlocked(t *testing.T) {
	f := newFixture(t)

	var reentrantErr error
	f.rail.CollectHook = func(ctx context.Context, _ string, _ *uint256.Int) error {
		_, reentrantErr = f.engine.Mint(ctx, alice, oneToken, mintCost, mintCost)
		return nil
	}

	_, err := f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)
	assert.ErrorIs(t, reentrantErr, curve.ErrReentrantCall)
}

func TestCurrentPriceTracksSupply(t *testing.T) {
	f := newFixture(t)

	price, err := f.engine.CurrentPrice()
	require.NoError(t, err)
	assert.Equal(t, "10000000000000", price.Dec())

	_, err = f.engine.Mint(context.Background(), alice, oneToken, mintCost, mintCost)
	require.NoError(t, err)

	price, err = f.engine.CurrentPrice()
	require.NoError(t, err)
	assert.Equal(t, "11000000000000", price.Dec())
}

func TestQuotesMatchSettlement(t *testing.T) {
	f := newFixture(t)

	quoted, err := f.engine.QuoteCost(oneToken)
	require.NoError(t, err)

	receipt, err := f.engine.Mint(context.Background(), alice, oneToken, quoted, quoted)
	require.NoError(t, err)
	assert.Equal(t, quoted.Dec(), receipt.Cost.Dec())

	refundQuote, err := f.engine.QuoteRefund(oneToken)
	require.NoError(t, err)
	burnReceipt, err := f.engine.Burn(context.Background(), alice, oneToken, refundQuote)
	require.NoError(t, err)
	assert.Equal(t, refundQuote.Dec(), burnReceipt.Refund.Dec())
}

func TestQuoteTokensRoundTrip(t *testing.T) {
	f := newFixture(t)

	amount, err := f.engine.QuoteTokens(twoCost)
	require.NoError(t, err)

	receipt, err := f.engine.Mint(context.Background(), alice, amount, twoCost, twoCost)
	require.NoError(t, err)
	assert.True(t, !receipt.Cost.Gt(twoCost), "settled cost must fit the quoted budget")
}
