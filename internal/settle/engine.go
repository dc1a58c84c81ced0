// Package settle orchestrates mint and burn settlements against the curve.
// Every mutating operation follows the same discipline: compute and validate
// all deltas first, commit the ledger mutation second, and touch the payment
// rail last, with a non-reentrant guard held across the whole sequence.
package settle

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/ledger"
	"github.com/rovshanmuradov/curve-engine/internal/metrics"
	"github.com/rovshanmuradov/curve-engine/internal/rail"
	"github.com/rovshanmuradov/curve-engine/internal/storage"
)

// Engine is the settlement guard. One engine instance owns one curve.
type Engine struct {
	params  *curve.Params
	ledger  ledger.Ledger
	rail    rail.PaymentRail
	store   storage.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger

	// inFlight is the reentrancy guard. It stays set for the full
	// compute -> mutate -> transfer sequence, so a rail callback that
	// re-enters Mint or Burn fails with ErrReentrantCall instead of
	// observing half-updated state.
	inFlight atomic.Bool
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithStorage enables receipt persistence.
func WithStorage(store storage.Storage) Option {
	return func(e *Engine) { e.store = store }
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds a settlement engine over the given curve and collaborators.
func New(params *curve.Params, l ledger.Ledger, r rail.PaymentRail, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		params: params,
		ledger: l,
		rail:   r,
		logger: logger.Named("settle"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentPrice returns the unit price at the current supply. Read-only,
// safe to call concurrently with settlements.
func (e *Engine) CurrentPrice() (*uint256.Int, error) {
	return e.params.PriceAt(e.ledger.Supply())
}

// QuoteCost prices a prospective mint at the current supply.
func (e *Engine) QuoteCost(amount *uint256.Int) (*uint256.Int, error) {
	return e.params.Cost(amount, e.ledger.Supply())
}

// QuoteRefund prices a prospective burn at the current supply.
func (e *Engine) QuoteRefund(amount *uint256.Int) (*uint256.Int, error) {
	return e.params.Refund(amount, e.ledger.Supply())
}

// QuoteTokens returns the largest amount the payment can buy at the current
// supply.
func (e *Engine) QuoteTokens(payment *uint256.Int) (*uint256.Int, error) {
	return e.params.TokensForPayment(payment, e.ledger.Supply())
}

// Mint settles a purchase of amount tokens. The caller offers payment and
// bounds the acceptable cost with maxPayment; any excess over the computed
// cost is returned through the rail after all internal bookkeeping is done.
func (e *Engine) Mint(ctx context.Context, account string, amount, payment, maxPayment *uint256.Int) (*Receipt, error) {
	started := time.Now()
	receipt, err := e.mint(ctx, account, amount, payment, maxPayment)
	e.observe(OpMint, started, err)
	return receipt, err
}

func (e *Engine) mint(ctx context.Context, account string, amount, payment, maxPayment *uint256.Int) (*Receipt, error) {
	if amount == nil || amount.IsZero() {
		return nil, curve.ErrInvalidAmount
	}
	if payment == nil || maxPayment == nil {
		return nil, curve.ErrInvalidAmount
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, curve.ErrReentrantCall
	}
	defer e.inFlight.Store(false)

	supply := e.ledger.Supply()
	cost, err := e.params.Cost(amount, supply)
	if err != nil {
		return nil, err
	}
	if cost.Gt(maxPayment) {
		return nil, curve.ErrSlippageExceeded
	}
	if payment.Lt(cost) {
		return nil, curve.ErrInsufficientPayment
	}

	// Effects: supply and balance move together before any external call.
	if err := e.ledger.IncreaseSupply(amount); err != nil {
		return nil, fmt.Errorf("increase supply: %w", err)
	}
	if err := e.ledger.Credit(account, amount); err != nil {
		e.mustRollbackSupply(amount, false)
		return nil, fmt.Errorf("credit %s: %w", account, err)
	}

	// Interactions: collect the full offered payment, then return the
	// excess over cost last, after all internal bookkeeping is final.
	if err := e.rail.Collect(ctx, account, payment); err != nil {
		e.rollbackMint(account, amount)
		return nil, fmt.Errorf("%w: collect: %v", curve.ErrTransferFailed, err)
	}
	excess := new(uint256.Int).Sub(payment, cost)
	if !excess.IsZero() {
		if err := e.rail.PayOut(ctx, account, excess); err != nil {
			e.rollbackMint(account, amount)
			if payErr := e.rail.PayOut(ctx, account, payment); payErr != nil {
				e.logger.Error("Failed to return collected payment after aborted mint",
					zap.String("account", account),
					zap.String("payment", payment.Dec()),
					zap.Error(payErr))
			}
			return nil, fmt.Errorf("%w: refund excess: %v", curve.ErrTransferFailed, err)
		}
	}

	receipt := &Receipt{
		ID:             uuid.NewString(),
		Op:             OpMint,
		Account:        account,
		Amount:         new(uint256.Int).Set(amount),
		Cost:           cost,
		ExcessRefunded: excess,
		SupplyAfter:    e.ledger.Supply(),
		SettledAt:      time.Now().UTC(),
	}
	e.commit(ctx, receipt,
		zap.String("cost", cost.Dec()),
		zap.String("excess_refunded", excess.Dec()))
	return receipt, nil
}

// Burn settles a sale of amount tokens. The refund is computed before any
// state changes; minRefund is the caller's slippage bound.
func (e *Engine) Burn(ctx context.Context, account string, amount, minRefund *uint256.Int) (*Receipt, error) {
	started := time.Now()
	receipt, err := e.burn(ctx, account, amount, minRefund)
	e.observe(OpBurn, started, err)
	return receipt, err
}

func (e *Engine) burn(ctx context.Context, account string, amount, minRefund *uint256.Int) (*Receipt, error) {
	if amount == nil || amount.IsZero() {
		return nil, curve.ErrInvalidAmount
	}
	if minRefund == nil {
		minRefund = new(uint256.Int)
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, curve.ErrReentrantCall
	}
	defer e.inFlight.Store(false)

	if amount.Gt(e.ledger.BalanceOf(account)) {
		return nil, curve.ErrInsufficientBalance
	}
	supply := e.ledger.Supply()
	refund, err := e.params.Refund(amount, supply)
	if err != nil {
		return nil, err
	}
	reserve, err := e.rail.Reserve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reserve query: %v", curve.ErrTransferFailed, err)
	}
	if reserve.Lt(refund) {
		return nil, curve.ErrInsufficientReserve
	}
	if refund.Lt(minRefund) {
		return nil, curve.ErrSlippageExceeded
	}

	if err := e.ledger.DecreaseSupply(amount); err != nil {
		return nil, fmt.Errorf("decrease supply: %w", err)
	}
	if err := e.ledger.Debit(account, amount); err != nil {
		e.mustRollbackSupply(amount, true)
		return nil, fmt.Errorf("debit %s: %w", account, err)
	}

	if err := e.rail.PayOut(ctx, account, refund); err != nil {
		e.rollbackBurn(account, amount)
		return nil, fmt.Errorf("%w: payout: %v", curve.ErrTransferFailed, err)
	}

	receipt := &Receipt{
		ID:          uuid.NewString(),
		Op:          OpBurn,
		Account:     account,
		Amount:      new(uint256.Int).Set(amount),
		Refund:      refund,
		SupplyAfter: e.ledger.Supply(),
		SettledAt:   time.Now().UTC(),
	}
	e.commit(ctx, receipt, zap.String("refund", refund.Dec()))
	return receipt, nil
}

// rollbackMint undoes the supply increase and balance credit of a mint whose
// transfer step failed.
func (e *Engine) rollbackMint(account string, amount *uint256.Int) {
	if err := e.ledger.Debit(account, amount); err != nil {
		e.logger.Error("Rollback debit failed", zap.String("account", account), zap.Error(err))
	}
	e.mustRollbackSupply(amount, false)
}

// rollbackBurn undoes the supply decrease and balance debit of a burn whose
// payout failed.
func (e *Engine) rollbackBurn(account string, amount *uint256.Int) {
	if err := e.ledger.Credit(account, amount); err != nil {
		e.logger.Error("Rollback credit failed", zap.String("account", account), zap.Error(err))
	}
	e.mustRollbackSupply(amount, true)
}

// mustRollbackSupply reverses a supply adjustment that already succeeded.
// increase selects the direction of the original adjustment being undone.
func (e *Engine) mustRollbackSupply(amount *uint256.Int, increase bool) {
	var err error
	if increase {
		err = e.ledger.IncreaseSupply(amount)
	} else {
		err = e.ledger.DecreaseSupply(amount)
	}
	if err != nil {
		e.logger.Error("Supply rollback failed", zap.Error(err))
	}
}

func (e *Engine) commit(ctx context.Context, receipt *Receipt, fields ...zap.Field) {
	e.metrics.SetSupply(approxFloat(receipt.SupplyAfter))
	e.logger.Info("Settlement committed",
		append([]zap.Field{
			zap.String("receipt_id", receipt.ID),
			zap.String("op", receipt.Op),
			zap.String("account", receipt.Account),
			zap.String("amount", receipt.Amount.Dec()),
			zap.String("supply_after", receipt.SupplyAfter.Dec()),
		}, fields...)...)

	if e.store == nil {
		return
	}
	if err := e.store.SaveSettlement(ctx, receipt.Model()); err != nil {
		e.metrics.StorageError()
		e.logger.Error("Failed to persist receipt",
			zap.String("receipt_id", receipt.ID),
			zap.Error(err))
	}
}

func (e *Engine) observe(op string, started time.Time, err error) {
	outcome := metrics.OutcomeCommitted
	if err != nil {
		outcome = metrics.OutcomeAborted
	}
	e.metrics.ObserveSettlement(op, outcome, time.Since(started).Seconds())
}

func approxFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
