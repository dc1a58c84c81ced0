package rail

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientFunds indicates the payer could not cover a collect.
	ErrInsufficientFunds = errors.New("rail: insufficient funds")
	// ErrReserveDepleted indicates a payout larger than the held reserve.
	ErrReserveDepleted = errors.New("rail: reserve depleted")
)

// Memory is an in-process rail. Accounts are funded up front; Collect moves
// funds into the reserve and PayOut moves them back out. The hook fields let
// tests inject transfer failures and reentrant callbacks.
type Memory struct {
	mu      sync.Mutex
	reserve *uint256.Int
	funds   map[string]*uint256.Int

	// FailCollect and FailPayOut, when set, reject the corresponding
	// transfer before any funds move. Used by tests to exercise the
	// engine's rollback path.
	FailCollect error
	FailPayOut  error

	// CollectHook and PayOutHook, when set, run after the corresponding
	// transfer succeeds, the way a counterparty callback would. They are
	// where tests mount reentrant calls back into the engine.
	CollectHook func(ctx context.Context, from string, amount *uint256.Int) error
	PayOutHook  func(ctx context.Context, to string, amount *uint256.Int) error
}

// NewMemory returns an empty in-memory rail.
func NewMemory() *Memory {
	return &Memory{
		reserve: new(uint256.Int),
		funds:   make(map[string]*uint256.Int),
	}
}

// Fund seeds an account with spendable value.
func (m *Memory) Fund(account string, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.funds[account]
	if !ok {
		bal = new(uint256.Int)
	}
	m.funds[account] = new(uint256.Int).Add(bal, amount)
}

// Funds returns the spendable value held by account.
func (m *Memory) Funds(account string) *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.funds[account]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}

func (m *Memory) Collect(ctx context.Context, from string, amount *uint256.Int) error {
	if m.FailCollect != nil {
		return m.FailCollect
	}
	m.mu.Lock()
	bal, ok := m.funds[from]
	if !ok || amount.Gt(bal) {
		m.mu.Unlock()
		return ErrInsufficientFunds
	}
	m.funds[from] = new(uint256.Int).Sub(bal, amount)
	m.reserve.Add(m.reserve, amount)
	m.mu.Unlock()

	if m.CollectHook != nil {
		if err := m.CollectHook(ctx, from, amount); err != nil {
			m.refund(from, amount)
			return err
		}
	}
	return nil
}

func (m *Memory) PayOut(ctx context.Context, to string, amount *uint256.Int) error {
	if m.FailPayOut != nil {
		return m.FailPayOut
	}
	m.mu.Lock()
	if amount.Gt(m.reserve) {
		m.mu.Unlock()
		return ErrReserveDepleted
	}
	m.reserve.Sub(m.reserve, amount)
	bal, ok := m.funds[to]
	if !ok {
		bal = new(uint256.Int)
	}
	m.funds[to] = new(uint256.Int).Add(bal, amount)
	m.mu.Unlock()

	if m.PayOutHook != nil {
		if err := m.PayOutHook(ctx, to, amount); err != nil {
			m.reclaim(to, amount)
			return err
		}
	}
	return nil
}

func (m *Memory) Reserve(ctx context.Context) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(uint256.Int).Set(m.reserve), nil
}

func (m *Memory) refund(account string, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserve.Sub(m.reserve, amount)
	bal, ok := m.funds[account]
	if !ok {
		bal = new(uint256.Int)
	}
	m.funds[account] = new(uint256.Int).Add(bal, amount)
}

// reclaim reverses a payout whose hook rejected it, pulling the funds back
// into the reserve.
func (m *Memory) reclaim(account string, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserve.Add(m.reserve, amount)
	bal, ok := m.funds[account]
	if !ok {
		bal = new(uint256.Int)
	}
	m.funds[account] = new(uint256.Int).Sub(bal, amount)
}
