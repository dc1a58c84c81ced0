package ledger

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

var (
	// ErrSupplyUnderflow indicates a supply decrease below zero.
	ErrSupplyUnderflow = errors.New("ledger: supply underflow")
	// ErrSupplyOverflow indicates a supply increase beyond 256 bits.
	ErrSupplyOverflow = errors.New("ledger: supply overflow")
	// ErrBalanceUnderflow indicates a debit below zero.
	ErrBalanceUnderflow = errors.New("ledger: balance underflow")
	// ErrBalanceOverflow indicates a credit beyond 256 bits.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")
)

// Memory is an in-process Ledger guarded by a RWMutex. Supply starts at zero.
type Memory struct {
	mu       sync.RWMutex
	supply   *uint256.Int
	balances map[string]*uint256.Int
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		supply:   new(uint256.Int),
		balances: make(map[string]*uint256.Int),
	}
}

func (m *Memory) Supply() *uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(uint256.Int).Set(m.supply)
}

func (m *Memory) IncreaseSupply(delta *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, overflow := new(uint256.Int).AddOverflow(m.supply, delta)
	if overflow {
		return ErrSupplyOverflow
	}
	m.supply = next
	return nil
}

func (m *Memory) DecreaseSupply(delta *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delta.Gt(m.supply) {
		return ErrSupplyUnderflow
	}
	m.supply = new(uint256.Int).Sub(m.supply, delta)
	return nil
}

func (m *Memory) Credit(account string, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[account]
	if !ok {
		bal = new(uint256.Int)
	}
	next, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	m.balances[account] = next
	return nil
}

func (m *Memory) Debit(account string, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[account]
	if !ok || amount.Gt(bal) {
		return ErrBalanceUnderflow
	}
	m.balances[account] = new(uint256.Int).Sub(bal, amount)
	return nil
}

func (m *Memory) BalanceOf(account string) *uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bal, ok := m.balances[account]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}
