// Package ledger owns the supply counter and balance bookkeeping the
// settlement engine reads and writes. The engine never caches supply; it
// re-reads it at the top of every pricing call.
package ledger

import "github.com/holiman/uint256"

// Ledger is the bookkeeping collaborator consumed by the settlement engine.
// Implementations must make Supply an atomic snapshot with respect to the
// mutating calls.
type Ledger interface {
	// Supply returns the current total supply.
	Supply() *uint256.Int
	// IncreaseSupply adds delta to the total supply.
	IncreaseSupply(delta *uint256.Int) error
	// DecreaseSupply subtracts delta from the total supply. Fails if the
	// supply would go negative.
	DecreaseSupply(delta *uint256.Int) error
	// Credit adds amount to an account balance.
	Credit(account string, amount *uint256.Int) error
	// Debit removes amount from an account balance. Fails if the balance
	// would go negative.
	Debit(account string, amount *uint256.Int) error
	// BalanceOf returns the balance held by account.
	BalanceOf(account string) *uint256.Int
}
