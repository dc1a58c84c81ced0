// Package rail abstracts the value-transfer collaborator: collecting payment
// on mint and disbursing refunds on burn. Rails are untrusted. A transfer may
// fail, block, or call back into the engine, which is why the engine holds
// its settlement guard across the whole transfer.
package rail

import (
	"context"

	"github.com/holiman/uint256"
)

// PaymentRail moves value between accounts and the engine's reserve.
type PaymentRail interface {
	// Collect pulls amount from the account into the reserve.
	Collect(ctx context.Context, from string, amount *uint256.Int) error
	// PayOut disburses amount from the reserve to the account.
	PayOut(ctx context.Context, to string, amount *uint256.Int) error
	// Reserve reports the value currently available to cover payouts.
	Reserve(ctx context.Context) (*uint256.Int, error)
}
