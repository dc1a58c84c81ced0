package settle

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

// Operation kinds recorded on receipts.
const (
	OpMint = "mint"
	OpBurn = "burn"
)

// Receipt describes one committed settlement.
type Receipt struct {
	ID             string
	Op             string
	Account        string
	Amount         *uint256.Int
	Cost           *uint256.Int // mint only
	ExcessRefunded *uint256.Int // mint only
	Refund         *uint256.Int // burn only
	SupplyAfter    *uint256.Int
	SettledAt      time.Time
}

// Model converts the receipt into its storage representation.
func (r *Receipt) Model() *models.Settlement {
	s := &models.Settlement{
		ReceiptID:   r.ID,
		Op:          r.Op,
		Account:     r.Account,
		Amount:      r.Amount.Dec(),
		SupplyAfter: r.SupplyAfter.Dec(),
		SettledAt:   r.SettledAt,
	}
	if r.Cost != nil {
		s.Cost = r.Cost.Dec()
	}
	if r.ExcessRefunded != nil {
		s.ExcessRefunded = r.ExcessRefunded.Dec()
	}
	if r.Refund != nil {
		s.Refund = r.Refund.Dec()
	}
	return s
}
