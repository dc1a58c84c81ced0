// Package storage persists committed settlement receipts. Persistence is
// best-effort bookkeeping: a write failure never unwinds a settlement.
package storage

import (
	"context"

	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

// Storage records and queries settlement history.
type Storage interface {
	SaveSettlement(ctx context.Context, s *models.Settlement) error
	GetSettlement(ctx context.Context, receiptID string) (*models.Settlement, error)
	ListSettlements(ctx context.Context, account string, limit, offset int) ([]*models.Settlement, error)
	RunMigrations() error
	Close() error
}
