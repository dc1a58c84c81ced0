package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

// ErrNotFound indicates no settlement matched the query.
var ErrNotFound = errors.New("storage: settlement not found")

// Memory keeps settlement history in process. Used when no postgres DSN is
// configured, and by tests.
type Memory struct {
	mu          sync.RWMutex
	settlements []*models.Settlement
}

// NewMemory returns an empty in-memory history.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveSettlement(_ context.Context, s *models.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	clone.ID = uint(len(m.settlements) + 1)
	m.settlements = append(m.settlements, &clone)
	return nil
}

func (m *Memory) GetSettlement(_ context.Context, receiptID string) (*models.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.settlements {
		if s.ReceiptID == receiptID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListSettlements(_ context.Context, account string, limit, offset int) ([]*models.Settlement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest first, matching the postgres ordering.
	var matched []*models.Settlement
	for i := len(m.settlements) - 1; i >= 0; i-- {
		s := m.settlements[i]
		if account != "" && s.Account != account {
			continue
		}
		matched = append(matched, s)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*models.Settlement, len(matched))
	for i, s := range matched {
		clone := *s
		out[i] = &clone
	}
	return out, nil
}

func (m *Memory) RunMigrations() error { return nil }

func (m *Memory) Close() error { return nil }

var _ Storage = (*Memory)(nil)
