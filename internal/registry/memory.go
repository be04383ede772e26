package registry

import (
	"context"
	"fmt"
	"sync"

	"autoliquid/internal/services/auction"
)

// Memory serves both collaborators from process memory. It backs local
// development and tests.
type Memory struct {
	mu      sync.RWMutex
	dealers map[string]auction.Dealer
	reports map[string]auction.CarDetails
}

var (
	_ auction.DealerRegistry    = (*Memory)(nil)
	_ auction.InspectionReports = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		dealers: make(map[string]auction.Dealer),
		reports: make(map[string]auction.CarDetails),
	}
}

func (m *Memory) PutDealer(d auction.Dealer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dealers[d.ID] = d
}

func (m *Memory) PutReport(id string, c auction.CarDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[id] = c
}

func (m *Memory) Lookup(_ context.Context, dealerID string) (auction.Dealer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dealers[dealerID]
	if !ok {
		return auction.Dealer{}, fmt.Errorf("dealer %s: %w", dealerID, auction.ErrNotFound)
	}
	return d, nil
}

func (m *Memory) Snapshot(_ context.Context, reportID string) (auction.CarDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.reports[reportID]
	if !ok {
		return auction.CarDetails{}, fmt.Errorf("inspection report %s: %w", reportID, auction.ErrNotFound)
	}
	return c, nil
}
