package auction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// BidCommit carries everything CommitBid writes in one atomic step.
type BidCommit struct {
	Bid           Bid
	NewCurrentBid int64
	NewEndTime    time.Time
	NewTotalBids  int64
}

// Winner identifies the dealer recorded on a SOLD auction.
type Winner struct {
	DealerID    string
	DisplayName string
}

// AuctionStore is the single source of truth for auctions and bids. Every
// mutation of an existing auction is a compare-and-commit against Version.
type AuctionStore interface {
	Create(ctx context.Context, a *Auction) error
	Get(ctx context.Context, auctionID string) (*Auction, error)
	CommitBid(ctx context.Context, auctionID string, expectedVersion int64, c BidCommit) (*Auction, *Bid, error)
	CommitLifecycleTransition(ctx context.Context, auctionID string, expectedVersion int64, newStatus Status, winner *Winner) (*Auction, error)
	ListBids(ctx context.Context, auctionID string) ([]Bid, error)
	ListAuctions(ctx context.Context, f ListFilter) ([]Auction, error)
}

// MemoryStore is a concurrency-safe in-memory AuctionStore.
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]*Auction
	bids     map[string][]Bid // auctionID -> bids in commit order
	now      func() time.Time
}

var _ AuctionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]*Auction),
		bids:     make(map[string][]Bid),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, a *Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[a.ID]; ok {
		return fmt.Errorf("create auction %s: %w", a.ID, ErrConflict)
	}
	cp := *a
	if cp.Version == 0 {
		cp.Version = 1
	}
	s.auctions[a.ID] = &cp
	a.Version = cp.Version
	return nil
}

func (s *MemoryStore) Get(_ context.Context, auctionID string) (*Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("get auction %s: %w", auctionID, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) CommitBid(_ context.Context, auctionID string, expectedVersion int64, c BidCommit) (*Auction, *Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, nil, fmt.Errorf("commit bid on auction %s: %w", auctionID, ErrNotFound)
	}
	if a.Version != expectedVersion {
		return nil, nil, fmt.Errorf("commit bid on auction %s at version %d (stored %d): %w",
			auctionID, expectedVersion, a.Version, ErrConflict)
	}

	a.CurrentBid = c.NewCurrentBid
	if c.NewEndTime.After(a.EndTime) {
		a.EndTime = c.NewEndTime
	}
	a.TotalBids = c.NewTotalBids
	a.Version++
	a.UpdatedAt = s.now()

	bid := c.Bid
	bid.AuctionID = auctionID
	s.bids[auctionID] = append(s.bids[auctionID], bid)

	cp := *a
	return &cp, &bid, nil
}

func (s *MemoryStore) CommitLifecycleTransition(_ context.Context, auctionID string, expectedVersion int64, newStatus Status, winner *Winner) (*Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("transition auction %s: %w", auctionID, ErrNotFound)
	}
	if a.Version != expectedVersion {
		return nil, fmt.Errorf("transition auction %s at version %d (stored %d): %w",
			auctionID, expectedVersion, a.Version, ErrConflict)
	}

	a.Status = newStatus
	if newStatus == StatusSold && winner != nil {
		a.WinnerID = winner.DealerID
		a.WinnerDisplayName = winner.DisplayName
	}
	a.Version++
	a.UpdatedAt = s.now()

	cp := *a
	return &cp, nil
}

// ListBids returns the ledger newest first.
func (s *MemoryStore) ListBids(_ context.Context, auctionID string) ([]Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, ErrNotFound)
	}
	src := s.bids[auctionID]
	out := make([]Bid, len(src))
	for i := range src {
		out[len(src)-1-i] = src[i]
	}
	return out, nil
}

func (s *MemoryStore) ListAuctions(_ context.Context, f ListFilter) ([]Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.due(a) {
			continue
		}
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].EndTime.Equal(list[j].EndTime) {
			return list[i].ID < list[j].ID
		}
		return list[i].EndTime.Before(list[j].EndTime)
	})

	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return []Auction{}, nil
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(list) {
		list = list[:f.Limit]
	}
	return list, nil
}
