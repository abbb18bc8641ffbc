package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
)

// MemoryAuctions is the in-process AuctionsCache.
type MemoryAuctions struct {
	mu       sync.RWMutex
	auctions map[string]*agreement.Auction
}

var _ AuctionsCache = (*MemoryAuctions)(nil)

func NewMemoryAuctions() *MemoryAuctions {
	return &MemoryAuctions{auctions: make(map[string]*agreement.Auction)}
}

func (m *MemoryAuctions) GetAuction(_ context.Context, transferID string) (*agreement.Auction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.auctions[transferID]
	if !ok {
		return nil, false, nil
	}
	return copyAuction(a), true, nil
}

func (m *MemoryAuctions) UpsertAuction(_ context.Context, transferID, origin, destination string, bid agreement.Bid, now time.Time) (*agreement.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *agreement.Auction
	if a, ok := m.auctions[transferID]; ok {
		current = copyAuction(a)
	}
	a, err := applyBid(current, transferID, origin, destination, bid, now)
	if err != nil {
		return nil, err
	}
	m.auctions[transferID] = a
	return copyAuction(a), nil
}

func (m *MemoryAuctions) GetQueuedTransfers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, a := range m.auctions {
		if a.Status == agreement.AuctionStatusQueued {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryAuctions) SetStatus(_ context.Context, transferID string, status agreement.AuctionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[transferID]
	if !ok {
		return ErrAuctionNotFound
	}
	a.Status = status
	return nil
}

func (m *MemoryAuctions) SetWinner(_ context.Context, transferID string, winner agreement.Bid, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[transferID]
	if !ok {
		return ErrAuctionNotFound
	}
	a.Winner = &winner
	a.TaskID = taskID
	a.Status = agreement.AuctionStatusSent
	return nil
}

func copyAuction(a *agreement.Auction) *agreement.Auction {
	c := *a
	c.Bids = append([]agreement.Bid(nil), a.Bids...)
	if a.Winner != nil {
		w := *a.Winner
		c.Winner = &w
	}
	return &c
}
