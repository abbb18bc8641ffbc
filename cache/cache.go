// Package cache keeps the sequencer's auctions. Redis is used when it is
// configured, an in-process store otherwise.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/config"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionClosed   = errors.New("auction is no longer accepting bids")
)

func ErrBidInvalid(reason string) error {
	return fmt.Errorf("invalid bid: %s", reason)
}

// AuctionsCache stores one auction per transfer id.
type AuctionsCache interface {
	GetAuction(ctx context.Context, transferID string) (*agreement.Auction, bool, error)
	// UpsertAuction adds bid to the auction of transferID, creating the auction on
	// the first bid. A router bidding again replaces its previous bid.
	UpsertAuction(ctx context.Context, transferID, origin, destination string, bid agreement.Bid, now time.Time) (*agreement.Auction, error)
	// GetQueuedTransfers returns the ids of auctions still accepting bids.
	GetQueuedTransfers(ctx context.Context) ([]string, error)
	SetStatus(ctx context.Context, transferID string, status agreement.AuctionStatus) error
	// SetWinner records the winning bid and the relayer task, and marks the auction Sent.
	SetWinner(ctx context.Context, transferID string, winner agreement.Bid, taskID string) error
}

type StoreManager struct {
	Auctions AuctionsCache
	closer   func() error
}

func (s *StoreManager) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// GetInstance returns the redis backed store, or the in-memory one when host
// or port is missing.
func GetInstance(ctx context.Context, cfg config.RedisConfig, log *logger.Entry) (*StoreManager, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		log.Info("Redis not configured, using in-memory cache")
		return &StoreManager{Auctions: NewMemoryAuctions()}, nil
	}

	auctions, err := NewRedisAuctions(ctx, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		log.WithError(err).Error("failed to connect to redis")
		return nil, err
	}
	log.WithFields(logger.Fields{
		"host": cfg.Host,
		"port": cfg.Port,
	}).Info("Redis connected")

	return &StoreManager{Auctions: auctions, closer: auctions.Close}, nil
}

// applyBid is shared by both stores.
func applyBid(a *agreement.Auction, transferID, origin, destination string, bid agreement.Bid, now time.Time) (*agreement.Auction, error) {
	if bid.Router == "" {
		return nil, ErrBidInvalid("missing router")
	}
	if fee, ok := bid.FeeInt(); !ok || fee.Sign() < 0 {
		return nil, ErrBidInvalid("fee must be a non-negative integer")
	}

	if a == nil {
		a = &agreement.Auction{
			TransferID:  transferID,
			Origin:      origin,
			Destination: destination,
			Status:      agreement.AuctionStatusQueued,
			StartedAt:   now,
		}
	}
	if a.Status != agreement.AuctionStatusQueued {
		return nil, ErrAuctionClosed
	}

	if bid.ReceivedAt.IsZero() {
		bid.ReceivedAt = now
	}
	for i := range a.Bids {
		if a.Bids[i].Router == bid.Router {
			a.Bids[i] = bid
			return a, nil
		}
	}
	a.Bids = append(a.Bids, bid)
	return a, nil
}
