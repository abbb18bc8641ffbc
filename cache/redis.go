package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/redis/go-redis/v9"
)

const (
	auctionKeyPrefix = "auctions:"
	queuedKey        = "auctions:queued"
	maxTxRetries     = 10
)

// RedisAuctions stores each auction as a JSON value and keeps the queued
// transfer ids in a set.
type RedisAuctions struct {
	client *redis.Client
}

var _ AuctionsCache = (*RedisAuctions)(nil)

func NewRedisAuctions(ctx context.Context, addr string) (*RedisAuctions, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisAuctions{client: client}, nil
}

func (r *RedisAuctions) Close() error {
	return r.client.Close()
}

func auctionKey(transferID string) string {
	return auctionKeyPrefix + transferID
}

func (r *RedisAuctions) GetAuction(ctx context.Context, transferID string) (*agreement.Auction, bool, error) {
	return getAuction(ctx, r.client, transferID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getAuction(ctx context.Context, g getter, transferID string) (*agreement.Auction, bool, error) {
	data, err := g.Get(ctx, auctionKey(transferID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var a agreement.Auction
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

func (r *RedisAuctions) UpsertAuction(ctx context.Context, transferID, origin, destination string, bid agreement.Bid, now time.Time) (*agreement.Auction, error) {
	var result *agreement.Auction
	err := r.update(ctx, transferID, func(current *agreement.Auction) (*agreement.Auction, error) {
		a, err := applyBid(current, transferID, origin, destination, bid, now)
		result = a
		return a, err
	})
	return result, err
}

func (r *RedisAuctions) GetQueuedTransfers(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, queuedKey).Result()
}

func (r *RedisAuctions) SetStatus(ctx context.Context, transferID string, status agreement.AuctionStatus) error {
	return r.update(ctx, transferID, func(a *agreement.Auction) (*agreement.Auction, error) {
		if a == nil {
			return nil, ErrAuctionNotFound
		}
		a.Status = status
		return a, nil
	})
}

func (r *RedisAuctions) SetWinner(ctx context.Context, transferID string, winner agreement.Bid, taskID string) error {
	return r.update(ctx, transferID, func(a *agreement.Auction) (*agreement.Auction, error) {
		if a == nil {
			return nil, ErrAuctionNotFound
		}
		a.Winner = &winner
		a.TaskID = taskID
		a.Status = agreement.AuctionStatusSent
		return a, nil
	})
}

// update applies fn to the stored auction inside an optimistic transaction and
// keeps the queued set in line with the new status.
func (r *RedisAuctions) update(ctx context.Context, transferID string, fn func(*agreement.Auction) (*agreement.Auction, error)) error {
	key := auctionKey(transferID)

	txf := func(tx *redis.Tx) error {
		current, _, err := getAuction(ctx, tx, transferID)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if next.Status == agreement.AuctionStatusQueued {
				pipe.SAdd(ctx, queuedKey, transferID)
			} else {
				pipe.SRem(ctx, queuedKey, transferID)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}
