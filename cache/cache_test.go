package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/common"
	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/TEENet-io/xbridge-agents/logconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAuctions runs against any AuctionsCache implementation.
func testAuctions(t *testing.T, c AuctionsCache) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	id := common.RandHexBytes32()

	_, ok, err := c.GetAuction(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	a, err := c.UpsertAuction(ctx, id, "1337", "1338", agreement.Bid{Router: "0xr1", Fee: "10"}, now)
	require.NoError(t, err)
	assert.Equal(t, agreement.AuctionStatusQueued, a.Status)
	assert.True(t, now.Equal(a.StartedAt))
	require.Len(t, a.Bids, 1)
	assert.True(t, now.Equal(a.Bids[0].ReceivedAt))

	_, err = c.UpsertAuction(ctx, id, "1337", "1338", agreement.Bid{Router: "0xr2", Fee: "8"}, now.Add(time.Second))
	require.NoError(t, err)
	// a router bidding again replaces its bid
	a, err = c.UpsertAuction(ctx, id, "1337", "1338", agreement.Bid{Router: "0xr1", Fee: "5"}, now.Add(2*time.Second))
	require.NoError(t, err)
	require.Len(t, a.Bids, 2)
	assert.Equal(t, "5", a.Bids[0].Fee)
	assert.True(t, now.Equal(a.StartedAt))

	_, err = c.UpsertAuction(ctx, id, "1337", "1338", agreement.Bid{Router: "0xr3", Fee: "-1"}, now)
	assert.Error(t, err)
	_, err = c.UpsertAuction(ctx, id, "1337", "1338", agreement.Bid{Fee: "1"}, now)
	assert.Error(t, err)

	queued, err := c.GetQueuedTransfers(ctx)
	require.NoError(t, err)
	assert.Contains(t, queued, id)

	winner := agreement.Bid{Router: "0xr1", Fee: "5", ReceivedAt: now}
	require.NoError(t, c.SetWinner(ctx, id, winner, "task-1"))

	a, ok, err = c.GetAuction(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, agreement.AuctionStatusSent, a.Status)
	assert.Equal(t, "task-1", a.TaskID)
	require.NotNil(t, a.Winner)
	assert.Equal(t, "0xr1", a.Winner.Router)

	queued, err = c.GetQueuedTransfers(ctx)
	require.NoError(t, err)
	assert.NotContains(t, queued, id)

	_, err = c.UpsertAuction(ctx, id, "1337", "1338", agreement.Bid{Router: "0xr4", Fee: "1"}, now)
	assert.ErrorIs(t, err, ErrAuctionClosed)

	other := common.RandHexBytes32()
	_, err = c.UpsertAuction(ctx, other, "1337", "1338", agreement.Bid{Router: "0xr1", Fee: "1"}, now)
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(ctx, other, agreement.AuctionStatusExpired))
	queued, err = c.GetQueuedTransfers(ctx)
	require.NoError(t, err)
	assert.NotContains(t, queued, other)

	assert.ErrorIs(t, c.SetStatus(ctx, common.RandHexBytes32(), agreement.AuctionStatusSent), ErrAuctionNotFound)
	assert.ErrorIs(t, c.SetWinner(ctx, common.RandHexBytes32(), winner, "x"), ErrAuctionNotFound)
}

func TestMemoryAuctions(t *testing.T) {
	testAuctions(t, NewMemoryAuctions())
}

func TestMemoryAuctionsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAuctions()

	a, err := m.UpsertAuction(ctx, "0x01", "1337", "1338", agreement.Bid{Router: "0xr1", Fee: "1"}, time.Now())
	require.NoError(t, err)
	a.Bids[0].Fee = "999"

	stored, _, err := m.GetAuction(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, "1", stored.Bids[0].Fee)
}

// Set XBRIDGE_TEST_REDIS_ADDR (host:port) to run against a real redis.
func TestRedisAuctions(t *testing.T) {
	addr := os.Getenv("XBRIDGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("XBRIDGE_TEST_REDIS_ADDR not set")
	}

	r, err := NewRedisAuctions(context.Background(), addr)
	require.NoError(t, err)
	defer r.Close()

	testAuctions(t, r)
}

func TestGetInstance(t *testing.T) {
	log := logconfig.NewSilentEntry("cache")

	s, err := GetInstance(context.Background(), config.RedisConfig{}, log)
	require.NoError(t, err)
	assert.IsType(t, &MemoryAuctions{}, s.Auctions)
	assert.NoError(t, s.Close())

	s, err = GetInstance(context.Background(), config.RedisConfig{Host: "localhost"}, log)
	require.NoError(t, err)
	assert.IsType(t, &MemoryAuctions{}, s.Auctions)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = GetInstance(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1}, log)
	assert.Error(t, err)
}
