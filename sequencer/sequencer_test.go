package sequencer

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/cache"
	"github.com/TEENet-io/xbridge-agents/chaindata"
	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/TEENet-io/xbridge-agents/contracts"
	"github.com/TEENet-io/xbridge-agents/logconfig"
	"github.com/TEENet-io/xbridge-agents/reporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	transferID1 = "0x0000000000000000000000000000000000000000000000000000000000000001"
	transferID2 = "0x0000000000000000000000000000000000000000000000000000000000000002"

	router1 = "0x1111111111111111111111111111111111111111"
	router2 = "0x2222222222222222222222222222222222222222"
	connext = "0x8e40a5b4d0bdf1dfbb1f5a0d1acf1cf0d1ba48e1"
)

var now = time.Unix(1700000000, 0).UTC()

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type MockRelayer struct {
	mock.Mock
}

func (m *MockRelayer) Send(ctx context.Context, chainID uint64, target string, data []byte) (string, error) {
	args := m.Called(ctx, chainID, target, data)
	return args.String(0), args.Error(1)
}

type MockChainReader struct {
	mock.Mock
}

func (m *MockChainReader) GetBlockNumber(ctx context.Context, domain string) (uint64, error) {
	args := m.Called(ctx, domain)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainReader) GetChainID(ctx context.Context, domain string) (uint64, error) {
	args := m.Called(ctx, domain)
	return args.Get(0).(uint64), args.Error(1)
}

func newTestApp(t *testing.T, relay Relayer) (*AppContext, *cache.MemoryAuctions) {
	ifaces, err := contracts.NewInterfaces()
	require.NoError(t, err)

	cfg := config.DefaultSequencerConfig()
	cfg.LogLevel = logconfig.LevelSilent
	cfg.Chains = map[string]config.ChainConfig{
		"1337": {},
		"1338": {Deployments: config.Deployments{Connext: connext}},
	}

	auctions := cache.NewMemoryAuctions()
	return &AppContext{
		Logger: logconfig.NewSilentEntry("sequencer"),
		Config: cfg,
		ChainData: chaindata.ToMap([]chaindata.ChainData{
			{DomainID: "1337", ChainID: 1337},
			{DomainID: "1338", ChainID: 1338},
		}),
		Clock: fixedClock{now},
		Adapters: Adapters{
			Cache:     &cache.StoreManager{Auctions: auctions},
			Contracts: ifaces,
			Relayer:   relay,
		},
	}, auctions
}

func bid(t *testing.T, auctions cache.AuctionsCache, transferID, router, fee string, at time.Time) {
	_, err := auctions.UpsertAuction(context.Background(), transferID, "1337", "1338",
		agreement.Bid{Router: router, Fee: fee, ReceivedAt: at}, at)
	require.NoError(t, err)
}

func TestPickWinner(t *testing.T) {
	tests := []struct {
		name   string
		bids   []agreement.Bid
		winner string
	}{
		{"none", nil, ""},
		{"lowest fee", []agreement.Bid{
			{Router: router1, Fee: "20", ReceivedAt: now},
			{Router: router2, Fee: "10", ReceivedAt: now.Add(time.Second)},
		}, router2},
		{"tie goes to earliest", []agreement.Bid{
			{Router: router1, Fee: "10", ReceivedAt: now.Add(time.Second)},
			{Router: router2, Fee: "10", ReceivedAt: now},
		}, router2},
		{"tie at same time goes to lowest router", []agreement.Bid{
			{Router: router2, Fee: "10", ReceivedAt: now},
			{Router: router1, Fee: "10", ReceivedAt: now},
		}, router1},
		{"invalid fee ignored", []agreement.Bid{
			{Router: router1, Fee: "abc", ReceivedAt: now},
			{Router: router2, Fee: "99", ReceivedAt: now},
		}, router2},
		{"only invalid fees", []agreement.Bid{
			{Router: router1, Fee: "-1", ReceivedAt: now},
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := pickWinner(tt.bids)
			if tt.winner == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.winner, w.Router)
		})
	}
}

func TestExecuteAuctions(t *testing.T) {
	relay := &MockRelayer{}
	app, auctions := newTestApp(t, relay)

	round := app.Config.Auction.RoundDuration
	bid(t, auctions, transferID1, router1, "20", now.Add(-2*round))
	bid(t, auctions, transferID1, router2, "10", now.Add(-2*round))
	// still within its round
	bid(t, auctions, transferID2, router1, "5", now.Add(-round/2))

	data, err := app.Adapters.Contracts.EncodeExecute(transferID1, router2)
	require.NoError(t, err)
	relay.On("Send", mock.Anything, uint64(1338), connext, data).Return("task-1", nil).Once()

	require.NoError(t, ExecuteAuctions(context.Background(), app, app.Logger))
	relay.AssertExpectations(t)

	a, ok, err := auctions.GetAuction(context.Background(), transferID1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, agreement.AuctionStatusSent, a.Status)
	assert.Equal(t, "task-1", a.TaskID)
	require.NotNil(t, a.Winner)
	assert.Equal(t, router2, a.Winner.Router)

	a, _, err = auctions.GetAuction(context.Background(), transferID2)
	require.NoError(t, err)
	assert.Equal(t, agreement.AuctionStatusQueued, a.Status)

	// a settled auction is not relayed twice
	require.NoError(t, ExecuteAuctions(context.Background(), app, app.Logger))
	relay.AssertNumberOfCalls(t, "Send", 1)
}

func TestExecuteAuctionsRelayFailureKeepsQueued(t *testing.T) {
	relay := &MockRelayer{}
	app, auctions := newTestApp(t, relay)
	bid(t, auctions, transferID1, router1, "20", now.Add(-time.Hour))

	relay.On("Send", mock.Anything, uint64(1338), connext, mock.Anything).Return("", errors.New("relayer down")).Once()

	err := ExecuteAuctions(context.Background(), app, app.Logger)
	assert.ErrorContains(t, err, "relayer down")

	a, _, err := auctions.GetAuction(context.Background(), transferID1)
	require.NoError(t, err)
	assert.Equal(t, agreement.AuctionStatusQueued, a.Status)
	assert.Nil(t, a.Winner)
}

// winnerlessAuctions fails every SetWinner.
type winnerlessAuctions struct {
	*cache.MemoryAuctions
	calls int
}

func (w *winnerlessAuctions) SetWinner(context.Context, string, agreement.Bid, string) error {
	w.calls++
	return errors.New("cache unavailable")
}

func TestExecuteAuctionsRecordFailureDoesNotRelayTwice(t *testing.T) {
	relay := &MockRelayer{}
	app, auctions := newTestApp(t, relay)
	store := &winnerlessAuctions{MemoryAuctions: auctions}
	app.Adapters.Cache = &cache.StoreManager{Auctions: store}
	bid(t, auctions, transferID1, router1, "20", now.Add(-time.Hour))

	relay.On("Send", mock.Anything, uint64(1338), connext, mock.Anything).Return("task-1", nil).Once()

	err := ExecuteAuctions(context.Background(), app, app.Logger)
	assert.ErrorContains(t, err, "cache unavailable")
	assert.Equal(t, setWinnerAttempts, store.calls)

	require.NoError(t, ExecuteAuctions(context.Background(), app, app.Logger))
	relay.AssertNumberOfCalls(t, "Send", 1)

	a, _, err := auctions.GetAuction(context.Background(), transferID1)
	require.NoError(t, err)
	assert.Equal(t, agreement.AuctionStatusSent, a.Status)
}

func TestExecuteAuctionsNoDeploymentExpires(t *testing.T) {
	relay := &MockRelayer{}
	app, auctions := newTestApp(t, relay)
	app.Config.Chains["1338"] = config.ChainConfig{}
	bid(t, auctions, transferID1, router1, "20", now.Add(-time.Hour))

	err := ExecuteAuctions(context.Background(), app, app.Logger)
	assert.ErrorContains(t, err, "no bridge deployment")
	relay.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	a, _, err := auctions.GetAuction(context.Background(), transferID1)
	require.NoError(t, err)
	assert.Equal(t, agreement.AuctionStatusExpired, a.Status)
}

func TestExecuteAuctionsChainIDFromChain(t *testing.T) {
	relay := &MockRelayer{}
	chains := &MockChainReader{}
	app, auctions := newTestApp(t, relay)
	app.ChainData = map[string]chaindata.ChainData{}
	app.Adapters.ChainReader = chains
	bid(t, auctions, transferID1, router1, "20", now.Add(-time.Hour))

	chains.On("GetChainID", mock.Anything, "1338").Return(uint64(31337), nil).Once()
	relay.On("Send", mock.Anything, uint64(31337), connext, mock.Anything).Return("task-2", nil).Once()

	require.NoError(t, ExecuteAuctions(context.Background(), app, app.Logger))
	chains.AssertExpectations(t)
	relay.AssertExpectations(t)
}

func TestBindAuctions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	relay := &MockRelayer{}
	app, auctions := newTestApp(t, relay)
	app.Config.Auction.CheckInterval = 10 * time.Millisecond
	bid(t, auctions, transferID1, router1, "20", now.Add(-time.Hour))
	relay.On("Send", mock.Anything, uint64(1338), connext, mock.Anything).Return("task-1", nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	BindAuctions(ctx, app, &wg)

	require.Eventually(t, func() bool {
		a, _, err := auctions.GetAuction(context.Background(), transferID1)
		return err == nil && a.Status == agreement.AuctionStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
	relay.AssertExpectations(t)
}

func TestSetupSubgraphReader(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"_meta":{"block":{"number":100}}}}`))
	}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	app, _ := newTestApp(t, &MockRelayer{})
	app.Config.Chains = map[string]config.ChainConfig{
		"1337": {Subgraph: ok.URL},
		"1338": {Subgraph: down.URL},
		"5555": {},
	}

	reader, err := SetupSubgraphReader(context.Background(), app)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"1337": true, "1338": false, "5555": false}, reader.Supported())
	assert.Equal(t, []string{"1337"}, app.Config.Domains())
}

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func sequencerConfig(port int) *config.SequencerConfig {
	cfg := config.DefaultSequencerConfig()
	cfg.LogLevel = logconfig.LevelSilent
	cfg.Server = config.ServerConfig{Host: "127.0.0.1", Port: port}
	cfg.Auction.CheckInterval = 10 * time.Millisecond
	return cfg
}

func TestMakeSequencer(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	app, err := MakeSequencer(ctx, sequencerConfig(port), &wg)
	require.NoError(t, err)
	assert.NotNil(t, app.Adapters.Cache)
	assert.NotNil(t, app.Adapters.Subgraph)
	assert.NotNil(t, app.Adapters.ChainReader)
	assert.NotNil(t, app.Adapters.Contracts)
	assert.NotNil(t, app.Adapters.Relayer)
	assert.NotEmpty(t, app.ChainData)

	body, err := reporter.NewHttpReader("http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port))).GetPing()
	require.NoError(t, err)
	assert.Equal(t, "pong\n", body)

	cancel()
	wg.Wait()
}

func TestMakeSequencerInvalidConfig(t *testing.T) {
	cfg := sequencerConfig(0)
	var wg sync.WaitGroup

	_, err := MakeSequencer(context.Background(), cfg, &wg)
	assert.ErrorIs(t, err, config.ErrServerPort)
}

func TestMakeSequencerPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var wg sync.WaitGroup
	_, err = MakeSequencer(context.Background(), sequencerConfig(ln.Addr().(*net.TCPAddr).Port), &wg)
	assert.Error(t, err)
	wg.Wait()
}
