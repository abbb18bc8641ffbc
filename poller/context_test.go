package poller

import (
	"context"
	"sync"
	"testing"

	"github.com/TEENet-io/xbridge-agents/chaindata"
	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/TEENet-io/xbridge-agents/database"
	"github.com/stretchr/testify/assert"
)

func TestMakeTransfersPollerInvalidDatabaseURL(t *testing.T) {
	cfg := mockConfig()
	cfg.Database.URL = "invalid_URI"

	var wg sync.WaitGroup
	app, err := MakeTransfersPoller(context.Background(), cfg, &wg)
	assert.Nil(t, app)
	assert.ErrorIs(t, err, database.ErrDatabaseConnection)
	wg.Wait()
}

func TestMakeRoutersPollerInvalidConfig(t *testing.T) {
	cfg := mockConfig()
	cfg.PollInterval = 0

	var wg sync.WaitGroup
	_, err := MakeRoutersPoller(context.Background(), cfg, &wg)
	assert.ErrorIs(t, err, config.ErrPollInterval)
}

func TestAllowedChainData(t *testing.T) {
	all := mockChainData()
	all["2221"] = chaindata.ChainData{Name: "kovan", DomainID: "2221"}

	// nothing configured: every domain with a known subgraph
	allowed := allowedChainData(mockConfig(), all)
	assert.Len(t, allowed, 1)
	assert.Contains(t, allowed, "2221")

	cfg := mockConfig()
	cfg.Chains = map[string]config.ChainConfig{"1337": {}, "5555": {}}
	allowed = allowedChainData(cfg, all)
	assert.Len(t, allowed, 2)
	assert.Equal(t, uint64(1337), allowed["1337"].ChainID)
	assert.Equal(t, "5555", allowed["5555"].DomainID)

	cfg = mockConfig()
	cfg.Subgraphs = map[string]string{"1338": "http://localhost:8000"}
	allowed = allowedChainData(cfg, all)
	assert.Contains(t, allowed, "1338")
}

func TestSupportedDomains(t *testing.T) {
	assert.Equal(t, []string{"1337", "2000"}, supportedDomains(map[string]bool{"2000": true, "1338": false, "1337": true}))
}
