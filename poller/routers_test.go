package poller

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/subgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func routerAsset(router, canonical, domain string, balance int64) *subgraph.RouterAsset {
	return &subgraph.RouterAsset{
		Router: router,
		AssetBalance: agreement.AssetBalance{
			CanonicalID: canonical,
			Domain:      domain,
			Balance:     big.NewInt(balance),
		},
	}
}

func TestBindRoutersWithBlockNumbers(t *testing.T) {
	defer goleak.VerifyNone(t)

	sg, db := new(MockSubgraph), new(MockDatabase)
	app := newMockAppContext(sg, db)

	sg.On("GetLatestBlockNumber", mock.Anything, []string{"1337", "1338"}).Return(mockBlockNumber, nil)
	sg.On("GetAssetBalances", mock.Anything, "1337").Return([]*subgraph.RouterAsset{
		routerAsset("0xr1", "0xc1", "1337", 10),
		routerAsset("0xr2", "0xc1", "1337", 20),
		routerAsset("0xr1", "0xc2", "1337", 30),
	}, nil)
	sg.On("GetAssetBalances", mock.Anything, "1338").Return([]*subgraph.RouterAsset{}, nil)
	db.On("SaveRouterBalances", mock.Anything, mock.MatchedBy(func(b []*agreement.RouterBalance) bool {
		return len(b) == 2 && b[0].Router == "0xr1" && len(b[0].Assets) == 2 && b[1].Router == "0xr2"
	})).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	err := BindRouters(ctx, app, &wg)
	cancel()
	wg.Wait()

	assert.NoError(t, err)
	sg.AssertExpectations(t)
	db.AssertExpectations(t)
}

func TestBindRoutersWithEmptyBalances(t *testing.T) {
	defer goleak.VerifyNone(t)

	sg, db := new(MockSubgraph), new(MockDatabase)
	app := newMockAppContext(sg, db)

	sg.On("GetLatestBlockNumber", mock.Anything, mock.Anything).Return(mockBlockNumber, nil)
	sg.On("GetAssetBalances", mock.Anything, mock.Anything).Return([]*subgraph.RouterAsset(nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	err := BindRouters(ctx, app, &wg)
	cancel()
	wg.Wait()

	assert.NoError(t, err)
	db.AssertNotCalled(t, "SaveRouterBalances", mock.Anything, mock.Anything)
}

func TestBindRoutersWithoutBlockNumber(t *testing.T) {
	defer goleak.VerifyNone(t)

	sg, db := new(MockSubgraph), new(MockDatabase)
	app := newMockAppContext(sg, db)

	sg.On("GetLatestBlockNumber", mock.Anything, mock.Anything).Return(mockNoBlockNumber, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	err := BindRouters(ctx, app, &wg)
	cancel()
	wg.Wait()

	assert.NoError(t, err)
	sg.AssertNotCalled(t, "GetAssetBalances", mock.Anything, mock.Anything)
	db.AssertNotCalled(t, "SaveRouterBalances", mock.Anything, mock.Anything)
}

func TestUpdateRoutersContinuesAfterDomainFailure(t *testing.T) {
	sg, db := new(MockSubgraph), new(MockDatabase)
	app := newMockAppContext(sg, db)

	errDown := errors.New("subgraph down")
	sg.On("GetLatestBlockNumber", mock.Anything, mock.Anything).Return(mockBlockNumber, nil)
	sg.On("GetAssetBalances", mock.Anything, "1337").Return([]*subgraph.RouterAsset(nil), errDown)
	sg.On("GetAssetBalances", mock.Anything, "1338").Return([]*subgraph.RouterAsset{
		routerAsset("0xr1", "0xc1", "1338", 10),
	}, nil)
	db.On("SaveRouterBalances", mock.Anything, mock.Anything).Return(nil).Once()

	err := UpdateRouters(context.Background(), app)
	assert.ErrorIs(t, err, errDown)
	db.AssertExpectations(t)
}

func TestGroupByRouter(t *testing.T) {
	balances := groupByRouter([]*subgraph.RouterAsset{
		routerAsset("0xb", "0xc1", "1337", 1),
		routerAsset("0xa", "0xc1", "1337", 2),
		routerAsset("0xb", "0xc2", "1338", 3),
	})
	require.Len(t, balances, 2)
	assert.Equal(t, "0xb", balances[0].Router)
	assert.Len(t, balances[0].Assets, 2)
	assert.Equal(t, "0xa", balances[1].Router)
	assert.Empty(t, groupByRouter(nil))
}
