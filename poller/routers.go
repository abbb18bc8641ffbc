package poller

import (
	"context"
	"sync"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/subgraph"
	logger "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// BindRouters polls router balances once, then every PollInterval.
func BindRouters(ctx context.Context, app *AppContext, wg *sync.WaitGroup) error {
	return bind(ctx, app, wg, "bindRouters", updateRouters)
}

// UpdateRouters runs one routers poll.
func UpdateRouters(ctx context.Context, app *AppContext) error {
	return runOnce(ctx, app, "updateRouters", updateRouters)
}

func updateRouters(ctx context.Context, app *AppContext, log *logger.Entry) error {
	blocks, err := app.Adapters.Subgraph.GetLatestBlockNumber(ctx, app.Domains)
	if err != nil {
		return err
	}

	var errs error
	for _, domain := range app.Domains {
		if _, ok := blocks[domain]; !ok {
			log.WithField("domain", domain).Debug("no block number for domain, skipping")
			continue
		}

		assets, err := app.Adapters.Subgraph.GetAssetBalances(ctx, domain)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		balances := groupByRouter(assets)
		if len(balances) == 0 {
			continue
		}
		if err := app.Adapters.Database.SaveRouterBalances(ctx, balances); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		log.WithFields(logger.Fields{
			"domain":  domain,
			"routers": len(balances),
		}).Info("Saved router balances")
	}

	return errs
}

// groupByRouter keeps the order in which routers first appear.
func groupByRouter(assets []*subgraph.RouterAsset) []*agreement.RouterBalance {
	var (
		balances []*agreement.RouterBalance
		index    = make(map[string]*agreement.RouterBalance)
	)
	for _, a := range assets {
		rb, ok := index[a.Router]
		if !ok {
			rb = &agreement.RouterBalance{Router: a.Router}
			index[a.Router] = rb
			balances = append(balances, rb)
		}
		rb.Assets = append(rb.Assets, a.AssetBalance)
	}
	return balances
}
