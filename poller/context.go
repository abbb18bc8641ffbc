// Package poller is the cartographer: it copies transfer and router state
// from the domains' subgraphs into the database, one poll per interval.
package poller

import (
	"context"
	"sort"
	"sync"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/chaindata"
	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/TEENet-io/xbridge-agents/database"
	"github.com/TEENet-io/xbridge-agents/logconfig"
	"github.com/TEENet-io/xbridge-agents/subgraph"
	logger "github.com/sirupsen/logrus"
)

// SubgraphReader is the part of the subgraph reader the bindings use.
type SubgraphReader interface {
	GetLatestBlockNumber(ctx context.Context, domains []string) (map[string]uint64, error)
	GetOriginTransfers(ctx context.Context, params map[string]subgraph.QueryParams) ([]*agreement.XTransfer, error)
	GetDestinationTransfersByIDs(ctx context.Context, domain string, ids []string) ([]*agreement.XTransfer, error)
	GetDestinationTransfersByExecuteTimestamp(ctx context.Context, params map[string]subgraph.QueryParams) ([]*agreement.XTransfer, error)
	GetDestinationTransfersByReconcileTimestamp(ctx context.Context, params map[string]subgraph.QueryParams) ([]*agreement.XTransfer, error)
	GetAssetBalances(ctx context.Context, domain string) ([]*subgraph.RouterAsset, error)
}

var _ SubgraphReader = (*subgraph.Reader)(nil)

type Adapters struct {
	Subgraph SubgraphReader
	Database database.Database
}

// AppContext is built once per process and handed to the bindings.
type AppContext struct {
	Logger    *logger.Entry
	Config    *config.CartographerConfig
	ChainData map[string]chaindata.ChainData
	Domains   []string
	Adapters  Adapters
}

// BindFunc starts a binding. It must return once its first poll is done and
// track any goroutine it leaves behind in wg.
type BindFunc func(ctx context.Context, app *AppContext, wg *sync.WaitGroup) error

// MakeTransfersPoller builds the context and starts the transfers binding.
func MakeTransfersPoller(ctx context.Context, override *config.CartographerConfig, wg *sync.WaitGroup) (*AppContext, error) {
	return makePoller(ctx, "transfers", override, wg, BindTransfers)
}

// MakeRoutersPoller builds the context and starts the routers binding.
func MakeRoutersPoller(ctx context.Context, override *config.CartographerConfig, wg *sync.WaitGroup) (*AppContext, error) {
	return makePoller(ctx, "routers", override, wg, BindRouters)
}

func makePoller(
	ctx context.Context,
	name string,
	override *config.CartographerConfig,
	wg *sync.WaitGroup,
	bind BindFunc,
) (*AppContext, error) {
	cfg := override
	if cfg == nil {
		var err error
		if cfg, err = config.LoadCartographerConfig(""); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := logconfig.NewLogger(cfg.LogLevel, cfg.Environment == config.EnvProduction)
	if err != nil {
		return nil, err
	}
	log := l.WithField("module", "cartographer-"+name)

	chainData, err := chaindata.GetChainData(ctx, cfg.ChainDataURL)
	if err != nil {
		log.WithError(err).Error("failed to get chain data")
		return nil, err
	}

	db, err := database.NewDatabase(ctx, cfg.Database.URL, log)
	if err != nil {
		return nil, err
	}

	allowed := allowedChainData(cfg, chainData)
	reader, err := subgraph.Create(ctx, allowed, cfg.Environment, cfg.SubgraphPrefix, cfg.SubgraphOverrides(), log)
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &AppContext{
		Logger:    log,
		Config:    cfg,
		ChainData: allowed,
		Domains:   supportedDomains(reader.Supported()),
		Adapters: Adapters{
			Subgraph: reader,
			Database: db,
		},
	}
	log.WithField("domains", app.Domains).Info("Poller context ready")

	var bindings sync.WaitGroup
	if err := bind(ctx, app, &bindings); err != nil {
		db.Close()
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		bindings.Wait()
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	return app, nil
}

// allowedChainData returns the chain data of the configured domains. With no
// chains configured, every known domain with a subgraph is polled. Configured
// domains missing from chain data get a bare entry so local chains work.
func allowedChainData(cfg *config.CartographerConfig, all map[string]chaindata.ChainData) map[string]chaindata.ChainData {
	domains := cfg.Domains()
	if len(domains) == 0 {
		for d := range all {
			if _, err := subgraph.GetPrefixForDomain(d); err == nil {
				domains = append(domains, d)
			}
		}
		for d := range cfg.Subgraphs {
			domains = append(domains, d)
		}
	}

	return chaindata.Filter(all, domains)
}

func supportedDomains(supported map[string]bool) []string {
	domains := make([]string, 0, len(supported))
	for d, ok := range supported {
		if ok {
			domains = append(domains, d)
		}
	}
	sort.Strings(domains)
	return domains
}
