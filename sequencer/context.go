// Package sequencer runs the auction side of the bridge: routers bid on
// transfers over http, and each round's winner is relayed to the destination.
package sequencer

import (
	"context"
	"strconv"
	"sync"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/cache"
	"github.com/TEENet-io/xbridge-agents/chaindata"
	"github.com/TEENet-io/xbridge-agents/chainreader"
	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/TEENet-io/xbridge-agents/contracts"
	"github.com/TEENet-io/xbridge-agents/logconfig"
	"github.com/TEENet-io/xbridge-agents/relayer"
	"github.com/TEENet-io/xbridge-agents/subgraph"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

// ChainReader is what the sequencer reads from the chains themselves.
type ChainReader interface {
	GetBlockNumber(ctx context.Context, domain string) (uint64, error)
	GetChainID(ctx context.Context, domain string) (uint64, error)
}

// Relayer dispatches a transaction and returns the relayer task id.
type Relayer interface {
	Send(ctx context.Context, chainID uint64, target string, data []byte) (string, error)
}

var (
	_ ChainReader = (*chainreader.ChainReader)(nil)
	_ Relayer     = (*relayer.Relayer)(nil)
)

type Adapters struct {
	Cache       *cache.StoreManager
	Subgraph    *subgraph.Reader
	ChainReader ChainReader
	Contracts   *contracts.Interfaces
	Relayer     Relayer
}

// AppContext is built once per process and handed to the bindings.
type AppContext struct {
	Logger    *logger.Entry
	Config    *config.SequencerConfig
	ChainData map[string]chaindata.ChainData
	Clock     agreement.Clock
	Adapters  Adapters
}

// MakeSequencer assembles the context and starts the http server and the
// auctions binding. Goroutines left running are tracked in wg; they stop when
// ctx is done, after which the adapters are closed.
func MakeSequencer(ctx context.Context, override *config.SequencerConfig, wg *sync.WaitGroup) (*AppContext, error) {
	chainDataURL := config.LookupChainDataURL("")
	if override != nil {
		chainDataURL = override.ChainDataURL
	}
	chainData, err := chaindata.GetChainData(ctx, chainDataURL)
	if err != nil {
		logger.WithError(err).Error("failed to get chain data")
		return nil, err
	}

	cfg := override
	if cfg == nil {
		if cfg, err = config.LoadSequencerConfig(""); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := logconfig.NewLogger(cfg.LogLevel, cfg.Environment == config.EnvProduction)
	if err != nil {
		return nil, err
	}

	app := &AppContext{
		Logger:    l.WithField("module", "sequencer"),
		Config:    cfg,
		ChainData: chainData,
		Clock:     agreement.SystemClock{},
	}
	log := app.Logger.WithField("requestId", uuid.NewString())

	store, err := SetupCache(ctx, app)
	if err != nil {
		return nil, err
	}
	app.Adapters.Cache = store

	if app.Adapters.Subgraph, err = SetupSubgraphReader(ctx, app); err != nil {
		store.Close()
		return nil, err
	}

	chains := chainreader.NewChainReader(cfg.Chains, app.Logger)
	app.Adapters.ChainReader = chains

	if app.Adapters.Contracts, err = contracts.NewInterfaces(); err != nil {
		store.Close()
		chains.Close()
		return nil, err
	}

	app.Adapters.Relayer = relayer.NewRelayer(cfg.Relayer, app.Logger)

	var bindings sync.WaitGroup
	if err := BindServer(ctx, app, &bindings); err != nil {
		store.Close()
		chains.Close()
		return nil, err
	}
	BindAuctions(ctx, app, &bindings)

	wg.Add(1)
	go func() {
		defer wg.Done()
		bindings.Wait()
		chains.Close()
		if err := store.Close(); err != nil {
			app.Logger.WithError(err).Warn("failed to close cache")
		}
	}()

	log.WithFields(logger.Fields{
		"port":   cfg.Server.Port,
		"chains": cfg.Domains(),
	}).Info("Sequencer boot complete!")

	return app, nil
}

// SetupCache connects the auctions store.
func SetupCache(ctx context.Context, app *AppContext) (*cache.StoreManager, error) {
	return cache.GetInstance(ctx, app.Config.Redis, app.Logger)
}

// SetupSubgraphReader builds the reader for the configured domains and drops
// every domain whose subgraph is unsupported from app.Config.Chains.
func SetupSubgraphReader(ctx context.Context, app *AppContext) (*subgraph.Reader, error) {
	reader, err := subgraph.Create(
		ctx,
		chaindata.Filter(app.ChainData, app.Config.Domains()),
		app.Config.Environment,
		app.Config.SubgraphPrefix,
		app.Config.SubgraphOverrides(),
		app.Logger,
	)
	if err != nil {
		return nil, err
	}

	for domain, ok := range reader.Supported() {
		if ok {
			continue
		}
		app.Logger.WithField("domain", domain).Warn("Subgraph not supported, dropping domain")
		delete(app.Config.Chains, domain)
	}
	return reader, nil
}

// chainID resolves the EVM chain id of domain, from chain data first and the
// chain itself otherwise.
func (app *AppContext) chainID(ctx context.Context, domain string) (uint64, error) {
	if c, ok := app.ChainData[domain]; ok && c.ChainID != 0 {
		return c.ChainID, nil
	}
	if app.Adapters.ChainReader == nil {
		return 0, ErrUnknownChain(domain)
	}
	return app.Adapters.ChainReader.GetChainID(ctx, domain)
}

func (app *AppContext) serverAddress() (string, string) {
	return app.Config.Server.Host, strconv.Itoa(app.Config.Server.Port)
}
