package chainreader

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/sirupsen/logrus"
)

type ethereumClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

func ErrNoProvider(domain string) error {
	return fmt.Errorf("no rpc provider configured for domain %s", domain)
}

// ChainReader reads chain state of every configured domain. Connections are
// made on first use with the domain's first provider.
type ChainReader struct {
	mu        sync.Mutex
	providers map[string][]string
	clients   map[string]ethereumClient
	closers   []func()
	log       *logger.Entry
}

func NewChainReader(chains map[string]config.ChainConfig, log *logger.Entry) *ChainReader {
	providers := make(map[string][]string, len(chains))
	for domain, c := range chains {
		providers[domain] = c.Providers
	}
	return &ChainReader{
		providers: providers,
		clients:   make(map[string]ethereumClient),
		log:       log,
	}
}

func (r *ChainReader) client(ctx context.Context, domain string) (ethereumClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[domain]; ok {
		return c, nil
	}

	providers := r.providers[domain]
	if len(providers) == 0 {
		return nil, ErrNoProvider(domain)
	}

	c, err := ethclient.DialContext(ctx, providers[0])
	if err != nil {
		r.log.WithFields(logger.Fields{
			"domain":   domain,
			"provider": providers[0],
		}).WithError(err).Error("failed to dial provider")
		return nil, err
	}
	r.clients[domain] = c
	r.closers = append(r.closers, c.Close)
	return c, nil
}

// SetClient installs an already connected client for domain.
func (r *ChainReader) SetClient(domain string, c ethereumClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[domain] = c
}

func (r *ChainReader) GetBlockNumber(ctx context.Context, domain string) (uint64, error) {
	c, err := r.client(ctx, domain)
	if err != nil {
		return 0, err
	}
	return c.BlockNumber(ctx)
}

func (r *ChainReader) GetChainID(ctx context.Context, domain string) (uint64, error) {
	c, err := r.client(ctx, domain)
	if err != nil {
		return 0, err
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (r *ChainReader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.closers {
		c()
	}
	r.closers = nil
	r.clients = make(map[string]ethereumClient)
}
