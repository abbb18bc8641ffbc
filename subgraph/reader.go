package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/chaindata"
	"github.com/avast/retry-go/v4"
	graphql "github.com/hasura/go-graphql-client"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"

	hostedService  = "https://api.thegraph.com/subgraphs/name/"
	productionName = "xbridge/amarok-runtime-v0"
	stagingName    = "xbridge/amarok-runtime-staging"

	DefaultPageSize = 1000
	requestTimeout  = 15 * time.Second
)

var (
	retryAttempts = retry.Attempts(3)
	retryDelay    = retry.Delay(200 * time.Millisecond)
	retryLastErr  = retry.LastErrorOnly(true)
)

// QueryParams bounds a per-domain subgraph query. LatestNonce is used by
// origin queries (exclusive), FromTimestamp by destination queries (inclusive).
type QueryParams struct {
	MaxBlockNumber uint64
	LatestNonce    uint64
	FromTimestamp  uint64
	OrderDirection agreement.OrderDirection
}

// RouterAsset is one asset balance together with the router holding it.
// AssetBalance.Domain is the domain the balance is held on; CanonicalDomain is
// the asset's home domain.
type RouterAsset struct {
	Router          string
	CanonicalDomain string
	agreement.AssetBalance
}

type domainSubgraph struct {
	url       string
	client    *graphql.Client
	supported bool
}

// Reader queries the subgraph of every allowed domain.
type Reader struct {
	subgraphs map[string]*domainSubgraph
	pageSize  int
	log       *logger.Entry
}

func ErrDomainNotSupported(domain string) error {
	return fmt.Errorf("no supported subgraph for domain %s", domain)
}

func ErrEnvironmentInvalid(env string) error {
	return fmt.Errorf("invalid subgraph environment %q, expected %s or %s", env, EnvProduction, EnvStaging)
}

// SubgraphURL resolves the endpoint of a domain's subgraph. An explicit
// override wins, otherwise the url is derived from the domain prefix.
func SubgraphURL(domain, environment, prefixOverride string, overrides map[string]string) (string, error) {
	if u := overrides[domain]; u != "" {
		return u, nil
	}

	prefix, err := GetPrefixForDomain(domain)
	if err != nil {
		return "", err
	}

	name := productionName
	if environment == EnvStaging {
		name = stagingName
	}
	if prefixOverride != "" {
		name = prefixOverride
	}
	return hostedService + name + "-" + prefix, nil
}

// Create builds a client per allowed domain and checks it with a `_meta` query. Domains without a
// subgraph or whose check fails are kept but reported unsupported.
func Create(
	ctx context.Context,
	allowedChainData map[string]chaindata.ChainData,
	environment string,
	prefixOverride string,
	overrides map[string]string,
	log *logger.Entry,
) (*Reader, error) {
	if environment == "" {
		environment = EnvProduction
	}
	if environment != EnvProduction && environment != EnvStaging {
		return nil, ErrEnvironmentInvalid(environment)
	}

	r := &Reader{
		subgraphs: make(map[string]*domainSubgraph, len(allowedChainData)),
		pageSize:  DefaultPageSize,
		log:       log,
	}
	httpClient := &http.Client{Timeout: requestTimeout}

	for domain := range allowedChainData {
		url, err := SubgraphURL(domain, environment, prefixOverride, overrides)
		if err != nil {
			log.WithField("domain", domain).Warn("no subgraph for domain")
			r.subgraphs[domain] = &domainSubgraph{}
			continue
		}
		r.subgraphs[domain] = &domainSubgraph{
			url:    url,
			client: graphql.NewClient(url, httpClient),
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for domain, s := range r.subgraphs {
		if s.client == nil {
			continue
		}
		domain, s := domain, s
		g.Go(func() error {
			var meta metaResponse
			err := r.do(gctx, s.client, metaQuery, nil, &meta)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithFields(logger.Fields{
					"domain": domain,
					"url":    s.url,
				}).WithError(err).Warn("subgraph check failed")
				return nil
			}
			s.supported = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return r, nil
}

// Supported reports per allowed domain whether its subgraph can be queried.
func (r *Reader) Supported() map[string]bool {
	m := make(map[string]bool, len(r.subgraphs))
	for domain, s := range r.subgraphs {
		m[domain] = s.supported
	}
	return m
}

func (r *Reader) SetPageSize(n int) {
	if n > 0 {
		r.pageSize = n
	}
}

// GetLatestBlockNumber returns the block each subgraph has indexed up to.
// Domains that are unsupported or fail to answer are left out of the map.
func (r *Reader) GetLatestBlockNumber(ctx context.Context, domains []string) (map[string]uint64, error) {
	var (
		mu     sync.Mutex
		blocks = make(map[string]uint64, len(domains))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, domain := range domains {
		domain := domain
		g.Go(func() error {
			var meta metaResponse
			if err := r.exec(gctx, domain, metaQuery, nil, &meta); err != nil {
				r.log.WithField("domain", domain).WithError(err).Debug("no block number")
				return nil
			}
			mu.Lock()
			blocks[domain] = meta.Meta.Block.Number
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, ctx.Err()
}

// GetOriginTransfers returns, per domain, at most one page of transfers with a
// nonce above params.LatestNonce. The next poll resumes from the stored nonce.
func (r *Reader) GetOriginTransfers(ctx context.Context, params map[string]QueryParams) ([]*agreement.XTransfer, error) {
	return r.fanOut(ctx, params, func(ctx context.Context, domain string, p QueryParams) ([]*agreement.XTransfer, error) {
		dir, err := p.OrderDirection.Normalize()
		if err != nil {
			return nil, err
		}

		var resp struct {
			OriginTransfers []originTransferEntity `json:"originTransfers"`
		}
		vars := map[string]interface{}{
			"nonce":          strconv.FormatUint(p.LatestNonce, 10),
			"maxBlockNumber": strconv.FormatUint(p.MaxBlockNumber, 10),
			"first":          r.pageSize,
			"orderDirection": strings.ToLower(string(dir)),
		}
		if err := r.exec(ctx, domain, originTransfersQuery, vars, &resp); err != nil {
			return nil, err
		}

		transfers := make([]*agreement.XTransfer, 0, len(resp.OriginTransfers))
		for i := range resp.OriginTransfers {
			x, err := resp.OriginTransfers[i].toXTransfer()
			if err != nil {
				return nil, err
			}
			transfers = append(transfers, x)
		}
		return transfers, nil
	})
}

// GetDestinationTransfersByIDs looks the given transfers up on their destination domain.
func (r *Reader) GetDestinationTransfersByIDs(ctx context.Context, domain string, ids []string) ([]*agreement.XTransfer, error) {
	var transfers []*agreement.XTransfer
	for start := 0; start < len(ids); start += r.pageSize {
		end := start + r.pageSize
		if end > len(ids) {
			end = len(ids)
		}

		var resp struct {
			DestinationTransfers []destinationTransferEntity `json:"destinationTransfers"`
		}
		vars := map[string]interface{}{
			"ids":   ids[start:end],
			"first": r.pageSize,
		}
		if err := r.exec(ctx, domain, destinationTransfersByIDsQuery, vars, &resp); err != nil {
			return nil, err
		}

		page, err := destinationTransfers(resp.DestinationTransfers)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, page...)
	}
	return transfers, nil
}

func (r *Reader) GetDestinationTransfersByExecuteTimestamp(ctx context.Context, params map[string]QueryParams) ([]*agreement.XTransfer, error) {
	return r.fanOut(ctx, params, r.destinationByTimestamp(destinationTransfersByExecuteTimestampQuery))
}

func (r *Reader) GetDestinationTransfersByReconcileTimestamp(ctx context.Context, params map[string]QueryParams) ([]*agreement.XTransfer, error) {
	return r.fanOut(ctx, params, r.destinationByTimestamp(destinationTransfersByReconcileTimestampQuery))
}

// GetAssetBalances pages through every router asset balance indexed on domain.
func (r *Reader) GetAssetBalances(ctx context.Context, domain string) ([]*RouterAsset, error) {
	var balances []*RouterAsset
	for skip := 0; ; skip += r.pageSize {
		var resp struct {
			AssetBalances []assetBalanceEntity `json:"assetBalances"`
		}
		vars := map[string]interface{}{
			"first": r.pageSize,
			"skip":  skip,
		}
		if err := r.exec(ctx, domain, assetBalancesQuery, vars, &resp); err != nil {
			return nil, err
		}

		for i := range resp.AssetBalances {
			b, err := resp.AssetBalances[i].toRouterAsset(domain)
			if err != nil {
				return nil, err
			}
			balances = append(balances, b)
		}
		if len(resp.AssetBalances) < r.pageSize {
			return balances, nil
		}
	}
}

type domainQuery func(ctx context.Context, domain string, p QueryParams) ([]*agreement.XTransfer, error)

func (r *Reader) destinationByTimestamp(query string) domainQuery {
	return func(ctx context.Context, domain string, p QueryParams) ([]*agreement.XTransfer, error) {
		dir, err := p.OrderDirection.Normalize()
		if err != nil {
			return nil, err
		}

		var resp struct {
			DestinationTransfers []destinationTransferEntity `json:"destinationTransfers"`
		}
		vars := map[string]interface{}{
			"timestamp":      strconv.FormatUint(p.FromTimestamp, 10),
			"maxBlockNumber": strconv.FormatUint(p.MaxBlockNumber, 10),
			"first":          r.pageSize,
			"orderDirection": strings.ToLower(string(dir)),
		}
		if err := r.exec(ctx, domain, query, vars, &resp); err != nil {
			return nil, err
		}
		return destinationTransfers(resp.DestinationTransfers)
	}
}

// fanOut runs q for each domain concurrently and concatenates the results.
func (r *Reader) fanOut(ctx context.Context, params map[string]QueryParams, q domainQuery) ([]*agreement.XTransfer, error) {
	var (
		mu        sync.Mutex
		transfers []*agreement.XTransfer
	)

	g, gctx := errgroup.WithContext(ctx)
	for domain, p := range params {
		domain, p := domain, p
		g.Go(func() error {
			page, err := q(gctx, domain, p)
			if err != nil {
				return fmt.Errorf("domain %s: %w", domain, err)
			}
			mu.Lock()
			transfers = append(transfers, page...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *Reader) exec(ctx context.Context, domain, query string, vars map[string]interface{}, out interface{}) error {
	s, ok := r.subgraphs[domain]
	if !ok || !s.supported {
		return ErrDomainNotSupported(domain)
	}
	return r.do(ctx, s.client, query, vars, out)
}

func (r *Reader) do(ctx context.Context, client *graphql.Client, query string, vars map[string]interface{}, out interface{}) error {
	return retry.Do(func() error {
		data, err := client.ExecRaw(ctx, query, vars)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, out)
	}, retry.Context(ctx), retryAttempts, retryDelay, retryLastErr)
}

func destinationTransfers(entities []destinationTransferEntity) ([]*agreement.XTransfer, error) {
	transfers := make([]*agreement.XTransfer, 0, len(entities))
	for i := range entities {
		x, err := entities[i].toXTransfer()
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, x)
	}
	return transfers, nil
}
