package poller

import (
	"context"
	"sync"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/subgraph"
	logger "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// pendingPageSize bounds how many XCalled transfers are looked up per page.
const pendingPageSize = 100

// BindTransfers polls transfers once, then every PollInterval.
func BindTransfers(ctx context.Context, app *AppContext, wg *sync.WaitGroup) error {
	return bind(ctx, app, wg, "bindTransfers", updateTransfers)
}

// UpdateTransfers runs one transfers poll.
func UpdateTransfers(ctx context.Context, app *AppContext) error {
	return runOnce(ctx, app, "updateTransfers", updateTransfers)
}

func updateTransfers(ctx context.Context, app *AppContext, log *logger.Entry) error {
	sg := app.Adapters.Subgraph
	db := app.Adapters.Database

	blocks, err := sg.GetLatestBlockNumber(ctx, app.Domains)
	if err != nil {
		return err
	}

	var (
		errs            error
		originParams    = make(map[string]subgraph.QueryParams)
		executeParams   = make(map[string]subgraph.QueryParams)
		reconcileParams = make(map[string]subgraph.QueryParams)
	)
	for _, domain := range app.Domains {
		block, ok := blocks[domain]
		if !ok {
			log.WithField("domain", domain).Debug("no block number for domain, skipping")
			continue
		}

		nonce, err := db.GetLatestNonce(ctx, domain)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		executed, err := db.GetLatestExecuteTimestamp(ctx, domain)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		reconciled, err := db.GetLatestReconcileTimestamp(ctx, domain)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		originParams[domain] = subgraph.QueryParams{
			MaxBlockNumber: block,
			LatestNonce:    nonce,
			OrderDirection: agreement.OrderAsc,
		}
		executeParams[domain] = subgraph.QueryParams{
			MaxBlockNumber: block,
			FromTimestamp:  executed,
			OrderDirection: agreement.OrderAsc,
		}
		reconcileParams[domain] = subgraph.QueryParams{
			MaxBlockNumber: block,
			FromTimestamp:  reconciled,
			OrderDirection: agreement.OrderAsc,
		}

		log.WithFields(logger.Fields{
			"domain":              domain,
			"blockNumber":         block,
			"latestNonce":         nonce,
			"latestExecuteTime":   executed,
			"latestReconcileTime": reconciled,
		}).Debug("polling domain")
	}

	if len(originParams) == 0 {
		return errs
	}

	origin, err := sg.GetOriginTransfers(ctx, originParams)
	errs = multierr.Append(errs, save(ctx, app, log, "origin", origin, err))

	executed, err := sg.GetDestinationTransfersByExecuteTimestamp(ctx, executeParams)
	errs = multierr.Append(errs, save(ctx, app, log, "executed", executed, err))

	reconciled, err := sg.GetDestinationTransfersByReconcileTimestamp(ctx, reconcileParams)
	errs = multierr.Append(errs, save(ctx, app, log, "reconciled", reconciled, err))

	errs = multierr.Append(errs, updatePending(ctx, app, log, blocks))

	return errs
}

// updatePending refreshes transfers still XCalled from their destination
// subgraph. The XCalled set is read in full before anything is saved: saving
// moves rows out of it, which would shift later pages.
func updatePending(ctx context.Context, app *AppContext, log *logger.Entry, blocks map[string]uint64) error {
	var pending []*agreement.XTransfer
	for offset := 0; ; offset += pendingPageSize {
		page, err := app.Adapters.Database.GetTransfersByStatus(ctx, agreement.XTransferStatusXCalled, pendingPageSize, offset, agreement.OrderAsc)
		if err != nil {
			return err
		}
		pending = append(pending, page...)
		if len(page) < pendingPageSize {
			break
		}
	}

	var (
		domains       []string
		byDestination = make(map[string][]string)
	)
	for _, x := range pending {
		if _, ok := blocks[x.DestinationDomain]; !ok {
			continue
		}
		if _, ok := byDestination[x.DestinationDomain]; !ok {
			domains = append(domains, x.DestinationDomain)
		}
		byDestination[x.DestinationDomain] = append(byDestination[x.DestinationDomain], x.TransferID)
	}

	var errs error
	for _, domain := range domains {
		ids := byDestination[domain]
		for start := 0; start < len(ids); start += pendingPageSize {
			end := min(start+pendingPageSize, len(ids))
			transfers, err := app.Adapters.Subgraph.GetDestinationTransfersByIDs(ctx, domain, ids[start:end])
			errs = multierr.Append(errs, save(ctx, app, log, "pending", transfers, err))
		}
	}
	return errs
}

func save(ctx context.Context, app *AppContext, log *logger.Entry, kind string, transfers []*agreement.XTransfer, err error) error {
	if err != nil {
		return err
	}
	if len(transfers) == 0 {
		return nil
	}
	if err := app.Adapters.Database.SaveTransfers(ctx, transfers); err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"kind":  kind,
		"count": len(transfers),
	}).Info("Saved transfers")
	return nil
}
