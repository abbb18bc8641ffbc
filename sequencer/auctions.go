package sequencer

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/common"
	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	setWinnerAttempts = 3
	setWinnerDelay    = 100 * time.Millisecond
)

// BindAuctions closes elapsed auction rounds every Auction.CheckInterval in a
// goroutine tracked by wg until ctx is done.
func BindAuctions(ctx context.Context, app *AppContext, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(app.Config.Auction.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				app.Logger.WithField("method", "BindAuctions").Debug("binding stopped")
				return
			case <-ticker.C:
				log := app.Logger.WithFields(logger.Fields{
					"method":    "BindAuctions",
					"requestId": uuid.NewString(),
				})
				if err := ExecuteAuctions(ctx, app, log); err != nil {
					log.WithError(err).Error("auction round failed")
				}
			}
		}
	}()
}

// ExecuteAuctions settles every queued auction whose round has elapsed. An
// auction whose relay fails stays queued and is retried on the next call.
func ExecuteAuctions(ctx context.Context, app *AppContext, log *logger.Entry) error {
	ids, err := app.Adapters.Cache.Auctions.GetQueuedTransfers(ctx)
	if err != nil {
		return err
	}

	var errs error
	for _, id := range ids {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if err := executeAuction(ctx, app, id, log.WithField("transferId", common.Shorten(id, 8))); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func executeAuction(ctx context.Context, app *AppContext, transferID string, log *logger.Entry) error {
	auctions := app.Adapters.Cache.Auctions

	a, ok, err := auctions.GetAuction(ctx, transferID)
	if err != nil || !ok || a.Status != agreement.AuctionStatusQueued {
		return err
	}
	if app.Clock.Now().Sub(a.StartedAt) < app.Config.Auction.RoundDuration {
		return nil
	}

	winner, ok := pickWinner(a.Bids)
	if !ok {
		log.Info("Auction expired without a valid bid")
		return auctions.SetStatus(ctx, transferID, agreement.AuctionStatusExpired)
	}

	target := app.Config.Chains[a.Destination].Deployments.Connext
	if target == "" {
		_ = auctions.SetStatus(ctx, transferID, agreement.AuctionStatusExpired)
		return ErrNoDeployment(a.Destination)
	}

	data, err := app.Adapters.Contracts.EncodeExecute(transferID, winner.Router)
	if err != nil {
		_ = auctions.SetStatus(ctx, transferID, agreement.AuctionStatusExpired)
		return err
	}

	chainID, err := app.chainID(ctx, a.Destination)
	if err != nil {
		return err
	}

	// Sent before relaying: once the relayer has the task the auction must not
	// be picked up again, even if recording the winner fails.
	if err := auctions.SetStatus(ctx, transferID, agreement.AuctionStatusSent); err != nil {
		return err
	}

	taskID, err := app.Adapters.Relayer.Send(ctx, chainID, target, data)
	if err != nil {
		return multierr.Append(err, auctions.SetStatus(ctx, transferID, agreement.AuctionStatusQueued))
	}

	log = log.WithFields(logger.Fields{
		"router": winner.Router,
		"fee":    winner.Fee,
		"bids":   len(a.Bids),
		"taskId": taskID,
	})
	err = retry.Do(func() error {
		return auctions.SetWinner(ctx, transferID, *winner, taskID)
	}, retry.Context(ctx), retry.Attempts(setWinnerAttempts), retry.Delay(setWinnerDelay), retry.LastErrorOnly(true))
	if err != nil {
		log.WithError(err).Error("Relayed but failed to record winner")
		return err
	}

	log.Info("Auction settled")
	return nil
}

// pickWinner returns the bid with the lowest fee. Ties go to the earliest bid,
// then to the lowest router address. Bids with an unparsable fee are ignored.
func pickWinner(bids []agreement.Bid) (*agreement.Bid, bool) {
	var (
		best    *agreement.Bid
		bestFee *big.Int
	)
	for i := range bids {
		b := &bids[i]
		fee, ok := b.FeeInt()
		if !ok || fee.Sign() < 0 {
			continue
		}
		if best == nil {
			best, bestFee = b, fee
			continue
		}
		switch fee.Cmp(bestFee) {
		case -1:
			best, bestFee = b, fee
		case 0:
			if b.ReceivedAt.Before(best.ReceivedAt) ||
				(b.ReceivedAt.Equal(best.ReceivedAt) && b.Router < best.Router) {
				best, bestFee = b, fee
			}
		}
	}
	return best, best != nil
}
