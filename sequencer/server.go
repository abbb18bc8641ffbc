package sequencer

import (
	"context"
	"sync"

	"github.com/TEENet-io/xbridge-agents/reporter"
)

// BindServer binds the http listener and serves in a goroutine tracked by wg.
// A listen failure is returned, anything later is logged.
func BindServer(ctx context.Context, app *AppContext, wg *sync.WaitGroup) error {
	host, port := app.serverAddress()
	h := reporter.NewHttpReporter(
		host,
		port,
		app.Adapters.Cache.Auctions,
		app.Adapters.ChainReader,
		app.Config.Domains(),
		app.Clock,
		app.Logger.WithField("method", "BindServer"),
	)

	ln, err := h.Listen()
	if err != nil {
		app.Logger.WithError(err).Error("failed to bind http server")
		return err
	}
	app.Logger.WithField("address", ln.Addr().String()).Info("Server listening")

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.Serve(ctx, ln); err != nil {
			app.Logger.WithError(err).Error("http server stopped")
		}
	}()
	return nil
}
