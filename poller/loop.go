package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

type updateFunc func(ctx context.Context, app *AppContext, log *logger.Entry) error

// bind runs update once, then every PollInterval in a goroutine tracked by wg
// until ctx is done. Errors after the first run are logged and the loop goes on.
func bind(ctx context.Context, app *AppContext, wg *sync.WaitGroup, method string, update updateFunc) error {
	if err := runOnce(ctx, app, method, update); err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(app.Config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				app.Logger.WithField("method", method).Debug("binding stopped")
				return
			case <-ticker.C:
				_ = runOnce(ctx, app, method, update)
			}
		}
	}()

	return nil
}

func runOnce(ctx context.Context, app *AppContext, method string, update updateFunc) error {
	log := app.Logger.WithFields(logger.Fields{
		"method":    method,
		"requestId": uuid.NewString(),
	})

	start := time.Now()
	if err := update(ctx, app, log); err != nil {
		log.WithError(err).Error("poll failed")
		return err
	}
	log.WithField("elapsed", time.Since(start).String()).Debug("poll done")
	return nil
}
