package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	logger "github.com/sirupsen/logrus"
)

// FileExists checks if a file exists and is readable
func FileExists(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}

// StartFunc starts an agent. Goroutines it leaves behind are tracked in wg
// and stop when ctx is done.
type StartFunc func(ctx context.Context, wg *sync.WaitGroup) error

// StartAndWait starts an agent and blocks until its goroutines finish.
// Ctrl-C or SIGTERM cancels the context handed to the agent.
func StartAndWait(parent context.Context, start StartFunc) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("Received signal, cancelling context...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	if err := start(ctx, &wg); err != nil {
		cancel()
		wg.Wait()
		return err
	}

	// wait for all routines to finish (which is until cancelled)
	wg.Wait()
	return nil
}

func checkConfigPath(path string) error {
	if path != "" && !FileExists(path) {
		return fmt.Errorf("configuration file not found: %s", path)
	}
	return nil
}
