package cmd

import (
	"context"
	"sync"

	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/TEENet-io/xbridge-agents/logconfig"
	"github.com/TEENet-io/xbridge-agents/poller"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type makePollerFunc func(ctx context.Context, override *config.CartographerConfig, wg *sync.WaitGroup) (*poller.AppContext, error)

func cartographerCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cartographer",
		Aliases: []string{"carto"},
		Short:   "Index subgraph state into the database",
	}
	cmd.AddCommand(
		pollerCmd(cfgPath, "transfers", "Poll origin and destination transfers", poller.MakeTransfersPoller),
		pollerCmd(cfgPath, "routers", "Poll router liquidity", poller.MakeRoutersPoller),
	)
	return cmd
}

func pollerCmd(cfgPath *string, name, short string, makePoller makePollerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkConfigPath(*cfgPath); err != nil {
				return err
			}
			cfg, err := config.LoadCartographerConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := logconfig.ConfigGlobalLogger(cfg.LogLevel, cfg.Environment == config.EnvProduction); err != nil {
				return err
			}

			return StartAndWait(cmd.Context(), func(ctx context.Context, wg *sync.WaitGroup) error {
				if _, err := makePoller(ctx, cfg, wg); err != nil {
					logger.WithField("poller", name).WithError(err).Error("Error starting poller")
					return err
				}
				return nil
			})
		},
	}
}
