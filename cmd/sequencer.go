package cmd

import (
	"context"
	"sync"

	"github.com/TEENet-io/xbridge-agents/config"
	"github.com/TEENet-io/xbridge-agents/logconfig"
	"github.com/TEENet-io/xbridge-agents/sequencer"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func sequencerCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sequencer",
		Short: "Run the sequencer: collect router bids and relay auction winners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkConfigPath(*cfgPath); err != nil {
				return err
			}
			cfg, err := config.LoadSequencerConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := logconfig.ConfigGlobalLogger(cfg.LogLevel, cfg.Environment == config.EnvProduction); err != nil {
				return err
			}

			return StartAndWait(cmd.Context(), func(ctx context.Context, wg *sync.WaitGroup) error {
				if _, err := sequencer.MakeSequencer(ctx, cfg, wg); err != nil {
					logger.WithError(err).Error("Error starting sequencer")
					return err
				}
				return nil
			})
		},
	}
}
