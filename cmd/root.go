package cmd

import (
	"context"

	"github.com/TEENet-io/xbridge-agents/config"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	cfgFlag = "config"
	cfgDisc = "config file, defaults to $" + config.ENV_CONFIG_FILE_PATH
)

// NewRootCmd builds the agent command tree.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "agent",
		Short:         "Off-chain agents of the cross-chain bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, cfgFlag, "", cfgDisc)

	rootCmd.AddCommand(
		sequencerCmd(&cfgPath),
		cartographerCmd(&cfgPath),
	)
	return rootCmd
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.WithError(err).Fatal("Agent exited")
	}
}
