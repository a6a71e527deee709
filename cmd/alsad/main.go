// Command alsad brings up the sound cards of the machine and keeps their
// devices, nodes and jacks current.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gen2brain/alsad/hw"
	"github.com/gen2brain/alsad/internal/config"
	"github.com/gen2brain/alsad/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := config.Defaults()

	root := &cobra.Command{
		Use:           "alsad",
		Short:         "ALSA card and endpoint daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(&opts, cmd); err != nil {
				return err
			}

			hw.DevDir = opts.DevDir

			logCfg, err := config.LoadLoggingConfig(opts.Config)
			if err != nil {
				return fmt.Errorf("failed to load logging config: %w", err)
			}
			logCfg.Level = opts.LoggingLevel
			logCfg.Format = opts.LoggingFormat
			logging.Initialize(logCfg)

			return nil
		},
	}

	config.RegisterFlags(root.PersistentFlags(), &opts)

	root.AddCommand(
		newServeCmd(&opts),
		newListCmd(&opts),
		newPlayCmd(&opts),
	)

	return root
}
