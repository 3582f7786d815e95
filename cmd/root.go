package cmd

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Flags
	cfgPath string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "opinex",
		Short: "Opinex prediction market gateway",
		Long: `Opinex gateway for a binary prediction market.

Functions:
- Register events and move them through settlement
- Accept orders on live events and fan them out to the database writer and trading engine
- Serve events and orders from a read-through cache`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to display help")
			}
		},
	}
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "directory holding config.yaml or app.env")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
