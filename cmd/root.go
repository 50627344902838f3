package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "guild-dashboard",
	Short: "Guild treasury dashboard",
	Long: `guild-dashboard serves the treasury dashboard of a guild: member and
proposal counts and the guild bank value fetched from a GraphQL subgraph,
converted exactly from wei to ether and fiat. It also lets the session user
authorize an ERC-20 allowance for the guild contract.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
