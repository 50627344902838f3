package cmd

import (
	"log/slog"

	"github.com/matrixise/guild-dashboard/internal/config"
	"github.com/matrixise/guild-dashboard/internal/logger"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without contacting the subgraph or the chain.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, secrets, err := config.LoadWithSecrets(cfgFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	slog.Info("Configuration valid",
		"graph_url", cfg.GraphURL,
		"rpc_endpoints", len(cfg.RPCUrls),
		"guild", cfg.GuildAddr().Hex(),
		"token", cfg.Token.Symbol,
		"decimals", cfg.Token.Decimals,
		"interval", cfg.Interval,
		"log_level", cfg.LogLevel,
		"history_enabled", secrets.DatabaseURL != "",
		"allowance_enabled", secrets.PrivateKey != "",
	)
	return nil
}
