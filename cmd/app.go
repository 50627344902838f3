package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matrixise/guild-dashboard/internal/allowance"
	"github.com/matrixise/guild-dashboard/internal/blockchain"
	"github.com/matrixise/guild-dashboard/internal/config"
	"github.com/matrixise/guild-dashboard/internal/logger"
	"github.com/matrixise/guild-dashboard/internal/storage"
)

// loadConfig sets up logging and loads the configuration and secrets. The
// config file log level wins over the flag default.
func loadConfig() (*config.Config, config.Secrets, error) {
	logger.Setup(logLevel)

	cfg, secrets, err := config.LoadWithSecrets(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return nil, config.Secrets{}, err
	}
	if cfg.LogLevel != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		logger.Setup(cfg.LogLevel)
	}
	return cfg, secrets, nil
}

// connectChain dials the RPC endpoints and resolves the token decimals,
// falling back to the configured value when the contract does not answer.
func connectChain(ctx context.Context, cfg *config.Config) (*blockchain.Client, uint8, error) {
	client, err := blockchain.NewClient(cfg.RPCUrls)
	if err != nil {
		slog.Error("Failed to connect to RPC", "error", err)
		return nil, 0, err
	}

	if len(cfg.RPCUrls) == 1 {
		slog.Info("RPC connection established", "endpoint", cfg.RPCUrls[0])
	} else {
		slog.Info("RPC connection established with failover",
			"endpoints", len(cfg.RPCUrls),
			"primary", cfg.RPCUrls[0])
	}

	decimals := client.TokenDecimals(ctx, cfg.TokenAddr(), cfg.Token.Decimals)
	if symbol, err := client.Symbol(ctx, cfg.TokenAddr()); err != nil {
		slog.Warn("Could not read token symbol", "token", cfg.TokenAddr().Hex(), "error", err)
	} else if symbol != cfg.Token.Symbol {
		slog.Warn("Token symbol differs from configuration", "configured", cfg.Token.Symbol, "onchain", symbol)
	}
	slog.Info("Deposit token resolved", "token", cfg.TokenAddr().Hex(), "decimals", decimals)
	return client, decimals, nil
}

// openHistory connects to PostgreSQL and applies migrations. It returns a
// nil store when DATABASE_URL is unset.
func openHistory(ctx context.Context, dsn string) (*storage.Store, error) {
	if dsn == "" {
		slog.Info("DATABASE_URL not set, treasury history disabled")
		return nil, nil
	}

	if err := storage.RunMigrations(ctx, dsn); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := storage.NewStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	slog.Info("PostgreSQL connection established")
	return store, nil
}

// newCoordinator builds the allowance coordinator for the session user. It
// returns nil when PRIVATE_KEY is unset.
func newCoordinator(cfg *config.Config, secrets config.Secrets, client *blockchain.Client, decimals uint8) (*allowance.Coordinator, error) {
	if secrets.PrivateKey == "" {
		slog.Info("PRIVATE_KEY not set, allowance requests disabled")
		return nil, nil
	}

	approver, err := blockchain.NewApprover(client, cfg.TokenAddr(), secrets.PrivateKey, cfg.ReceiptTimeoutDuration())
	if err != nil {
		return nil, err
	}

	owner, ok := cfg.UserAddr()
	if !ok {
		owner = approver.From()
	}

	return allowance.NewCoordinator(allowance.Config{
		Owner:    owner,
		Spender:  cfg.GuildAddr(),
		Decimals: decimals,
		Approver: approver,
		Logger:   slog.Default(),
	})
}
