package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/matrixise/guild-dashboard/internal/allowance"
	"github.com/matrixise/guild-dashboard/internal/units"
	"github.com/spf13/cobra"
)

var approveAmount string

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Authorize the guild contract to spend deposit tokens",
	Long: `Send approve(guild, amount) on the deposit token from the session user and
wait for the receipt. The amount is given in whole tokens ("1.5") and converted
exactly to base units. Requires PRIVATE_KEY.`,
	RunE: runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().StringVar(&approveAmount, "amount", "", "amount in tokens, e.g. 1.5")
	approveCmd.MarkFlagRequired("amount")
}

func runApprove(cmd *cobra.Command, args []string) error {
	cfg, secrets, err := loadConfig()
	if err != nil {
		return err
	}
	if secrets.PrivateKey == "" {
		return errors.New("PRIVATE_KEY is required")
	}

	ctx := cmd.Context()
	client, decimals, err := connectChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	coordinator, err := newCoordinator(cfg, secrets, client, decimals)
	if err != nil {
		return err
	}

	if balance, err := client.BalanceOf(ctx, cfg.TokenAddr(), coordinator.Owner()); err == nil {
		if human, err := units.ToHumanAmount(balance, decimals); err == nil {
			slog.Info("Owner balance", "owner", coordinator.Owner().Hex(), "balance", human, "symbol", cfg.Token.Symbol)
		}
	}

	coordinator.SetInput(approveAmount)
	req, err := coordinator.Submit(ctx)
	if err != nil {
		if req.Validation != "" {
			return errors.New(req.Validation)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if req.Status == allowance.StatusPending {
		fmt.Fprintf(out, "Transaction %s sent, confirmation still pending\n", req.TxHash.Hex())
		return nil
	}
	fmt.Fprintf(out, "Approved %s %s (%s base units) for %s\n",
		approveAmount, cfg.Token.Symbol, req.ParsedAmount, coordinator.Spender().Hex())
	fmt.Fprintf(out, "Transaction: %s\n", req.TxHash.Hex())

	current, err := client.Allowance(ctx, cfg.TokenAddr(), coordinator.Owner(), coordinator.Spender())
	if err != nil {
		slog.Warn("Could not read allowance back", "error", err)
		return nil
	}
	human, err := units.ToHumanAmount(current, decimals)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current allowance: %s %s\n", human, cfg.Token.Symbol)
	return nil
}
