package cmd

import (
	"fmt"
	"math/big"

	"github.com/matrixise/guild-dashboard/internal/units"
	"github.com/spf13/cobra"
)

var (
	convertDecimals uint8
	convertRate     string
	convertLocale   units.Locale
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert between base units, tokens and fiat",
}

var toHumanCmd = &cobra.Command{
	Use:   "to-human <base-units>",
	Short: "Scale a base-unit amount to tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := parseBaseUnits(args[0])
		if err != nil {
			return err
		}
		human, err := units.ToHumanAmount(base, convertDecimals)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), human)
		return nil
	},
}

var toFiatCmd = &cobra.Command{
	Use:   "to-fiat <base-units>",
	Short: "Value a base-unit amount at an exchange rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := parseBaseUnits(args[0])
		if err != nil {
			return err
		}
		rate, err := units.ParseRate(convertRate)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), units.ToFiat(base, convertDecimals, rate, convertLocale))
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <amount>",
	Short: "Convert a token amount to base units",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := units.ParseHumanAmount(args[0], convertDecimals)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), base.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.AddCommand(toHumanCmd, toFiatCmd, parseCmd)

	convertCmd.PersistentFlags().Uint8Var(&convertDecimals, "decimals", units.DefaultDecimals, "token decimals")
	toFiatCmd.Flags().StringVar(&convertRate, "rate", "", "exchange rate per token")
	toFiatCmd.MarkFlagRequired("rate")
	toFiatCmd.Flags().StringVar(&convertLocale.Symbol, "symbol", units.DefaultLocale.Symbol, "currency symbol")
	toFiatCmd.Flags().StringVar(&convertLocale.ThousandsSep, "thousands-separator", units.DefaultLocale.ThousandsSep, "digit group separator")
	toFiatCmd.Flags().StringVar(&convertLocale.DecimalSep, "decimal-separator", units.DefaultLocale.DecimalSep, "decimal separator")
}

// parseBaseUnits accepts a non-negative integer amount of base units.
func parseBaseUnits(s string) (*big.Int, error) {
	return units.ParseHumanAmount(s, 0)
}
