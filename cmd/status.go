package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/matrixise/guild-dashboard/internal/dashboard"
	"github.com/matrixise/guild-dashboard/internal/graph"
	"github.com/spf13/cobra"
)

var (
	statusTimeout time.Duration
	statusJSON    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch the dashboard once and print it",
	Long: `Run the three subgraph queries once, wait until the view settles and print
the dashboard figures. Exits non-zero when the treasury metadata is unavailable.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 30*time.Second, "how long to wait for the queries")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON instead of a table")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	dash := dashboard.New(graph.NewClient(cfg.GraphURL, cfg.GraphTimeoutDuration()), dashboard.Config{Logger: slog.Default()})
	dash.Start(ctx)
	defer dash.Close()

	state, err := dash.WaitSettled(ctx)
	if err != nil {
		return fmt.Errorf("dashboard did not settle: %w", err)
	}

	summary := dashboard.Summarize(state, cfg.Token.Decimals, cfg.FiatLocale())
	if err := printSummary(cmd.OutOrStdout(), summary, cfg.Token.Symbol); err != nil {
		return err
	}

	if state.Phase == dashboard.PhaseFailed {
		return fmt.Errorf("treasury metadata unavailable: %s", state.Err)
	}
	return nil
}

func printSummary(out io.Writer, s dashboard.Summary, symbol string) error {
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Status\t%s\n", s.Status)
	if s.Error != "" {
		fmt.Fprintf(w, "Error\t%s\n", s.Error)
	}
	fmt.Fprintf(w, "Members\t%s\n", s.Members)
	fmt.Fprintf(w, "Proposals\t%s\n", s.Proposals)
	if s.Status == dashboard.PhaseReady {
		fmt.Fprintf(w, "Guild bank\t%s\n", s.GuildBankValue)
		fmt.Fprintf(w, "Total %s\t%s\n", symbol, s.TotalEther)
		fmt.Fprintf(w, "Share value\t%s\n", s.ShareValue)
		fmt.Fprintf(w, "Total shares\t%d\n", s.TotalShares)
		fmt.Fprintf(w, "Exchange rate\t%s\n", s.ExchangeRate)
	}
	return w.Flush()
}
