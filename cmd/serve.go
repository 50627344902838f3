package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matrixise/guild-dashboard/internal/dashboard"
	"github.com/matrixise/guild-dashboard/internal/graph"
	"github.com/matrixise/guild-dashboard/internal/health"
	"github.com/matrixise/guild-dashboard/internal/scheduler"
	"github.com/matrixise/guild-dashboard/internal/server"
	"github.com/spf13/cobra"
)

var (
	interval string
	httpPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the treasury dashboard API",
	Long: `Fetch members, proposals and treasury metadata from the subgraph, keep the
dashboard view up to date on a clock-aligned schedule and serve it over HTTP.
Treasury snapshots are recorded when DATABASE_URL is set; allowance requests
are enabled when PRIVATE_KEY is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&interval, "interval", "", "refresh interval - duration (5m, 1h) or cron (\"*/5 * * * *\") - empty to fetch once")
	serveCmd.Flags().IntVar(&httpPort, "port", 0, "HTTP port (default from config, 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Signal received, graceful shutdown", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, secrets, err := loadConfig()
	if err != nil {
		return err
	}

	refreshInterval := interval
	if refreshInterval == "" {
		refreshInterval = cfg.Interval
	}
	if err := scheduler.ValidateScheduleInterval(refreshInterval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"graph_url", cfg.GraphURL,
		"guild", cfg.GuildAddr().Hex(),
		"interval", refreshInterval)

	store, err := openHistory(ctx, secrets.DatabaseURL)
	if err != nil {
		slog.Error("Failed to open treasury history", "error", err)
		return err
	}
	if store != nil {
		defer store.Close()
	}

	client, decimals, err := connectChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	coordinator, err := newCoordinator(cfg, secrets, client, decimals)
	if err != nil {
		slog.Error("Failed to set up allowance requests", "error", err)
		return err
	}

	dashCfg := dashboard.Config{Logger: slog.Default()}
	if store != nil {
		dashCfg.Recorder = store
	}
	dash := dashboard.New(graph.NewClient(cfg.GraphURL, cfg.GraphTimeoutDuration()), dashCfg)
	dash.Start(ctx)
	defer dash.Close()

	healthOpts := health.Options{RPC: client}
	routerCfg := server.Config{
		Dashboard: dash,
		Decimals:  decimals,
		Symbol:    cfg.Token.Symbol,
		Locale:    cfg.FiatLocale(),
		Logger:    slog.Default(),
	}
	if store != nil {
		healthOpts.DB = store
		routerCfg.History = store
	}
	if coordinator != nil {
		routerCfg.Allowance = coordinator
	}

	if refreshInterval != "" {
		// Start already issued the first fetch.
		sched, err := scheduler.New(ctx, scheduler.Config{
			Interval: refreshInterval,
			Timezone: cfg.GetTimezone(),
			Logger:   slog.Default(),
		}, dash.Refresh)
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			return fmt.Errorf("scheduler creation failed: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		healthOpts.Refresh = sched
	}

	routerCfg.Health = health.NewChecker(dash, healthOpts).Handler()

	port := httpPort
	if port == 0 {
		port = cfg.HTTPPort
	}
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", port, "decimals", decimals)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown requested, stopping server")
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	return nil
}
