package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapcore/internal/api"
	"swapcore/internal/config"
	"swapcore/internal/engine"
	"swapcore/internal/model"
	"swapcore/internal/pool"
	"swapcore/internal/store"
	"swapcore/internal/store/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "swapd",
		Short:        "Constant-product swap execution service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the swap HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", ":8080", "listen address")
	serveCmd.Flags().String("state", "", "state file with pools, accounts, and fee schedules")
	serveCmd.Flags().String("out", "./data/swaps.jsonl", "swap journal JSONL path")
	serveCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for pool snapshots and swap rows")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(serveCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute one swap against the state file",
		RunE:  runSwap,
	}
	addExecFlags(swapCmd)
	swapCmd.Flags().String("payer", "", "payer address")
	root.AddCommand(swapCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price one swap without executing it",
		RunE:  runQuote,
	}
	addExecFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addExecFlags(cmd *cobra.Command) {
	cmd.Flags().String("state", "", "state file with pools, accounts, and fee schedules")
	cmd.Flags().String("out", "./data/swaps.jsonl", "swap journal JSONL path")
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("input-mint", "", "mint being sold")
	cmd.Flags().String("amount-in", "", "input amount")
	cmd.Flags().String("minimum-amount-out", "0", "minimum net output amount")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.State == "" {
		return fmt.Errorf("state file is required")
	}

	state, err := store.LoadState(cfg.State)
	if err != nil {
		return err
	}
	registry, err := store.BuildPools(state)
	if err != nil {
		return err
	}
	book, err := store.BuildBook(state)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := store.MultiSink{store.NewJsonlSink(cfg.Out)}
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.UpsertPools(ctx, snapshotAll(registry)); err != nil {
			return fmt.Errorf("seed pool snapshots: %w", err)
		}
		sinks = append(sinks, &pgSink{ctx: ctx, store: pgStore, pools: registry})
	}

	eng := engine.New(logger, book, book, book)
	server := api.NewServer(logger, eng, registry, book, sinks)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.Router(),
	}

	logger.Info("swapd start",
		zap.String("listen", cfg.Listen),
		zap.String("state", cfg.State),
		zap.String("out", cfg.Out),
		zap.Int("pools", len(registry.Addresses())),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// pgSink mirrors each journaled swap into Postgres together with the
// post-swap pool snapshot.
type pgSink struct {
	ctx   context.Context
	store *postgres.Store
	pools *pool.Registry
}

func (p *pgSink) PutSwaps(records []model.SwapRecord) error {
	if err := p.store.InsertSwaps(p.ctx, records); err != nil {
		return err
	}
	return p.store.UpsertPools(p.ctx, snapshotAll(p.pools))
}

func snapshotAll(registry *pool.Registry) []model.Pool {
	addresses := registry.Addresses()
	snapshots := make([]model.Pool, 0, len(addresses))
	for _, address := range addresses {
		if state, ok := registry.Get(address); ok {
			snapshots = append(snapshots, store.SnapshotPool(state))
		}
	}
	return snapshots
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
