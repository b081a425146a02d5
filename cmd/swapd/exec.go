package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapcore/internal/config"
	"swapcore/internal/engine"
	"swapcore/internal/model"
	"swapcore/internal/pool"
	"swapcore/internal/store"
	"swapcore/internal/token"
)

// execWorld is everything a one-shot swap or quote needs from the state
// file.
type execWorld struct {
	pool *pool.State
	book *token.Book
	req  engine.Request
	eng  *engine.Engine
}

func runSwap(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExec(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	world, err := buildExecWorld(cfg, logger)
	if err != nil {
		return err
	}

	if !common.IsHexAddress(cfg.Payer) {
		return fmt.Errorf("invalid payer address %q", cfg.Payer)
	}
	payer := common.HexToAddress(cfg.Payer)
	source, ok := world.book.AccountFor(payer, world.req.InputMint)
	if !ok {
		return fmt.Errorf("payer has no account for input mint %s", world.req.InputMint.Hex())
	}
	destination, ok := world.book.AccountFor(payer, world.req.OutputMint)
	if !ok {
		return fmt.Errorf("payer has no account for output mint %s", world.req.OutputMint.Hex())
	}
	world.req.Payer = payer
	world.req.UserSource = source
	world.req.UserDestination = destination

	ctx := context.Background()
	outcome, err := world.eng.Swap(ctx, world.req)
	if err != nil {
		return err
	}

	record := model.SwapRecord{
		Pool:                  world.pool.Address.Hex(),
		Payer:                 payer.Hex(),
		Direction:             outcome.Direction.String(),
		AmountIn:              model.FormatAmount(outcome.AmountIn),
		ActualAmountIn:        model.FormatAmount(outcome.ActualAmountIn),
		InputTransferAmount:   model.FormatAmount(outcome.InputTransferAmount),
		OutputTransferAmount:  model.FormatAmount(outcome.OutputTransferAmount),
		AmountReceived:        model.FormatAmount(outcome.AmountReceived),
		ProtocolFee:           model.FormatAmount(outcome.ProtocolFee),
		FundFee:               model.FormatAmount(outcome.FundFee),
		NewSourceReserve:      model.FormatAmount(outcome.NewSourceReserve),
		NewDestinationReserve: model.FormatAmount(outcome.NewDestinationReserve),
		ExecutedAt:            time.Now().UTC().Format(time.RFC3339Nano),
	}
	if cfg.Out != "" {
		sink := store.NewJsonlSink(cfg.Out)
		if err := sink.PutSwaps([]model.SwapRecord{record}); err != nil {
			return fmt.Errorf("journal swap: %w", err)
		}
	}

	return printOutcome(world.pool, outcome)
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExec(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	world, err := buildExecWorld(cfg, logger)
	if err != nil {
		return err
	}

	outcome, err := world.eng.Quote(context.Background(), world.req)
	if err != nil {
		return err
	}
	return printOutcome(world.pool, outcome)
}

func buildExecWorld(cfg config.ExecConfig, logger *zap.Logger) (*execWorld, error) {
	if cfg.State == "" {
		return nil, fmt.Errorf("state file is required")
	}
	state, err := store.LoadState(cfg.State)
	if err != nil {
		return nil, err
	}
	registry, err := store.BuildPools(state)
	if err != nil {
		return nil, err
	}
	book, err := store.BuildBook(state)
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(cfg.Pool) {
		return nil, fmt.Errorf("invalid pool address %q", cfg.Pool)
	}
	poolState, ok := registry.Get(common.HexToAddress(cfg.Pool))
	if !ok {
		return nil, fmt.Errorf("pool %s not found in state file", cfg.Pool)
	}

	if !common.IsHexAddress(cfg.InputMint) {
		return nil, fmt.Errorf("invalid input mint %q", cfg.InputMint)
	}
	amountIn, err := model.ParseAmount(cfg.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("invalid amount-in %q: %w", cfg.AmountIn, err)
	}
	minimumOut, err := model.ParseAmount(cfg.MinimumAmountOut)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum-amount-out %q: %w", cfg.MinimumAmountOut, err)
	}

	req, err := engine.RequestFromMint(poolState, common.HexToAddress(cfg.InputMint), amountIn, minimumOut)
	if err != nil {
		return nil, fmt.Errorf("input mint does not belong to pool %s", cfg.Pool)
	}

	return &execWorld{
		pool: poolState,
		book: book,
		req:  req,
		eng:  engine.New(logger, book, book, book),
	}, nil
}

type outcomeJSON struct {
	Pool                  string `json:"pool"`
	Direction             string `json:"direction"`
	AmountIn              string `json:"amount_in"`
	ActualAmountIn        string `json:"actual_amount_in"`
	InputTransferAmount   string `json:"input_transfer_amount"`
	OutputTransferAmount  string `json:"output_transfer_amount"`
	AmountReceived        string `json:"amount_received"`
	ProtocolFee           string `json:"protocol_fee"`
	FundFee               string `json:"fund_fee"`
	NewSourceReserve      string `json:"new_source_reserve"`
	NewDestinationReserve string `json:"new_destination_reserve"`
}

func printOutcome(poolState *pool.State, outcome engine.Outcome) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomeJSON{
		Pool:                  poolState.Address.Hex(),
		Direction:             outcome.Direction.String(),
		AmountIn:              model.FormatAmount(outcome.AmountIn),
		ActualAmountIn:        model.FormatAmount(outcome.ActualAmountIn),
		InputTransferAmount:   model.FormatAmount(outcome.InputTransferAmount),
		OutputTransferAmount:  model.FormatAmount(outcome.OutputTransferAmount),
		AmountReceived:        model.FormatAmount(outcome.AmountReceived),
		ProtocolFee:           model.FormatAmount(outcome.ProtocolFee),
		FundFee:               model.FormatAmount(outcome.FundFee),
		NewSourceReserve:      model.FormatAmount(outcome.NewSourceReserve),
		NewDestinationReserve: model.FormatAmount(outcome.NewDestinationReserve),
	})
}
