package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapcore/internal/curve"
	"swapcore/internal/pool"
	"swapcore/internal/token"
)

var (
	// ErrNotApproved is returned when the pool has swapping disabled.
	ErrNotApproved = errors.New("pool swapping disabled")

	// ErrExceededSlippage is returned when the net amount the user would
	// receive is below the caller's minimum.
	ErrExceededSlippage = errors.New("output below minimum amount")

	// ErrVaultMismatch is returned when a request's vaults do not cover
	// both sides of the pool.
	ErrVaultMismatch = errors.New("vaults do not belong to pool")

	// ErrMintMismatch is returned when a request's mints do not match the
	// pool's vault sides.
	ErrMintMismatch = errors.New("mints do not match pool")
)

// Request describes one swap invocation against a pool.
type Request struct {
	Pool  *pool.State
	Payer common.Address

	UserSource      common.Address
	UserDestination common.Address
	InputVault      common.Address
	OutputVault     common.Address
	InputMint       common.Address
	OutputMint      common.Address

	AmountIn         uint64
	MinimumAmountOut uint64
}

// Outcome reports the realized amounts and fees of a swap or quote.
type Outcome struct {
	Direction             curve.TradeDirection
	AmountIn              uint64
	ActualAmountIn        uint64
	InputTransferAmount   uint64
	OutputTransferAmount  uint64
	AmountReceived        uint64
	ProtocolFee           uint64
	FundFee               uint64
	NewSourceReserve      uint64
	NewDestinationReserve uint64
}

// Engine composes the swap pipeline: precondition checks, transfer-fee
// stripping, reserve reconciliation, curve pricing, the invariant and
// slippage guards, external transfers, and the single-step pool commit.
type Engine struct {
	logger    *zap.Logger
	schedules token.ScheduleProvider
	transfers token.Transferor
	balances  token.BalanceReader
}

// New builds an Engine with its collaborators.
func New(logger *zap.Logger, schedules token.ScheduleProvider, transfers token.Transferor, balances token.BalanceReader) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:    logger,
		schedules: schedules,
		transfers: transfers,
		balances:  balances,
	}
}

// priced carries the fully computed, not yet committed result of the
// pricing pipeline.
type priced struct {
	outcome Outcome
	update  pool.SwapUpdate
}

// Swap executes one swap. Any failure at any stage leaves the pool record,
// the fee ledger, and the token balances exactly as they were: the two
// transfer legs are applied atomically, and the pool mutation is committed
// in one step only after they have succeeded.
func (e *Engine) Swap(ctx context.Context, req Request) (Outcome, error) {
	p, err := e.price(req)
	if err != nil {
		return Outcome{}, err
	}

	in := token.TransferLeg{
		Signer: req.Payer,
		From:   req.UserSource,
		To:     req.InputVault,
		Mint:   req.InputMint,
		Amount: p.outcome.InputTransferAmount,
	}
	out := token.TransferLeg{
		Signer: req.Pool.Authority,
		From:   req.OutputVault,
		To:     req.UserDestination,
		Mint:   req.OutputMint,
		Amount: p.outcome.OutputTransferAmount,
	}
	if err := e.transfers.SwapTransfer(ctx, in, out); err != nil {
		return Outcome{}, err
	}

	if err := req.Pool.ApplySwap(p.update); err != nil {
		return Outcome{}, err
	}

	e.logger.Info("swap executed",
		zap.String("pool", req.Pool.Address.Hex()),
		zap.String("payer", req.Payer.Hex()),
		zap.String("direction", p.outcome.Direction.String()),
		zap.Uint64("amount_in", p.outcome.AmountIn),
		zap.Uint64("actual_amount_in", p.outcome.ActualAmountIn),
		zap.Uint64("amount_received", p.outcome.AmountReceived),
		zap.Uint64("protocol_fee", p.outcome.ProtocolFee),
		zap.Uint64("fund_fee", p.outcome.FundFee),
	)

	return p.outcome, nil
}

// Quote runs the pricing pipeline without issuing transfers or mutating
// any state. Payer and user accounts in the request may be zero.
func (e *Engine) Quote(_ context.Context, req Request) (Outcome, error) {
	p, err := e.price(req)
	if err != nil {
		return Outcome{}, err
	}
	return p.outcome, nil
}

func (e *Engine) price(req Request) (priced, error) {
	if err := validateAccounts(req); err != nil {
		return priced{}, err
	}
	if !req.Pool.SwapEnabled() {
		return priced{}, ErrNotApproved
	}

	inputSchedule := e.schedules.ScheduleOf(req.InputMint)
	outputSchedule := e.schedules.ScheduleOf(req.OutputMint)

	inputTransferFee := inputSchedule.CalculateFee(req.AmountIn)
	var actualAmountIn uint64
	if req.AmountIn > inputTransferFee {
		actualAmountIn = req.AmountIn - inputTransferFee
	}

	direction, _ := req.Pool.DirectionFor(req.InputVault)

	inputVaultBalance, err := e.balances.BalanceOf(req.InputVault)
	if err != nil {
		return priced{}, fmt.Errorf("input vault balance: %w", err)
	}
	outputVaultBalance, err := e.balances.BalanceOf(req.OutputVault)
	if err != nil {
		return priced{}, fmt.Errorf("output vault balance: %w", err)
	}

	var totalInput, totalOutput uint64
	switch direction {
	case curve.ZeroForOne:
		totalInput, totalOutput, err = req.Pool.NetReserves(inputVaultBalance, outputVaultBalance)
	case curve.OneForZero:
		totalOutput, totalInput, err = req.Pool.NetReserves(outputVaultBalance, inputVaultBalance)
	}
	if err != nil {
		return priced{}, err
	}

	result, err := curve.Swap(actualAmountIn, totalInput, totalOutput, req.Pool.Fees)
	if err != nil {
		return priced{}, err
	}
	if err := curve.CheckInvariant(totalInput, totalOutput, result.NewSourceReserve, result.NewDestinationReserve); err != nil {
		return priced{}, err
	}

	// The user must fund the curve's source amount plus whatever the input
	// mint withholds in transit.
	inverseFee, err := inputSchedule.CalculateInverseFee(result.SourceAmountSwapped)
	if err != nil {
		return priced{}, err
	}
	inputTransferAmount := result.SourceAmountSwapped + inverseFee
	if inputTransferAmount < result.SourceAmountSwapped {
		return priced{}, token.ErrFeeCalculationOverflow
	}

	// The vault pays out the full curve amount; the output mint withholds
	// its fee in transit, so slippage is judged on the net.
	outputTransferFee := outputSchedule.CalculateFee(result.DestinationAmountSwapped)
	amountReceived := result.DestinationAmountSwapped - outputTransferFee
	if amountReceived < req.MinimumAmountOut {
		return priced{}, ErrExceededSlippage
	}

	return priced{
		outcome: Outcome{
			Direction:             direction,
			AmountIn:              req.AmountIn,
			ActualAmountIn:        actualAmountIn,
			InputTransferAmount:   inputTransferAmount,
			OutputTransferAmount:  result.DestinationAmountSwapped,
			AmountReceived:        amountReceived,
			ProtocolFee:           result.ProtocolFee,
			FundFee:               result.FundFee,
			NewSourceReserve:      result.NewSourceReserve,
			NewDestinationReserve: result.NewDestinationReserve,
		},
		update: pool.SwapUpdate{
			Direction:   direction,
			ProtocolFee: result.ProtocolFee,
			FundFee:     result.FundFee,
		},
	}, nil
}

// RequestFromMint builds a Request for a pool given only the input mint,
// resolving vault and mint pairs from the pool record. Payer and user
// accounts are left zero for the caller to fill in.
func RequestFromMint(poolState *pool.State, inputMint common.Address, amountIn, minimumAmountOut uint64) (Request, error) {
	req := Request{
		Pool:             poolState,
		AmountIn:         amountIn,
		MinimumAmountOut: minimumAmountOut,
	}
	switch inputMint {
	case poolState.Token0Mint:
		req.InputMint, req.OutputMint = poolState.Token0Mint, poolState.Token1Mint
		req.InputVault, req.OutputVault = poolState.Token0Vault, poolState.Token1Vault
	case poolState.Token1Mint:
		req.InputMint, req.OutputMint = poolState.Token1Mint, poolState.Token0Mint
		req.InputVault, req.OutputVault = poolState.Token1Vault, poolState.Token0Vault
	default:
		return Request{}, ErrMintMismatch
	}
	return req, nil
}

// validateAccounts checks that the request's vaults and mints describe the
// two sides of the pool before the pipeline touches any arithmetic.
func validateAccounts(req Request) error {
	if req.Pool == nil {
		return errors.New("pool is nil")
	}
	inDir, inOK := req.Pool.DirectionFor(req.InputVault)
	_, outOK := req.Pool.DirectionFor(req.OutputVault)
	if !inOK || !outOK || req.InputVault == req.OutputVault {
		return ErrVaultMismatch
	}

	switch inDir {
	case curve.ZeroForOne:
		if req.InputMint != req.Pool.Token0Mint || req.OutputMint != req.Pool.Token1Mint {
			return ErrMintMismatch
		}
	case curve.OneForZero:
		if req.InputMint != req.Pool.Token1Mint || req.OutputMint != req.Pool.Token0Mint {
			return ErrMintMismatch
		}
	}
	return nil
}
