package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapcore/internal/curve"
	"swapcore/internal/pool"
	"swapcore/internal/token"
)

var (
	mint0     = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	mint1     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	vault0    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	vault1    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	authority = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	payer     = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	userSrc   = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	userDst   = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	poolAddr  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
)

func newFixture(t *testing.T) (*Engine, *pool.State, *token.Book) {
	t.Helper()

	book := token.NewBook()
	accounts := []token.Account{
		{Address: vault0, Mint: mint0, Owner: authority, Balance: 1_000_000},
		{Address: vault1, Mint: mint1, Owner: authority, Balance: 2_000_000},
		{Address: userSrc, Mint: mint0, Owner: payer, Balance: 1_000_000},
		{Address: userDst, Mint: mint1, Owner: payer, Balance: 0},
	}
	for _, acct := range accounts {
		if err := book.AddAccount(acct); err != nil {
			t.Fatalf("add account: %v", err)
		}
	}

	state := &pool.State{
		Address:     poolAddr,
		Authority:   authority,
		Token0Mint:  mint0,
		Token1Mint:  mint1,
		Token0Vault: vault0,
		Token1Vault: vault1,
		Fees: curve.FeeConfig{
			TradeFeeRate:    2500,
			ProtocolFeeRate: 120000,
			FundFeeRate:     40000,
		},
	}

	return New(nil, book, book, book), state, book
}

func baseRequest(state *pool.State) Request {
	return Request{
		Pool:             state,
		Payer:            payer,
		UserSource:       userSrc,
		UserDestination:  userDst,
		InputVault:       vault0,
		OutputVault:      vault1,
		InputMint:        mint0,
		OutputMint:       mint1,
		AmountIn:         10_000,
		MinimumAmountOut: 1,
	}
}

func mustBalance(t *testing.T, book *token.Book, account common.Address) uint64 {
	t.Helper()
	balance, err := book.BalanceOf(account)
	if err != nil {
		t.Fatalf("balance of %s: %v", account.Hex(), err)
	}
	return balance
}

func TestSwapHappyPath(t *testing.T) {
	eng, state, book := newFixture(t)

	outcome, err := eng.Swap(context.Background(), baseRequest(state))
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}

	if outcome.Direction != curve.ZeroForOne {
		t.Fatalf("direction mismatch: %v", outcome.Direction)
	}
	if outcome.ActualAmountIn != 10_000 || outcome.AmountReceived != 19_752 {
		t.Fatalf("amounts mismatch: %+v", outcome)
	}
	if outcome.ProtocolFee != 3 || outcome.FundFee != 1 {
		t.Fatalf("fees mismatch: %+v", outcome)
	}
	if outcome.NewSourceReserve != 1_009_996 || outcome.NewDestinationReserve != 1_980_248 {
		t.Fatalf("reserves mismatch: %+v", outcome)
	}

	if state.ProtocolFeesToken0 != 3 || state.FundFeesToken0 != 1 {
		t.Fatalf("ledger mismatch: %d, %d", state.ProtocolFeesToken0, state.FundFeesToken0)
	}
	if got := mustBalance(t, book, vault0); got != 1_010_000 {
		t.Fatalf("input vault balance mismatch: %d", got)
	}
	if got := mustBalance(t, book, vault1); got != 2_000_000-19_752 {
		t.Fatalf("output vault balance mismatch: %d", got)
	}
	if got := mustBalance(t, book, userDst); got != 19_752 {
		t.Fatalf("user destination balance mismatch: %d", got)
	}
}

func TestSwapOppositeDirection(t *testing.T) {
	eng, state, book := newFixture(t)

	req := baseRequest(state)
	req.UserSource, req.UserDestination = userDst, userSrc
	req.InputVault, req.OutputVault = vault1, vault0
	req.InputMint, req.OutputMint = mint1, mint0

	// Give the payer something to sell on the token-1 side.
	if err := book.TransferOut(context.Background(), authority, vault1, userDst, mint1, 100_000); err != nil {
		t.Fatalf("seed transfer failed: %v", err)
	}

	outcome, err := eng.Swap(context.Background(), req)
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if outcome.Direction != curve.OneForZero {
		t.Fatalf("direction mismatch: %v", outcome.Direction)
	}
	if state.ProtocolFeesToken1 != outcome.ProtocolFee || state.FundFeesToken1 != outcome.FundFee {
		t.Fatalf("token1 ledger mismatch: %+v", state)
	}
	if state.ProtocolFeesToken0 != 0 || state.FundFeesToken0 != 0 {
		t.Fatalf("token0 ledger must be untouched")
	}
}

func TestSwapNotApproved(t *testing.T) {
	eng, state, book := newFixture(t)
	state.Status = 1 << pool.StatusSwap

	_, err := eng.Swap(context.Background(), baseRequest(state))
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
	if got := mustBalance(t, book, vault0); got != 1_000_000 {
		t.Fatalf("vault mutated on rejection: %d", got)
	}
}

func TestSwapZeroAmount(t *testing.T) {
	eng, state, _ := newFixture(t)
	req := baseRequest(state)
	req.AmountIn = 0

	_, err := eng.Swap(context.Background(), req)
	if !errors.Is(err, curve.ErrZeroTradingTokens) {
		t.Fatalf("expected ErrZeroTradingTokens, got %v", err)
	}
	if state.ProtocolFeesToken0 != 0 {
		t.Fatalf("ledger mutated on rejection")
	}
}

func TestSwapExceededSlippage(t *testing.T) {
	eng, state, book := newFixture(t)
	req := baseRequest(state)
	req.MinimumAmountOut = 20_000

	_, err := eng.Swap(context.Background(), req)
	if !errors.Is(err, ErrExceededSlippage) {
		t.Fatalf("expected ErrExceededSlippage, got %v", err)
	}
	if state.ProtocolFeesToken0 != 0 || state.FundFeesToken0 != 0 {
		t.Fatalf("ledger mutated on slippage failure")
	}
	if got := mustBalance(t, book, vault0); got != 1_000_000 {
		t.Fatalf("vault mutated on slippage failure: %d", got)
	}
	if got := mustBalance(t, book, userSrc); got != 1_000_000 {
		t.Fatalf("user account mutated on slippage failure: %d", got)
	}
}

func TestSwapTransferFailureLeavesLedgerUntouched(t *testing.T) {
	eng, state, book := newFixture(t)
	req := baseRequest(state)
	req.AmountIn = 10_000

	// Drain the payer below the transfer amount; pricing succeeds but the
	// transfer aborts the swap.
	if err := book.TransferIn(context.Background(), payer, userSrc, vault0, mint0, 995_000); err != nil {
		t.Fatalf("seed transfer failed: %v", err)
	}

	_, err := eng.Swap(context.Background(), req)
	if !errors.Is(err, token.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if state.ProtocolFeesToken0 != 0 || state.FundFeesToken0 != 0 {
		t.Fatalf("ledger mutated on transfer failure")
	}
}

func TestSwapFrozenDestinationLeavesBalances(t *testing.T) {
	book := token.NewBook()
	accounts := []token.Account{
		{Address: vault0, Mint: mint0, Owner: authority, Balance: 1_000_000},
		{Address: vault1, Mint: mint1, Owner: authority, Balance: 2_000_000},
		{Address: userSrc, Mint: mint0, Owner: payer, Balance: 1_000_000},
		{Address: userDst, Mint: mint1, Owner: payer, Frozen: true},
	}
	for _, acct := range accounts {
		if err := book.AddAccount(acct); err != nil {
			t.Fatalf("add account: %v", err)
		}
	}
	state := &pool.State{
		Address:     poolAddr,
		Authority:   authority,
		Token0Mint:  mint0,
		Token1Mint:  mint1,
		Token0Vault: vault0,
		Token1Vault: vault1,
		Fees: curve.FeeConfig{
			TradeFeeRate:    2500,
			ProtocolFeeRate: 120000,
			FundFeeRate:     40000,
		},
	}
	eng := New(nil, book, book, book)

	// The input leg succeeds in isolation; the frozen destination fails the
	// output leg, and the payer's debit must be undone with it.
	_, err := eng.Swap(context.Background(), baseRequest(state))
	if !errors.Is(err, token.ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
	if got := mustBalance(t, book, userSrc); got != 1_000_000 {
		t.Fatalf("user source mutated: %d", got)
	}
	if got := mustBalance(t, book, vault0); got != 1_000_000 {
		t.Fatalf("input vault mutated: %d", got)
	}
	if got := mustBalance(t, book, vault1); got != 2_000_000 {
		t.Fatalf("output vault mutated: %d", got)
	}
	if state.ProtocolFeesToken0 != 0 || state.FundFeesToken0 != 0 {
		t.Fatalf("ledger mutated on transfer failure")
	}
}

func TestSwapWithTransferFeeMints(t *testing.T) {
	eng, state, book := newFixture(t)
	book.SetSchedule(mint0, token.TransferFeeConfig{TransferFeeBasisPoints: 100, MaximumFee: 1 << 60})
	book.SetSchedule(mint1, token.TransferFeeConfig{TransferFeeBasisPoints: 500, MaximumFee: 1 << 60})

	req := baseRequest(state)
	outcome, err := eng.Swap(context.Background(), req)
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}

	// 1% is stripped from the declared input, and the gross transfer is
	// sized so the vault nets exactly the curve's source amount.
	if outcome.ActualAmountIn != 9_900 {
		t.Fatalf("actual amount mismatch: %d", outcome.ActualAmountIn)
	}
	if outcome.InputTransferAmount != 10_000 {
		t.Fatalf("input transfer mismatch: %d", outcome.InputTransferAmount)
	}
	if got := mustBalance(t, book, vault0); got != 1_000_000+9_900 {
		t.Fatalf("vault nets mismatch: %d", got)
	}

	// The user receives the curve output net of the 5% output-side fee.
	if outcome.AmountReceived >= outcome.OutputTransferAmount {
		t.Fatalf("output fee was not withheld: %+v", outcome)
	}
	if got := mustBalance(t, book, userDst); got != outcome.AmountReceived {
		t.Fatalf("user received %d, outcome says %d", got, outcome.AmountReceived)
	}
}

func TestSwapVaultAndMintValidation(t *testing.T) {
	eng, state, _ := newFixture(t)

	req := baseRequest(state)
	req.InputVault = common.HexToAddress("0xdead")
	if _, err := eng.Swap(context.Background(), req); !errors.Is(err, ErrVaultMismatch) {
		t.Fatalf("expected ErrVaultMismatch, got %v", err)
	}

	req = baseRequest(state)
	req.InputMint = mint1
	if _, err := eng.Swap(context.Background(), req); !errors.Is(err, ErrMintMismatch) {
		t.Fatalf("expected ErrMintMismatch, got %v", err)
	}
}

func TestQuoteDoesNotMutate(t *testing.T) {
	eng, state, book := newFixture(t)

	outcome, err := eng.Quote(context.Background(), baseRequest(state))
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if outcome.AmountReceived != 19_752 {
		t.Fatalf("quote amount mismatch: %d", outcome.AmountReceived)
	}
	if state.ProtocolFeesToken0 != 0 {
		t.Fatalf("quote mutated the ledger")
	}
	if got := mustBalance(t, book, vault0); got != 1_000_000 {
		t.Fatalf("quote mutated balances: %d", got)
	}
}
