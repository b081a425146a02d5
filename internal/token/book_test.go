package token

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testMint  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testPayer = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testUser  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testVault = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	book := NewBook()
	accounts := []Account{
		{Address: testUser, Mint: testMint, Owner: testPayer, Balance: 10_000},
		{Address: testVault, Mint: testMint, Owner: testPayer, Balance: 500},
	}
	for _, acct := range accounts {
		if err := book.AddAccount(acct); err != nil {
			t.Fatalf("add account: %v", err)
		}
	}
	return book
}

func TestBookTransferWithoutSchedule(t *testing.T) {
	book := newTestBook(t)

	if err := book.TransferIn(context.Background(), testPayer, testUser, testVault, testMint, 1_000); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	userBalance, err := book.BalanceOf(testUser)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	vaultBalance, err := book.BalanceOf(testVault)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if userBalance != 9_000 || vaultBalance != 1_500 {
		t.Fatalf("balances mismatch: user=%d vault=%d", userBalance, vaultBalance)
	}
}

func TestBookWithholdsTransferFee(t *testing.T) {
	book := newTestBook(t)
	book.SetSchedule(testMint, TransferFeeConfig{TransferFeeBasisPoints: 100, MaximumFee: 5})

	if err := book.TransferIn(context.Background(), testPayer, testUser, testVault, testMint, 1_000); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	// 1% of 1000 is 10, capped at 5; the vault receives the net.
	vaultBalance, _ := book.BalanceOf(testVault)
	if vaultBalance != 500+995 {
		t.Fatalf("vault balance mismatch: got %d want %d", vaultBalance, 500+995)
	}
	userBalance, _ := book.BalanceOf(testUser)
	if userBalance != 9_000 {
		t.Fatalf("user balance mismatch: got %d want 9000", userBalance)
	}
}

func TestBookTransferFailures(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	if err := book.TransferIn(ctx, testPayer, testUser, testVault, testMint, 100_000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := book.TransferIn(ctx, testUser, testUser, testVault, testMint, 1); !errors.Is(err, ErrNotAccountOwner) {
		t.Fatalf("expected ErrNotAccountOwner, got %v", err)
	}
	otherMint := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	if err := book.TransferIn(ctx, testPayer, testUser, testVault, otherMint, 1); !errors.Is(err, ErrMintMismatch) {
		t.Fatalf("expected ErrMintMismatch, got %v", err)
	}
	missing := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	if err := book.TransferIn(ctx, testPayer, missing, testVault, testMint, 1); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestBookFrozenAccount(t *testing.T) {
	book := newTestBook(t)
	frozen := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	if err := book.AddAccount(Account{Address: frozen, Mint: testMint, Owner: testPayer, Balance: 10, Frozen: true}); err != nil {
		t.Fatalf("add account: %v", err)
	}
	if err := book.TransferIn(context.Background(), testPayer, frozen, testVault, testMint, 1); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
}

func TestBookSwapTransferIsAtomic(t *testing.T) {
	book := newTestBook(t)
	book.SetSchedule(testMint, TransferFeeConfig{TransferFeeBasisPoints: 100, MaximumFee: 5})
	frozen := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	if err := book.AddAccount(Account{Address: frozen, Mint: testMint, Owner: testPayer, Frozen: true}); err != nil {
		t.Fatalf("add account: %v", err)
	}

	in := TransferLeg{Signer: testPayer, From: testUser, To: testVault, Mint: testMint, Amount: 1_000}
	out := TransferLeg{Signer: testPayer, From: testVault, To: frozen, Mint: testMint, Amount: 200}
	err := book.SwapTransfer(context.Background(), in, out)
	if !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}

	// The input leg, fee withholding included, must have been undone.
	userBalance, _ := book.BalanceOf(testUser)
	vaultBalance, _ := book.BalanceOf(testVault)
	if userBalance != 10_000 || vaultBalance != 500 {
		t.Fatalf("balances not restored: user=%d vault=%d", userBalance, vaultBalance)
	}

	if err := book.SwapTransfer(context.Background(), in, TransferLeg{Signer: testPayer, From: testVault, To: testUser, Mint: testMint, Amount: 200}); err != nil {
		t.Fatalf("swap transfer failed: %v", err)
	}
	vaultBalance, _ = book.BalanceOf(testVault)
	if vaultBalance != 500+995-200 {
		t.Fatalf("vault balance mismatch: %d", vaultBalance)
	}
}

func TestBookAccountFor(t *testing.T) {
	book := newTestBook(t)
	addr, ok := book.AccountFor(testPayer, testMint)
	if !ok {
		t.Fatalf("account not found")
	}
	// testUser and testVault both match; the lower address wins.
	if addr != testUser {
		t.Fatalf("expected %s, got %s", testUser.Hex(), addr.Hex())
	}
	if _, ok := book.AccountFor(testUser, testMint); ok {
		t.Fatalf("expected no account for non-owner")
	}
}
