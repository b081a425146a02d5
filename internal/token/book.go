package token

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownAccount is returned when a transfer references an account
	// the book has never seen.
	ErrUnknownAccount = errors.New("unknown token account")

	// ErrInsufficientFunds is returned when the debited account cannot
	// cover the transfer amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountFrozen is returned when either side of a transfer is
	// frozen.
	ErrAccountFrozen = errors.New("account is frozen")

	// ErrMintMismatch is returned when an account's mint does not match
	// the transfer's mint.
	ErrMintMismatch = errors.New("account mint mismatch")

	// ErrNotAccountOwner is returned when the signing party does not own
	// the debited account.
	ErrNotAccountOwner = errors.New("signer does not own account")
)

// Account is one token holding tracked by the book.
type Account struct {
	Address common.Address
	Mint    common.Address
	Owner   common.Address
	Balance uint64
	Frozen  bool
}

// Book is an in-memory token ledger implementing ScheduleProvider,
// Transferor, and BalanceReader. It withholds transfer fees exactly like a
// fee-extension mint would; legacy mints are entries with the zero
// schedule, so both token flavors go through the same code path.
type Book struct {
	mu        sync.RWMutex
	accounts  map[common.Address]*Account
	schedules map[common.Address]TransferFeeConfig
}

// NewBook returns an empty token book.
func NewBook() *Book {
	return &Book{
		accounts:  make(map[common.Address]*Account),
		schedules: make(map[common.Address]TransferFeeConfig),
	}
}

// AddAccount registers a token account. Re-registering an address fails.
func (b *Book) AddAccount(acct Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[acct.Address]; ok {
		return fmt.Errorf("account %s already exists", acct.Address.Hex())
	}
	copied := acct
	b.accounts[acct.Address] = &copied
	return nil
}

// SetSchedule declares the transfer-fee schedule of a mint.
func (b *Book) SetSchedule(mint common.Address, cfg TransferFeeConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.schedules[mint] = cfg
}

// ScheduleOf returns the mint's schedule, or the zero schedule if the mint
// never declared one.
func (b *Book) ScheduleOf(mint common.Address) TransferFeeConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schedules[mint]
}

// BalanceOf returns the balance of a token account.
func (b *Book) BalanceOf(account common.Address) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	acct, ok := b.accounts[account]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, account.Hex())
	}
	return acct.Balance, nil
}

// AccountFor finds the account an owner holds for a mint. When the owner
// holds several, the lowest address wins so resolution is deterministic.
func (b *Book) AccountFor(owner, mint common.Address) (common.Address, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var best common.Address
	found := false
	for addr, acct := range b.accounts {
		if acct.Owner != owner || acct.Mint != mint {
			continue
		}
		if !found || bytes.Compare(addr.Bytes(), best.Bytes()) < 0 {
			best = addr
			found = true
		}
	}
	return best, found
}

// TransferIn debits amount from the payer's source account and credits the
// vault with amount minus the mint's transfer fee.
func (b *Book) TransferIn(_ context.Context, payer, source, vault, mint common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.applyLeg(TransferLeg{Signer: payer, From: source, To: vault, Mint: mint, Amount: amount})
	return err
}

// TransferOut debits amount from the vault under the pool authority and
// credits the destination with amount minus the mint's transfer fee.
func (b *Book) TransferOut(_ context.Context, authority, vault, destination, mint common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.applyLeg(TransferLeg{Signer: authority, From: vault, To: destination, Mint: mint, Amount: amount})
	return err
}

// SwapTransfer applies the input leg and then the output leg under one
// lock. If the output leg fails the input leg is undone exactly, fee
// withholding included, so a failed swap never leaves partial balances.
func (b *Book) SwapTransfer(_ context.Context, in, out TransferLeg) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	undoIn, err := b.applyLeg(in)
	if err != nil {
		return fmt.Errorf("transfer in: %w", err)
	}
	if _, err := b.applyLeg(out); err != nil {
		undoIn()
		return fmt.Errorf("transfer out: %w", err)
	}
	return nil
}

// applyLeg moves one leg under the held lock and returns a closure
// restoring the exact balances it changed.
func (b *Book) applyLeg(leg TransferLeg) (func(), error) {
	debit, ok := b.accounts[leg.From]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, leg.From.Hex())
	}
	credit, ok := b.accounts[leg.To]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, leg.To.Hex())
	}
	if debit.Mint != leg.Mint || credit.Mint != leg.Mint {
		return nil, ErrMintMismatch
	}
	if debit.Owner != leg.Signer {
		return nil, ErrNotAccountOwner
	}
	if debit.Frozen || credit.Frozen {
		return nil, ErrAccountFrozen
	}
	if debit.Balance < leg.Amount {
		return nil, fmt.Errorf("%w: account %s has %d, needs %d", ErrInsufficientFunds, leg.From.Hex(), debit.Balance, leg.Amount)
	}

	fee := b.schedules[leg.Mint].CalculateFee(leg.Amount)
	received := leg.Amount - fee
	if credit.Balance+received < credit.Balance {
		return nil, fmt.Errorf("balance overflow on account %s", leg.To.Hex())
	}

	debit.Balance -= leg.Amount
	credit.Balance += received
	return func() {
		debit.Balance += leg.Amount
		credit.Balance -= received
	}, nil
}
