package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ScheduleProvider resolves the transfer-fee schedule of a mint. Mints
// without the fee extension resolve to the zero schedule.
type ScheduleProvider interface {
	ScheduleOf(mint common.Address) TransferFeeConfig
}

// TransferLeg is one scheduled movement of tokens: Signer must own the
// From account, and the mint's transfer fee, if any, is withheld from the
// amount credited to To.
type TransferLeg struct {
	Signer common.Address
	From   common.Address
	To     common.Address
	Mint   common.Address
	Amount uint64
}

// Transferor executes token transfers on behalf of the swap core. Either
// leg may fail for reasons external to the core (insufficient balance,
// frozen account); such a failure aborts the whole swap.
type Transferor interface {
	// SwapTransfer moves the user-to-vault leg and then the vault-to-user
	// leg. Implementations apply both legs or neither.
	SwapTransfer(ctx context.Context, in, out TransferLeg) error
}

// BalanceReader exposes raw vault balances.
type BalanceReader interface {
	BalanceOf(account common.Address) (uint64, error)
}
