package pool

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"swapcore/internal/curve"
)

var (
	// ErrFeeExceedsBalance is returned when a fee accumulator exceeds its
	// raw vault balance. This is an internal-consistency violation and is
	// never expected in correct operation.
	ErrFeeExceedsBalance = errors.New("accrued fees exceed vault balance")

	// ErrLedgerOverflow is returned when a fee accumulator would wrap.
	ErrLedgerOverflow = errors.New("fee ledger overflow")
)

// StatusBit indexes a feature flag in the pool status bitmask. A set bit
// disables the feature, so a zero-value status means fully enabled.
type StatusBit uint8

const (
	StatusDeposit StatusBit = iota
	StatusWithdraw
	StatusSwap
)

// State is the persistent pool record. It is exclusively owned for the
// duration of one swap; mutations go through ApplySwap as a single step.
type State struct {
	Address   common.Address
	Authority common.Address

	Token0Mint  common.Address
	Token1Mint  common.Address
	Token0Vault common.Address
	Token1Vault common.Address

	Status uint8

	Fees curve.FeeConfig

	ProtocolFeesToken0 uint64
	ProtocolFeesToken1 uint64
	FundFeesToken0     uint64
	FundFeesToken1     uint64
}

// FeatureEnabled reports whether the feature behind bit is enabled.
func (s *State) FeatureEnabled(bit StatusBit) bool {
	return s.Status&(1<<bit) == 0
}

// SwapEnabled reports whether swapping is enabled on the pool.
func (s *State) SwapEnabled() bool {
	return s.FeatureEnabled(StatusSwap)
}

// DirectionFor maps an input vault to the trade direction. The second
// return is false when the vault does not belong to the pool.
func (s *State) DirectionFor(inputVault common.Address) (curve.TradeDirection, bool) {
	switch inputVault {
	case s.Token0Vault:
		return curve.ZeroForOne, true
	case s.Token1Vault:
		return curve.OneForZero, true
	default:
		return 0, false
	}
}

// NetReserves converts raw vault balances into reserves usable for
// pricing by subtracting the accrued-but-unclaimed protocol and fund fees
// on each side.
func (s *State) NetReserves(vault0Balance, vault1Balance uint64) (uint64, uint64, error) {
	net0, err := netReserve(vault0Balance, s.ProtocolFeesToken0, s.FundFeesToken0)
	if err != nil {
		return 0, 0, err
	}
	net1, err := netReserve(vault1Balance, s.ProtocolFeesToken1, s.FundFeesToken1)
	if err != nil {
		return 0, 0, err
	}
	return net0, net1, nil
}

func netReserve(balance, protocolFees, fundFees uint64) (uint64, error) {
	accrued := protocolFees + fundFees
	if accrued < protocolFees {
		return 0, ErrLedgerOverflow
	}
	if accrued > balance {
		return 0, ErrFeeExceedsBalance
	}
	return balance - accrued, nil
}

// SwapUpdate is the buffered ledger mutation of one swap, computed before
// any commit and applied only after every guard has passed.
type SwapUpdate struct {
	Direction   curve.TradeDirection
	ProtocolFee uint64
	FundFee     uint64
}

// ApplySwap adds the swap's protocol and fund fees to the accumulators of
// the input asset side. Both new values are computed before either is
// assigned, so a failure leaves the record untouched.
func (s *State) ApplySwap(update SwapUpdate) error {
	var protocolTotal, fundTotal *uint64
	switch update.Direction {
	case curve.ZeroForOne:
		protocolTotal, fundTotal = &s.ProtocolFeesToken0, &s.FundFeesToken0
	case curve.OneForZero:
		protocolTotal, fundTotal = &s.ProtocolFeesToken1, &s.FundFeesToken1
	default:
		return errors.New("invalid trade direction")
	}

	newProtocol := *protocolTotal + update.ProtocolFee
	if newProtocol < *protocolTotal {
		return ErrLedgerOverflow
	}
	newFund := *fundTotal + update.FundFee
	if newFund < *fundTotal {
		return ErrLedgerOverflow
	}

	*protocolTotal = newProtocol
	*fundTotal = newFund
	return nil
}
