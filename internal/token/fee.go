package token

import (
	"errors"

	"github.com/holiman/uint256"
)

// MaxTransferFeeBasisPoints is the full-rate bound of a transfer-fee
// schedule: 10_000 basis points is a 100% fee.
const MaxTransferFeeBasisPoints = 10_000

// ErrFeeCalculationOverflow is returned when a transfer-fee computation
// leaves the 64-bit domain.
var ErrFeeCalculationOverflow = errors.New("transfer fee calculation overflow")

// TransferFeeConfig describes the fee a mint's own transfer mechanism
// withholds on every transfer. The zero value is the implicit schedule of
// mints without the fee extension: no fee is ever charged.
type TransferFeeConfig struct {
	TransferFeeBasisPoints uint16
	MaximumFee             uint64
}

// IsZero reports whether the schedule never charges a fee.
func (c TransferFeeConfig) IsZero() bool {
	return c.TransferFeeBasisPoints == 0
}

// CalculateFee returns the fee withheld when amount is transferred:
// min(MaximumFee, ceil(amount * basisPoints / 10_000)).
func (c TransferFeeConfig) CalculateFee(amount uint64) uint64 {
	if c.TransferFeeBasisPoints == 0 || amount == 0 {
		return 0
	}
	fee := ceilDiv(
		new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(c.TransferFeeBasisPoints))),
		uint256.NewInt(MaxTransferFeeBasisPoints),
	)
	if !fee.IsUint64() || fee.Uint64() > c.MaximumFee {
		return c.MaximumFee
	}
	return fee.Uint64()
}

// CalculatePreFeeAmount returns the minimal gross amount whose transfer
// delivers at least postFeeAmount net of the fee. Once the basis-point fee
// saturates at MaximumFee the gross amount is postFeeAmount + MaximumFee;
// below saturation it is the ceiling-rounded algebraic inverse.
func (c TransferFeeConfig) CalculatePreFeeAmount(postFeeAmount uint64) (uint64, error) {
	switch {
	case c.TransferFeeBasisPoints == 0:
		return postFeeAmount, nil
	case postFeeAmount == 0:
		return 0, nil
	case c.TransferFeeBasisPoints == MaxTransferFeeBasisPoints:
		return checkedAdd(postFeeAmount, c.MaximumFee)
	}

	numerator := new(uint256.Int).Mul(
		uint256.NewInt(postFeeAmount),
		uint256.NewInt(MaxTransferFeeBasisPoints),
	)
	denominator := uint256.NewInt(MaxTransferFeeBasisPoints - uint64(c.TransferFeeBasisPoints))
	rawPreFee := ceilDiv(numerator, denominator)

	fee := new(uint256.Int).Sub(rawPreFee, uint256.NewInt(postFeeAmount))
	if fee.CmpUint64(c.MaximumFee) >= 0 {
		return checkedAdd(postFeeAmount, c.MaximumFee)
	}
	if !rawPreFee.IsUint64() {
		return 0, ErrFeeCalculationOverflow
	}
	return rawPreFee.Uint64(), nil
}

// CalculateInverseFee returns the fee that must be added on top of
// postFeeAmount so that the transfer delivers postFeeAmount net.
func (c TransferFeeConfig) CalculateInverseFee(postFeeAmount uint64) (uint64, error) {
	preFee, err := c.CalculatePreFeeAmount(postFeeAmount)
	if err != nil {
		return 0, err
	}
	return preFee - postFeeAmount, nil
}

func ceilDiv(numerator, denominator *uint256.Int) *uint256.Int {
	quotient := new(uint256.Int)
	remainder := new(uint256.Int)
	quotient.DivMod(numerator, denominator, remainder)
	if !remainder.IsZero() {
		quotient.AddUint64(quotient, 1)
	}
	return quotient
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrFeeCalculationOverflow
	}
	return sum, nil
}
