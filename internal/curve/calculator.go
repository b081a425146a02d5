package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// FeeRateDenominator is the fixed denominator for all fee rates.
const FeeRateDenominator = 1_000_000

var (
	// ErrZeroTradingTokens is returned when a trade degenerates to zero on
	// either side of the curve.
	ErrZeroTradingTokens = errors.New("zero trading tokens")

	// ErrMathOverflow is returned when a checked computation leaves the
	// 64-bit domain.
	ErrMathOverflow = errors.New("math overflow")
)

// TradeDirection identifies which pool asset is being sold.
type TradeDirection uint8

const (
	// ZeroForOne sells asset 0 for asset 1.
	ZeroForOne TradeDirection = iota
	// OneForZero sells asset 1 for asset 0.
	OneForZero
)

func (d TradeDirection) String() string {
	switch d {
	case ZeroForOne:
		return "zero_for_one"
	case OneForZero:
		return "one_for_zero"
	default:
		return "unknown"
	}
}

// FeeConfig holds the pool fee rates as numerators over FeeRateDenominator.
// Protocol and fund rates are sub-shares of the trade fee.
type FeeConfig struct {
	TradeFeeRate    uint64
	ProtocolFeeRate uint64
	FundFeeRate     uint64
}

// SwapResult is the atomic outcome of one curve evaluation.
type SwapResult struct {
	NewSourceReserve         uint64
	NewDestinationReserve    uint64
	SourceAmountSwapped      uint64
	DestinationAmountSwapped uint64
	ProtocolFee              uint64
	FundFee                  uint64
}

// Swap prices a trade of actualAmountIn (already net of any input-side
// transfer fee) against the net reserves totalInput/totalOutput.
//
// The trade fee is floored out of the input before the exchange formula is
// applied; the protocol and fund fees are floored sub-shares carved out of
// the trade fee and removed from the post-trade source reserve, while the
// remainder of the trade fee stays in the reserve. All divisions truncate
// toward zero and every intermediate product is computed in 128-bit width.
func Swap(actualAmountIn, totalInput, totalOutput uint64, fees FeeConfig) (SwapResult, error) {
	if actualAmountIn == 0 || totalOutput == 0 {
		return SwapResult{}, ErrZeroTradingTokens
	}

	tradeFee := mulDivFloor(actualAmountIn, fees.TradeFeeRate, FeeRateDenominator)
	protocolFee := mulDivFloor(tradeFee, fees.ProtocolFeeRate, FeeRateDenominator)
	fundFee := mulDivFloor(tradeFee, fees.FundFeeRate, FeeRateDenominator)

	amountInAfterFee := actualAmountIn - tradeFee

	numerator := new(uint256.Int).Mul(
		uint256.NewInt(totalOutput),
		uint256.NewInt(amountInAfterFee),
	)
	denominator := new(uint256.Int).Add(
		uint256.NewInt(totalInput),
		uint256.NewInt(amountInAfterFee),
	)
	amountOut := numerator.Div(numerator, denominator)
	if amountOut.IsZero() {
		return SwapResult{}, ErrZeroTradingTokens
	}
	destinationAmountSwapped := amountOut.Uint64()

	// totalInput + actualAmountIn - protocolFee - fundFee, checked back into
	// the 64-bit domain.
	newSource := new(uint256.Int).Add(
		uint256.NewInt(totalInput),
		uint256.NewInt(actualAmountIn),
	)
	newSource.Sub(newSource, uint256.NewInt(protocolFee))
	newSource.Sub(newSource, uint256.NewInt(fundFee))
	if !newSource.IsUint64() {
		return SwapResult{}, ErrMathOverflow
	}

	return SwapResult{
		NewSourceReserve:         newSource.Uint64(),
		NewDestinationReserve:    totalOutput - destinationAmountSwapped,
		SourceAmountSwapped:      actualAmountIn,
		DestinationAmountSwapped: destinationAmountSwapped,
		ProtocolFee:              protocolFee,
		FundFee:                  fundFee,
	}, nil
}

// mulDivFloor computes floor(a * b / denom) with a 128-bit intermediate
// product. denom must be non-zero.
func mulDivFloor(a, b, denom uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	product.Div(product, uint256.NewInt(denom))
	return product.Uint64()
}
