package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrInvariantViolation is returned when a trade would decrease the
// constant product of the reserves. It signals a curve or fee
// configuration defect, never a user error.
var ErrInvariantViolation = errors.New("constant product invariant violated")

// CheckInvariant verifies that the post-trade product of reserves is not
// below the pre-trade product. Products are taken at 128-bit width so two
// full 64-bit reserves can never wrap.
func CheckInvariant(totalInput, totalOutput, newSourceReserve, newDestinationReserve uint64) error {
	before := new(uint256.Int).Mul(uint256.NewInt(totalInput), uint256.NewInt(totalOutput))
	after := new(uint256.Int).Mul(uint256.NewInt(newSourceReserve), uint256.NewInt(newDestinationReserve))
	if after.Lt(before) {
		return ErrInvariantViolation
	}
	return nil
}
