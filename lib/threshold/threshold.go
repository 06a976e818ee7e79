// Package threshold decides whether an aggregate balance meets a minimum amount.
package threshold

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the number of decimals assumed for amounts when none is given (ether and most ERC20 tokens).
const DefaultDecimals int32 = 18

// MaxDecimals is the largest number of decimals of an amount, the range of the ERC20 decimals() uint8.
const MaxDecimals int32 = 255

// ErrDecimals is returned for decimals out of [0, MaxDecimals].
var ErrDecimals = errors.New("invalid decimals")

// BelowMinimum is the message prefix of a failed evaluation.
const BelowMinimum = "The combined wallets did not meet the minimum requirement."

// Outcome is the result of an evaluation. When Valid, Message is the aggregate balance in smallest units.
type Outcome struct {
	Valid   bool
	Message string
	Minimum *big.Int // minimum in smallest units
}

// ScaleMinimum converts minimum to smallest units: minimum * 10^decimals, truncating any fraction left.
func ScaleMinimum(minimum decimal.Decimal, decimals int32) (*big.Int, error) {
	if err := CheckDecimals(decimals); err != nil {
		return nil, err
	}

	return minimum.Shift(decimals).BigInt(), nil
}

// CheckDecimals returns ErrDecimals if decimals is out of [0, MaxDecimals].
func CheckDecimals(decimals int32) error {
	if decimals < 0 || decimals > MaxDecimals {
		return fmt.Errorf("%w %d: must be between 0 and %d", ErrDecimals, decimals, MaxDecimals)
	}

	return nil
}

// Evaluate compares total, in smallest units, against minimum scaled by decimals. The comparison is inclusive.
func Evaluate(total *big.Int, minimum decimal.Decimal, decimals int32) (Outcome, error) {
	min, err := ScaleMinimum(minimum, decimals)
	if err != nil {
		return Outcome{}, err
	}

	if total.Cmp(min) >= 0 {
		return Outcome{Valid: true, Message: total.String(), Minimum: min}, nil
	}

	return Outcome{
		Valid:   false,
		Message: fmt.Sprintf("%s Aggregate balance: %s", BelowMinimum, total.String()),
		Minimum: min,
	}, nil
}
