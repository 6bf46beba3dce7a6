package types

import (
	"errors"
	"math"
	"math/bits"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrOverflow is returned when amount arithmetic leaves the representable range.
var ErrOverflow = errors.New("types: amount overflow")

// ErrNegative is returned when a subtraction would produce a negative amount.
var ErrNegative = errors.New("types: negative amount")

// Amount is a quantity of the ledger's native currency in its smallest unit.
// Amounts are never negative; all arithmetic is integer-only and checked.
type Amount int64

// MaxAmount is the largest representable amount.
const MaxAmount = Amount(math.MaxInt64)

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative returns true if the amount is below zero. Valid ledger amounts
// never are; this exists for input validation.
func (a Amount) IsNegative() bool { return a < 0 }

// Add returns a+b, or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	if b > 0 && a > MaxAmount-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b, or ErrNegative when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ErrNegative
	}
	return a - b, nil
}

// Mul returns a*n, or ErrOverflow.
func (a Amount) Mul(n uint64) (Amount, error) {
	if a < 0 {
		return 0, ErrNegative
	}
	hi, lo := bits.Mul64(uint64(a), n)
	if hi != 0 || lo > uint64(MaxAmount) {
		return 0, ErrOverflow
	}
	return Amount(lo), nil
}

// Major returns the amount scaled down by decimals places, e.g. wei to ether
// with decimals=18 or cents to dollars with decimals=2.
func (a Amount) Major(decimals int32) decimal.Decimal {
	return decimal.New(int64(a), -decimals)
}

// String returns the amount in smallest units.
func (a Amount) String() string {
	return strconv.FormatInt(int64(a), 10)
}

// BasisPoints is a rate in hundredths of a percent (10000 = 100%).
type BasisPoints uint32

// BasisPointsDenominator is the basis-point value of 100%.
const BasisPointsDenominator BasisPoints = 10000

// Of returns floor(a × b / 10000). It panics if b exceeds 100%, which
// callers rule out before a rate is ever stored.
func (b BasisPoints) Of(a Amount) Amount {
	if b > BasisPointsDenominator {
		panic("types: basis points above 100%")
	}
	if a <= 0 || b == 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, uint64(BasisPointsDenominator))
	return Amount(q)
}

// Percent returns the rate as a percentage, e.g. 250 → 2.5.
func (b BasisPoints) Percent() decimal.Decimal {
	return decimal.New(int64(b), -2)
}

// String returns the rate with a "bps" suffix.
func (b BasisPoints) String() string {
	return strconv.FormatUint(uint64(b), 10) + "bps"
}
