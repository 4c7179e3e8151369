package fixedpoint

import (
	"math/big"
	"sync"
)

// DecimalConfig defines fixed-point precision
type DecimalConfig struct {
	DecimalPrecision int   // Number of decimal places
	Scale            int64 // 10^DecimalPrecision
}

var (
	// AmountConfig is the coarse domain for external-facing amounts
	// (deposits, premiums, payouts).
	AmountConfig = DecimalConfig{DecimalPrecision: 6, Scale: 1_000_000} // 0.000001

	// RateConfig is the domain for annualized rates and fractions
	// (loss probability, fee rates, liquidity requirement).
	RateConfig = DecimalConfig{DecimalPrecision: 9, Scale: 1_000_000_000} // 0.000000001

	// ScaleConfig is the extended domain for the compounding scale factor.
	// Intermediate blending runs at this precision to avoid truncation bias.
	ScaleConfig = DecimalConfig{DecimalPrecision: 12, Scale: 1_000_000_000_000} // 1e-12
)

const (
	// SecondsPerYear is the annualization basis for all rates.
	SecondsPerYear = 31_536_000

	// MicrosPerSecond converts event timestamps (epoch micros) to seconds.
	MicrosPerSecond = 1_000_000

	// MinScale is the precision floor for scale factors (1e-8). Operations
	// that would push a scale below this bound must fail rather than
	// silently lose precision.
	MinScale int64 = 10_000 // at ScaleConfig precision

	// NegligibleAmount is the only tolerated imprecision (0.0001 at amount
	// precision). Residuals at or below this threshold are accounted in a
	// metric, never folded into balances.
	NegligibleAmount int64 = 100
)

// ScaleOne is the identity scale factor.
const ScaleOne int64 = 1_000_000_000_000

// Int128 is a pooled big.Int for intermediate calculations
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	int128Pool.Put(v)
}

type RoundingMode int

const (
	RoundHalfEven RoundingMode = iota // Banker's rounding (default)
	RoundDown
	RoundUp
)

// MultiplyInt128 performs a * b using int128 to prevent overflow.
// The caller must return the result via putInt128 after use; package
// functions below do this internally.
func MultiplyInt128(a, b int64) *big.Int {
	result := getInt128()
	result.Mul(big.NewInt(a), big.NewInt(b))
	return result
}

// DivideInt128 performs numerator / denominator with rounding.
// Both operands must be non-negative — all ledger quantities are unsigned
// fixed-point; signed adjustments are decomposed into magnitude + direction
// before reaching this layer.
func DivideInt128(numerator *big.Int, denominator int64, roundingMode RoundingMode) int64 {
	return divideBig(numerator, big.NewInt(denominator), roundingMode)
}

// DivideBigInt128 performs numerator / denominator where the denominator
// itself needs 128-bit width (e.g., principal × duration products).
func DivideBigInt128(numerator, denominator *big.Int, roundingMode RoundingMode) int64 {
	return divideBig(numerator, denominator, roundingMode)
}

func divideBig(numerator, denominator *big.Int, roundingMode RoundingMode) int64 {
	quotient := getInt128()
	remainder := getInt128()

	quotient.DivMod(numerator, denominator, remainder)

	result := quotient.Int64()

	switch roundingMode {
	case RoundHalfEven:
		// remainder*2 vs denominator: avoids denominator/2 truncation
		doubled := getInt128()
		doubled.Lsh(remainder, 1)
		cmp := doubled.Cmp(denominator)
		if cmp > 0 {
			result++
		} else if cmp == 0 && result%2 != 0 {
			result++
		}
		putInt128(doubled)
	case RoundUp:
		if remainder.Sign() != 0 {
			result++
		}
	case RoundDown:
		// DivMod already truncated toward zero for non-negative operands
	}

	putInt128(quotient)
	putInt128(remainder)

	return result
}

// MulDiv computes a * b / denominator with a 128-bit intermediate.
func MulDiv(a, b, denominator int64, roundingMode RoundingMode) int64 {
	numerator := MultiplyInt128(a, b)
	result := DivideInt128(numerator, denominator, roundingMode)
	putInt128(numerator)
	return result
}

// MulByRate applies a rate-precision fraction to an amount.
func MulByRate(amount, rate int64, roundingMode RoundingMode) int64 {
	return MulDiv(amount, rate, RateConfig.Scale, roundingMode)
}

// ApplyScale converts a raw amount into its current value.
func ApplyScale(raw, scale int64, roundingMode RoundingMode) int64 {
	return MulDiv(raw, scale, ScaleConfig.Scale, roundingMode)
}

// RawFromValue converts a current-value delta into a raw-amount delta
// under the given scale.
func RawFromValue(value, scale int64, roundingMode RoundingMode) int64 {
	return MulDiv(value, ScaleConfig.Scale, scale, roundingMode)
}

// ScaleFromValue recomputes the scale so that raw × scale == value.
func ScaleFromValue(value, raw int64, roundingMode RoundingMode) int64 {
	return MulDiv(value, ScaleConfig.Scale, raw, roundingMode)
}

// CompoundScale advances a scale factor over elapsed time at an annualized
// rate: scale × (1 + rate × Δt / secondsPerYear). Linear accrual between
// updates; compounding happens through repeated updates.
func CompoundScale(scale, rate, elapsedMicros int64) int64 {
	if rate == 0 || elapsedMicros <= 0 {
		return scale
	}

	// accrual = rate × elapsed / year, at rate precision
	numerator := MultiplyInt128(rate, elapsedMicros)
	accrual := DivideInt128(numerator, SecondsPerYear*MicrosPerSecond, RoundHalfEven)
	putInt128(numerator)

	return MulDiv(scale, RateConfig.Scale+accrual, RateConfig.Scale, RoundHalfEven)
}

// BlendRate computes the amount-weighted average of an existing rate and an
// added contribution: (oldRate×oldAmount + addRate×addAmount) / total.
func BlendRate(oldRate, oldAmount, addRate, addAmount int64) int64 {
	total := oldAmount + addAmount
	if total == 0 {
		return 0
	}

	term1 := MultiplyInt128(oldRate, oldAmount)
	term2 := MultiplyInt128(addRate, addAmount)
	numerator := getInt128()
	numerator.Add(term1, term2)

	result := DivideInt128(numerator, total, RoundHalfEven)

	putInt128(term1)
	putInt128(term2)
	putInt128(numerator)

	return result
}

// UnblendRate removes a weighted contribution from a blended rate:
// (oldRate×oldAmount − subRate×subAmount) / remaining, floored at zero
// so rounding in earlier blends can never produce a negative rate.
func UnblendRate(oldRate, oldAmount, subRate, subAmount int64) int64 {
	remaining := oldAmount - subAmount
	if remaining <= 0 {
		return 0
	}

	term1 := MultiplyInt128(oldRate, oldAmount)
	term2 := MultiplyInt128(subRate, subAmount)
	numerator := getInt128()
	numerator.Sub(term1, term2)

	var result int64
	if numerator.Sign() > 0 {
		result = DivideInt128(numerator, remaining, RoundHalfEven)
	}

	putInt128(term1)
	putInt128(term2)
	putInt128(numerator)

	return result
}

// AnnualizedRate derives the implied annualized rate of a return:
// share × secondsPerYear / (principal × durationSeconds), at rate precision.
// The amount scales of share and principal cancel.
func AnnualizedRate(share, principal, durationMicros int64) int64 {
	if principal <= 0 || durationMicros <= 0 {
		return 0
	}

	numerator := MultiplyInt128(share, SecondsPerYear)
	numerator.Mul(numerator, big.NewInt(MicrosPerSecond))
	numerator.Mul(numerator, big.NewInt(RateConfig.Scale))

	denominator := MultiplyInt128(principal, durationMicros)

	result := DivideBigInt128(numerator, denominator, RoundHalfEven)

	putInt128(numerator)
	putInt128(denominator)

	return result
}
