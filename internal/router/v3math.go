package router

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// Tick bounds of the concentrated-liquidity price space.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	ErrInvalidTick      = errors.New("tick outside valid range")
	ErrPriceLimitBounds = errors.New("sqrt price outside valid range")

	q96 = new(big.Int).Lsh(big.NewInt(1), 96)

	// Sqrt price bounds matching the tick bounds.
	minSqrtRatio = big.NewInt(4295128739)
	maxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

// tickRatios are the Q128.128 multipliers for each bit of |tick|.
var tickRatios = [19]*uint256.Int{
	uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
	uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
	uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
}

var tickRatioBase = uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001")

// SqrtRatioAtTick maps a tick index to its Q64.96 sqrt price.
func SqrtRatioAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrInvalidTick
	}
	absTick := uint64(tick)
	if tick < 0 {
		absTick = uint64(-int64(tick))
	}

	ratio := new(uint256.Int)
	if absTick&1 != 0 {
		ratio.Set(tickRatioBase)
	} else {
		ratio.Lsh(uint256.NewInt(1), 128)
	}
	for bit := 0; bit < len(tickRatios); bit++ {
		if absTick&(1<<(bit+1)) != 0 {
			ratio.Mul(ratio, tickRatios[bit])
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		max := new(uint256.Int).SetAllOne()
		ratio.Div(max, ratio)
	}

	// Downcast Q128.128 to Q64.96, rounding up.
	remainder := new(uint256.Int).And(ratio, uint256.NewInt(0xFFFFFFFF))
	ratio.Rsh(ratio, 32)
	if !remainder.IsZero() {
		ratio.AddUint64(ratio, 1)
	}
	return ratio.ToBig(), nil
}

func mulDiv(a, b, denominator *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, denominator)
}

func mulDivRoundingUp(a, b, denominator *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	quotient, remainder := new(big.Int).QuoRem(product, denominator, new(big.Int))
	if remainder.Sign() != 0 {
		quotient.Add(quotient, bigOne)
	}
	return quotient
}

func divRoundingUp(a, denominator *big.Int) *big.Int {
	quotient, remainder := new(big.Int).QuoRem(a, denominator, new(big.Int))
	if remainder.Sign() != 0 {
		quotient = new(big.Int).Add(quotient, bigOne)
	}
	return quotient
}

// amount0Delta is the token0 amount between two sqrt prices at liquidity L.
func amount0Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return divRoundingUp(mulDivRoundingUp(numerator1, numerator2, sqrtB), sqrtA)
	}
	return new(big.Int).Quo(mulDiv(numerator1, numerator2, sqrtB), sqrtA)
}

// amount1Delta is the token1 amount between two sqrt prices at liquidity L.
func amount1Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, q96)
	}
	return mulDiv(liquidity, diff, q96)
}

func nextSqrtPriceFromAmount0(sqrtP, liquidity, amount *big.Int, add bool) (*big.Int, error) {
	if amount.Sign() == 0 {
		return sqrtP, nil
	}
	numerator1 := new(big.Int).Lsh(liquidity, 96)
	product := new(big.Int).Mul(amount, sqrtP)
	if add {
		denominator := new(big.Int).Add(numerator1, product)
		return mulDivRoundingUp(numerator1, sqrtP, denominator), nil
	}
	denominator := new(big.Int).Sub(numerator1, product)
	if denominator.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	return mulDivRoundingUp(numerator1, sqrtP, denominator), nil
}

func nextSqrtPriceFromAmount1(sqrtP, liquidity, amount *big.Int, add bool) (*big.Int, error) {
	shifted := new(big.Int).Lsh(amount, 96)
	if add {
		return new(big.Int).Add(sqrtP, new(big.Int).Quo(shifted, liquidity)), nil
	}
	quotient := divRoundingUp(shifted, liquidity)
	if sqrtP.Cmp(quotient) <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	return new(big.Int).Sub(sqrtP, quotient), nil
}

func nextSqrtPriceFromInput(sqrtP, liquidity, amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	if zeroForOne {
		return nextSqrtPriceFromAmount0(sqrtP, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1(sqrtP, liquidity, amountIn, true)
}

func nextSqrtPriceFromOutput(sqrtP, liquidity, amountOut *big.Int, zeroForOne bool) (*big.Int, error) {
	if zeroForOne {
		return nextSqrtPriceFromAmount1(sqrtP, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0(sqrtP, liquidity, amountOut, false)
}

// swapStep advances the price from sqrtCurrent toward sqrtTarget, consuming
// up to amountRemaining. Fee is taken from the input side in PPM.
type swapStep struct {
	sqrtNext  *big.Int
	amountIn  *big.Int
	amountOut *big.Int
	feeAmount *big.Int
}

func computeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining *big.Int, feePPM uint32, exactIn bool) (swapStep, error) {
	zeroForOne := sqrtCurrent.Cmp(sqrtTarget) >= 0
	feeFactor := big.NewInt(int64(feeDenominatorPPM - feePPM))

	var step swapStep
	var err error

	if exactIn {
		remainingLessFee := mulDiv(amountRemaining, feeFactor, bigFeeDenominator)
		if zeroForOne {
			step.amountIn = amount0Delta(sqrtTarget, sqrtCurrent, liquidity, true)
		} else {
			step.amountIn = amount1Delta(sqrtCurrent, sqrtTarget, liquidity, true)
		}
		if remainingLessFee.Cmp(step.amountIn) >= 0 {
			step.sqrtNext = sqrtTarget
		} else {
			step.sqrtNext, err = nextSqrtPriceFromInput(sqrtCurrent, liquidity, remainingLessFee, zeroForOne)
			if err != nil {
				return swapStep{}, err
			}
		}
	} else {
		if zeroForOne {
			step.amountOut = amount1Delta(sqrtTarget, sqrtCurrent, liquidity, false)
		} else {
			step.amountOut = amount0Delta(sqrtCurrent, sqrtTarget, liquidity, false)
		}
		if amountRemaining.Cmp(step.amountOut) >= 0 {
			step.sqrtNext = sqrtTarget
		} else {
			step.sqrtNext, err = nextSqrtPriceFromOutput(sqrtCurrent, liquidity, amountRemaining, zeroForOne)
			if err != nil {
				return swapStep{}, err
			}
		}
	}

	reachedTarget := step.sqrtNext.Cmp(sqrtTarget) == 0

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			step.amountIn = amount0Delta(step.sqrtNext, sqrtCurrent, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			step.amountOut = amount1Delta(step.sqrtNext, sqrtCurrent, liquidity, false)
		}
	} else {
		if !(reachedTarget && exactIn) {
			step.amountIn = amount1Delta(sqrtCurrent, step.sqrtNext, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			step.amountOut = amount0Delta(sqrtCurrent, step.sqrtNext, liquidity, false)
		}
	}

	if !exactIn && step.amountOut.Cmp(amountRemaining) > 0 {
		step.amountOut = new(big.Int).Set(amountRemaining)
	}

	if exactIn && !reachedTarget {
		// Whatever input was not consumed by the price move is the fee.
		step.feeAmount = new(big.Int).Sub(amountRemaining, step.amountIn)
	} else {
		step.feeAmount = mulDivRoundingUp(step.amountIn, big.NewInt(int64(feePPM)), feeFactor)
	}
	return step, nil
}

// SwapV3 simulates a swap against a concentrated-liquidity pool across its
// loaded tick window. Past the window the last known liquidity carries the
// price toward the global bound; running out of price space or liquidity is
// an insufficient-liquidity failure.
func SwapV3(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*big.Int, error) {
	if pool.Type != domain.PoolTypeV3 || pool.V3 == nil {
		return nil, ErrInvalidPool
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	state := pool.V3
	if state.SqrtPriceX96 == nil || state.Liquidity == nil {
		return nil, ErrInvalidPool
	}

	sqrtPrice := new(big.Int).Set(state.SqrtPriceX96)
	liquidity := new(big.Int).Set(state.Liquidity)
	tick := state.Tick
	remaining := new(big.Int).Set(amount)
	calculated := new(big.Int)

	limit := maxSqrtRatio
	if zeroForOne {
		limit = minSqrtRatio
	}

	for remaining.Sign() > 0 {
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
		if sqrtPrice.Cmp(limit) == 0 {
			return nil, ErrInsufficientLiquidity
		}

		nextTick, haveTick := nextInitializedTick(state.Ticks, tick, zeroForOne)
		sqrtTarget := limit
		if haveTick {
			var err error
			sqrtTarget, err = SqrtRatioAtTick(nextTick.Index)
			if err != nil {
				return nil, err
			}
		}

		step, err := computeSwapStep(sqrtPrice, sqrtTarget, liquidity, remaining, pool.FeePPM, exactIn)
		if err != nil {
			return nil, err
		}

		if exactIn {
			remaining.Sub(remaining, step.amountIn)
			remaining.Sub(remaining, step.feeAmount)
			calculated.Add(calculated, step.amountOut)
		} else {
			remaining.Sub(remaining, step.amountOut)
			calculated.Add(calculated, step.amountIn)
			calculated.Add(calculated, step.feeAmount)
		}
		if remaining.Sign() < 0 {
			remaining.SetInt64(0)
		}

		sqrtPrice = step.sqrtNext
		if haveTick && sqrtPrice.Cmp(sqrtTarget) == 0 {
			if zeroForOne {
				liquidity.Sub(liquidity, nextTick.LiquidityNet)
				tick = nextTick.Index - 1
			} else {
				liquidity.Add(liquidity, nextTick.LiquidityNet)
				tick = nextTick.Index
			}
		} else if remaining.Sign() > 0 {
			// Neither a tick boundary nor a full fill: no further progress
			// is possible.
			return nil, ErrInsufficientLiquidity
		}
	}
	return calculated, nil
}

// nextInitializedTick finds the next loaded tick in the swap direction.
// Ticks are sorted ascending by index.
func nextInitializedTick(ticks []domain.Tick, current int32, zeroForOne bool) (domain.Tick, bool) {
	if zeroForOne {
		for i := len(ticks) - 1; i >= 0; i-- {
			if ticks[i].Index <= current {
				return ticks[i], true
			}
		}
		return domain.Tick{}, false
	}
	for _, t := range ticks {
		if t.Index > current {
			return t, true
		}
	}
	return domain.Tick{}, false
}
