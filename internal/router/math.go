package router

import (
	"math/big"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// feeDenominatorPPM is the parts-per-million fee basis shared by both pool
// kinds. A 0.30% pool carries FeePPM 3000.
const feeDenominatorPPM = 1_000_000

var (
	bigFeeDenominator = big.NewInt(feeDenominatorPPM)
	bigOne            = big.NewInt(1)
)

// GetAmountOut computes the constant-product output for an exact input
// against (reserveIn, reserveOut), fee taken from the input side.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int, feePPM uint32) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(feeDenominatorPPM-feePPM)))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, bigFeeDenominator)
	denominator.Add(denominator, inWithFee)

	return numerator.Quo(numerator, denominator), nil
}

// GetAmountIn computes the constant-product input required for an exact
// output, rounded up so the pool invariant holds after the swap.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int, feePPM uint32) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrAmountTooLarge
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, bigFeeDenominator)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, big.NewInt(int64(feeDenominatorPPM-feePPM)))

	amountIn := numerator.Quo(numerator, denominator)
	return amountIn.Add(amountIn, bigOne), nil
}

// SwapV2 runs one V2 hop in the given direction. zeroForOne means the input
// token is token0.
func SwapV2(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*big.Int, error) {
	if pool.Type != domain.PoolTypeV2 || pool.V2 == nil {
		return nil, ErrInvalidPool
	}
	reserveIn, reserveOut := pool.V2.Reserve0, pool.V2.Reserve1
	if !zeroForOne {
		reserveIn, reserveOut = reserveOut, reserveIn
	}
	if exactIn {
		return GetAmountOut(amount, reserveIn, reserveOut, pool.FeePPM)
	}
	return GetAmountIn(amount, reserveIn, reserveOut, pool.FeePPM)
}
