package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ReservesResult is the decoded V2 pair state for one pool.
type ReservesResult struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
	Valid    bool
	Loading  bool
}

// PoolStateV3Result is the decoded live V3 pool state.
type PoolStateV3Result struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
	Valid        bool
	Loading      bool
}

// AllowanceResult is one token allowance read for an owner/spender pair.
type AllowanceResult struct {
	Amount  *big.Int
	Valid   bool
	Loading bool
}

// TokenMetadataResult is the decoded ERC-20 metadata for one token.
type TokenMetadataResult struct {
	Decimals uint8
	Symbol   string
	Valid    bool
	Loading  bool
}

// FetchReserves reads getReserves for every pair in one batch.
func FetchReserves(ctx context.Context, cache *DataCache, pairs []common.Address) ([]ReservesResult, error) {
	pairABI, err := PairABI()
	if err != nil {
		return nil, err
	}
	callData, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, err
	}
	calls := make([]Call, len(pairs))
	for i, pair := range pairs {
		calls[i] = Call{Target: pair, CallData: callData}
	}
	raw, err := cache.Fetch(ctx, calls)
	if err != nil {
		return nil, err
	}

	results := make([]ReservesResult, len(raw))
	for i, r := range raw {
		results[i] = ReservesResult{Loading: r.Loading}
		if !r.Valid {
			continue
		}
		out, err := pairABI.Unpack("getReserves", r.ReturnData)
		if err != nil || len(out) < 2 {
			continue
		}
		results[i].Reserve0 = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
		results[i].Reserve1 = *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
		results[i].Valid = true
	}
	return results, nil
}

// FetchPoolStateV3 reads slot0 and liquidity for every pool in one batch.
// Both reads must succeed for a pool to come back valid.
func FetchPoolStateV3(ctx context.Context, cache *DataCache, pools []common.Address) ([]PoolStateV3Result, error) {
	poolABI, err := PoolV3ABI()
	if err != nil {
		return nil, err
	}
	slot0Data, err := poolABI.Pack("slot0")
	if err != nil {
		return nil, err
	}
	liquidityData, err := poolABI.Pack("liquidity")
	if err != nil {
		return nil, err
	}

	calls := make([]Call, 0, 2*len(pools))
	for _, pool := range pools {
		calls = append(calls,
			Call{Target: pool, CallData: slot0Data},
			Call{Target: pool, CallData: liquidityData},
		)
	}
	raw, err := cache.Fetch(ctx, calls)
	if err != nil {
		return nil, err
	}

	results := make([]PoolStateV3Result, len(pools))
	for i := range pools {
		slot0Res, liqRes := raw[2*i], raw[2*i+1]
		results[i] = PoolStateV3Result{Loading: slot0Res.Loading || liqRes.Loading}
		if !slot0Res.Valid || !liqRes.Valid {
			continue
		}
		slot0Out, err := poolABI.Unpack("slot0", slot0Res.ReturnData)
		if err != nil || len(slot0Out) < 2 {
			continue
		}
		liqOut, err := poolABI.Unpack("liquidity", liqRes.ReturnData)
		if err != nil || len(liqOut) < 1 {
			continue
		}
		sqrtPrice := *abi.ConvertType(slot0Out[0], new(*big.Int)).(**big.Int)
		tick := *abi.ConvertType(slot0Out[1], new(*big.Int)).(**big.Int)
		liquidity := *abi.ConvertType(liqOut[0], new(*big.Int)).(**big.Int)
		results[i].SqrtPriceX96 = sqrtPrice
		results[i].Tick = int32(tick.Int64())
		results[i].Liquidity = liquidity
		results[i].Valid = true
	}
	return results, nil
}

// FetchAllowances reads allowance(owner, spender) for every token in one
// batch.
func FetchAllowances(ctx context.Context, cache *DataCache, owner, spender common.Address, tokens []common.Address) ([]AllowanceResult, error) {
	erc20, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	callData, err := erc20.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	calls := make([]Call, len(tokens))
	for i, token := range tokens {
		calls[i] = Call{Target: token, CallData: callData}
	}
	raw, err := cache.Fetch(ctx, calls)
	if err != nil {
		return nil, err
	}

	results := make([]AllowanceResult, len(raw))
	for i, r := range raw {
		results[i] = AllowanceResult{Loading: r.Loading}
		if !r.Valid {
			continue
		}
		out, err := erc20.Unpack("allowance", r.ReturnData)
		if err != nil || len(out) < 1 {
			continue
		}
		results[i].Amount = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
		results[i].Valid = true
	}
	return results, nil
}

// PeekAllowances is the non-blocking FetchAllowances: it answers from the
// cache without dispatching a round trip. A fetch already in flight for the
// batch yields loading results; ok is false on a cold cache.
func PeekAllowances(cache *DataCache, owner, spender common.Address, tokens []common.Address) ([]AllowanceResult, bool) {
	erc20, err := ERC20ABI()
	if err != nil {
		return nil, false
	}
	callData, err := erc20.Pack("allowance", owner, spender)
	if err != nil {
		return nil, false
	}
	calls := make([]Call, len(tokens))
	for i, token := range tokens {
		calls[i] = Call{Target: token, CallData: callData}
	}
	raw, ok := cache.Peek(calls)
	if !ok {
		return nil, false
	}

	results := make([]AllowanceResult, len(raw))
	for i, r := range raw {
		results[i] = AllowanceResult{Loading: r.Loading}
		if !r.Valid {
			continue
		}
		out, err := erc20.Unpack("allowance", r.ReturnData)
		if err != nil || len(out) < 1 {
			continue
		}
		results[i].Amount = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
		results[i].Valid = true
	}
	return results, true
}

// FetchTokenMetadata reads decimals and symbol for every token in one
// batch. Non-standard tokens that fail either read come back invalid.
func FetchTokenMetadata(ctx context.Context, cache *DataCache, tokens []common.Address) ([]TokenMetadataResult, error) {
	erc20, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	decimalsData, err := erc20.Pack("decimals")
	if err != nil {
		return nil, err
	}
	symbolData, err := erc20.Pack("symbol")
	if err != nil {
		return nil, err
	}

	calls := make([]Call, 0, 2*len(tokens))
	for _, token := range tokens {
		calls = append(calls,
			Call{Target: token, CallData: decimalsData},
			Call{Target: token, CallData: symbolData},
		)
	}
	raw, err := cache.Fetch(ctx, calls)
	if err != nil {
		return nil, err
	}

	results := make([]TokenMetadataResult, len(tokens))
	for i := range tokens {
		decRes, symRes := raw[2*i], raw[2*i+1]
		results[i] = TokenMetadataResult{Loading: decRes.Loading || symRes.Loading}
		if !decRes.Valid || !symRes.Valid {
			continue
		}
		decOut, err := erc20.Unpack("decimals", decRes.ReturnData)
		if err != nil || len(decOut) < 1 {
			continue
		}
		symOut, err := erc20.Unpack("symbol", symRes.ReturnData)
		if err != nil || len(symOut) < 1 {
			continue
		}
		results[i].Decimals = *abi.ConvertType(decOut[0], new(uint8)).(*uint8)
		results[i].Symbol = *abi.ConvertType(symOut[0], new(string)).(*string)
		results[i].Valid = true
	}
	return results, nil
}
