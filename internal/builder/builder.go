package builder

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/approval"
	"github.com/hazeflow/swap-engine/internal/chain"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/router"
)

var (
	ErrNilTrade         = errors.New("builder: nil trade")
	ErrEmptyTrade       = errors.New("builder: trade has no swaps")
	ErrSplitUnsupported = errors.New("builder: split trades need the combined router")
	ErrNoRecipient      = errors.New("builder: zero recipient")
	ErrSpenderMismatch  = errors.New("builder: spender cannot execute this trade shape")
)

// DefaultDeadlineWindow bounds how long a submitted swap stays valid.
const DefaultDeadlineWindow = 20 * time.Minute

// SwapCall is a fully assembled swap transaction, ready for the external
// signer. AmountBound is the slippage bound the calldata enforces: minimum
// output for EXACT_INPUT, maximum input for EXACT_OUTPUT.
type SwapCall struct {
	To          common.Address
	Value       *big.Int
	Data        []byte
	Deadline    *big.Int
	AmountBound *big.Int
	GasEstimate uint64
	Spender     approval.Spender
}

// Builder assembles router calldata for evaluated trades.
type Builder struct {
	addrs  approval.Addresses
	window time.Duration
}

func New(addrs approval.Addresses, deadlineWindow time.Duration) *Builder {
	if deadlineWindow <= 0 {
		deadlineWindow = DefaultDeadlineWindow
	}
	return &Builder{addrs: addrs, window: deadlineWindow}
}

// Build assembles the call for trade through the router its shape selects:
// pure single-route V2 trades go to the legacy router, pure single-route V3
// trades to the V3 router, everything else to the combined router.
func (b *Builder) Build(trade *domain.Trade, recipient common.Address, slippageBps uint32, now time.Time) (*SwapCall, error) {
	return b.BuildFor(trade, approval.SpenderForTrade(trade), recipient, slippageBps, now)
}

// BuildFor assembles the call for trade through the given router, so a
// caller holding an allowance-resolved spender gets calldata targeting the
// contract that was actually approved. An undetermined spender falls back
// to the combined router; it executes every trade shape. A protocol router
// asked to execute a shape it cannot handle is ErrSpenderMismatch.
func (b *Builder) BuildFor(trade *domain.Trade, spender approval.Spender, recipient common.Address, slippageBps uint32, now time.Time) (*SwapCall, error) {
	if trade == nil {
		return nil, ErrNilTrade
	}
	if len(trade.Swaps) == 0 {
		return nil, ErrEmptyTrade
	}
	if recipient == (common.Address{}) {
		return nil, ErrNoRecipient
	}
	if spender == approval.SpenderUndetermined {
		spender = approval.SpenderCombined
	}

	deadline := new(big.Int).SetInt64(now.Add(b.window).Unix())

	var (
		call *SwapCall
		err  error
	)
	switch spender {
	case approval.SpenderV2Router:
		if !trade.PureV2() || len(trade.Swaps) != 1 {
			return nil, ErrSpenderMismatch
		}
		call, err = b.buildV2(trade, recipient, slippageBps, deadline)
	case approval.SpenderV3Router:
		if !trade.PureV3() || len(trade.Swaps) != 1 {
			return nil, ErrSpenderMismatch
		}
		call, err = b.buildV3(trade, recipient, slippageBps, deadline)
	default:
		call, err = b.buildCombined(trade, recipient, slippageBps, deadline)
	}
	if err != nil {
		return nil, err
	}

	call.Spender = spender
	call.Deadline = deadline
	call.GasEstimate = router.GasForTrade(trade)
	log.Debug().
		Str("spender", spender.String()).
		Str("type", trade.Type.String()).
		Int("routes", len(trade.Swaps)).
		Uint64("gasEstimate", call.GasEstimate).
		Msg("swap call built")
	return call, nil
}

func (b *Builder) buildV2(trade *domain.Trade, recipient common.Address, slippageBps uint32, deadline *big.Int) (*SwapCall, error) {
	v2, err := chain.RouterV2ABI()
	if err != nil {
		return nil, err
	}
	route := trade.Swaps[0].Route
	path := route.Path
	in := trade.InputCurrency()
	out := trade.OutputCurrency()

	call := &SwapCall{To: b.addrs.V2Router, Value: new(big.Int)}
	if trade.Type == domain.ExactInput {
		minOut := trade.MinimumAmountOut(slippageBps)
		call.AmountBound = minOut
		switch {
		case in.IsNative:
			call.Value.Set(trade.InputAmount())
			call.Data, err = v2.Pack("swapExactETHForTokens", minOut, path, recipient, deadline)
		case out.IsNative:
			call.Data, err = v2.Pack("swapExactTokensForETH", trade.InputAmount(), minOut, path, recipient, deadline)
		default:
			call.Data, err = v2.Pack("swapExactTokensForTokens", trade.InputAmount(), minOut, path, recipient, deadline)
		}
	} else {
		maxIn := trade.MaximumAmountIn(slippageBps)
		call.AmountBound = maxIn
		switch {
		case in.IsNative:
			// The router refunds any unspent msg.value.
			call.Value.Set(maxIn)
			call.Data, err = v2.Pack("swapETHForExactTokens", trade.OutputAmount(), path, recipient, deadline)
		case out.IsNative:
			call.Data, err = v2.Pack("swapTokensForExactETH", trade.OutputAmount(), maxIn, path, recipient, deadline)
		default:
			call.Data, err = v2.Pack("swapTokensForExactTokens", trade.OutputAmount(), maxIn, path, recipient, deadline)
		}
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

func (b *Builder) buildV3(trade *domain.Trade, recipient common.Address, slippageBps uint32, deadline *big.Int) (*SwapCall, error) {
	v3, err := chain.RouterV3ABI()
	if err != nil {
		return nil, err
	}
	route := trade.Swaps[0].Route

	call := &SwapCall{To: b.addrs.V3Router, Value: new(big.Int)}
	if trade.Type == domain.ExactInput {
		minOut := trade.MinimumAmountOut(slippageBps)
		call.AmountBound = minOut
		if trade.InputCurrency().IsNative {
			call.Value.Set(trade.InputAmount())
		}
		params := struct {
			Path             []byte
			Recipient        common.Address
			Deadline         *big.Int
			AmountIn         *big.Int
			AmountOutMinimum *big.Int
		}{EncodePath(route, false), recipient, deadline, trade.InputAmount(), minOut}
		call.Data, err = v3.Pack("exactInput", params)
	} else {
		maxIn := trade.MaximumAmountIn(slippageBps)
		call.AmountBound = maxIn
		if trade.InputCurrency().IsNative {
			call.Value.Set(maxIn)
		}
		// exactOutput consumes the path output-first.
		params := struct {
			Path            []byte
			Recipient       common.Address
			Deadline        *big.Int
			AmountOut       *big.Int
			AmountInMaximum *big.Int
		}{EncodePath(route, true), recipient, deadline, trade.OutputAmount(), maxIn}
		call.Data, err = v3.Pack("exactOutput", params)
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

// buildCombined targets the combined router. Its swap entrypoints share the
// V3 router's shapes, so a single mixed route encodes as one packed path;
// split trades wrap one exactInput sub-call per leg in multicall(bytes[]).
func (b *Builder) buildCombined(trade *domain.Trade, recipient common.Address, slippageBps uint32, deadline *big.Int) (*SwapCall, error) {
	if len(trade.Swaps) == 1 {
		call, err := b.buildV3(trade, recipient, slippageBps, deadline)
		if err != nil {
			return nil, err
		}
		call.To = b.addrs.Combined
		return call, nil
	}
	if trade.Type != domain.ExactInput {
		return nil, ErrSplitUnsupported
	}
	v3, err := chain.RouterV3ABI()
	if err != nil {
		return nil, err
	}

	subcalls := make([][]byte, len(trade.Swaps))
	for i, s := range trade.Swaps {
		params := struct {
			Path             []byte
			Recipient        common.Address
			Deadline         *big.Int
			AmountIn         *big.Int
			AmountOutMinimum *big.Int
		}{EncodePath(s.Route, false), recipient, deadline, s.AmountIn, legMinimumOut(s.AmountOut, slippageBps)}
		subcalls[i], err = v3.Pack("exactInput", params)
		if err != nil {
			return nil, err
		}
	}

	call := &SwapCall{
		To:          b.addrs.Combined,
		Value:       new(big.Int),
		AmountBound: trade.MinimumAmountOut(slippageBps),
	}
	if trade.InputCurrency().IsNative {
		call.Value.Set(trade.InputAmount())
	}
	call.Data, err = v3.Pack("multicall", subcalls)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// legMinimumOut applies the slippage tolerance to one leg of a split.
func legMinimumOut(out *big.Int, slippageBps uint32) *big.Int {
	if slippageBps == 0 {
		return new(big.Int).Set(out)
	}
	if slippageBps >= 10_000 {
		return new(big.Int)
	}
	min := new(big.Int).Mul(out, big.NewInt(int64(10_000-slippageBps)))
	return min.Div(min, big.NewInt(10_000))
}

// EncodePath packs a route into the V3 router's byte path:
// token(20) + fee(3) + token(20) + fee(3) + ... + token(20).
// V2 pools inside a mixed route encode their fixed fee the same way.
// Reversed paths are consumed by exactOutput.
func EncodePath(route *domain.Route, reversed bool) []byte {
	n := len(route.Pools)
	buf := make([]byte, 0, 20*(n+1)+3*n)
	if !reversed {
		buf = append(buf, route.Path[0].Bytes()...)
		for i, p := range route.Pools {
			buf = appendFee(buf, p.FeePPM)
			buf = append(buf, route.Path[i+1].Bytes()...)
		}
		return buf
	}
	buf = append(buf, route.Path[n].Bytes()...)
	for i := n - 1; i >= 0; i-- {
		buf = appendFee(buf, route.Pools[i].FeePPM)
		buf = append(buf, route.Path[i].Bytes()...)
	}
	return buf
}

func appendFee(buf []byte, feePPM uint32) []byte {
	return append(buf, byte(feePPM>>16), byte(feePPM>>8), byte(feePPM))
}
