package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/metrics"
)

// Call is one batched read call.
type Call struct {
	Target   common.Address
	GasLimit *big.Int
	CallData []byte
}

// CallResult is the outcome of one call inside a batch. Valid is false when
// the call was malformed, the chain inactive, or the individual call
// reverted; the rest of the batch is unaffected.
type CallResult struct {
	ReturnData []byte
	GasUsed    uint64
	Valid      bool
	Loading    bool
}

var (
	ErrNoDispatcher  = errors.New("no rpc dispatcher configured")
	ErrEmptyBatch    = errors.New("empty call batch")
	ErrBatchMismatch = errors.New("multicall returned wrong result count")
)

// defaultCallGasLimit bounds each inner call so one pathological target
// cannot starve the whole batch.
var defaultCallGasLimit = big.NewInt(1_000_000)

type mcCall struct {
	Target   common.Address
	GasLimit *big.Int
	CallData []byte
}

type mcResult struct {
	Success    bool
	GasUsed    *big.Int
	ReturnData []byte
}

// Aggregate dispatches one multicall round trip for calls and returns the
// block number it executed at plus per-call results, order-preserving and
// 1:1 with the request.
func Aggregate(ctx context.Context, dispatcher Dispatcher, contract common.Address, calls []Call) (uint64, []CallResult, error) {
	if dispatcher == nil {
		return 0, nil, ErrNoDispatcher
	}
	if len(calls) == 0 {
		return 0, nil, ErrEmptyBatch
	}
	mc, err := MulticallABI()
	if err != nil {
		return 0, nil, err
	}

	packed := make([]mcCall, len(calls))
	for i, c := range calls {
		gasLimit := c.GasLimit
		if gasLimit == nil {
			gasLimit = defaultCallGasLimit
		}
		packed[i] = mcCall{Target: c.Target, GasLimit: gasLimit, CallData: c.CallData}
	}

	input, err := mc.Pack("multicall", packed)
	if err != nil {
		return 0, nil, err
	}

	raw, err := dispatcher.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return 0, nil, err
	}

	out, err := mc.Methods["multicall"].Outputs.Unpack(raw)
	if err != nil {
		return 0, nil, err
	}
	blockNumber := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	decoded := *abi.ConvertType(out[1], new([]mcResult)).(*[]mcResult)
	if len(decoded) != len(calls) {
		return 0, nil, ErrBatchMismatch
	}

	metrics.MulticallBatches.Inc()
	metrics.MulticallBatchSize.Observe(float64(len(calls)))

	results := make([]CallResult, len(decoded))
	for i, r := range decoded {
		results[i] = CallResult{
			ReturnData: r.ReturnData,
			Valid:      r.Success,
		}
		if r.GasUsed != nil && r.GasUsed.IsUint64() {
			results[i].GasUsed = r.GasUsed.Uint64()
		}
	}
	return blockNumber.Uint64(), results, nil
}
