package domain

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type PoolType uint8

const (
	PoolTypeV2 PoolType = iota
	PoolTypeV3
)

func (p PoolType) String() string {
	switch p {
	case PoolTypeV2:
		return "v2-pool"
	case PoolTypeV3:
		return "v3-pool"
	default:
		return "UNKNOWN"
	}
}

// V2State is the reserve snapshot of a constant-product pair.
type V2State struct {
	Reserve0 *big.Int `json:"reserve0"`
	Reserve1 *big.Int `json:"reserve1"`
}

// Tick is one initialized tick of a concentrated-liquidity pool. LiquidityNet
// is added to in-range liquidity when the price crosses the tick moving up,
// subtracted moving down.
type Tick struct {
	Index        int32    `json:"index"`
	LiquidityNet *big.Int `json:"liquidityNet"`
}

// V3State is the price/liquidity snapshot of a concentrated-liquidity pool.
// Ticks holds the loaded tick window sorted by index; it may be empty, in
// which case swap simulation continues with constant liquidity.
type V3State struct {
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96"`
	Liquidity    *big.Int `json:"liquidity"`
	Tick         int32    `json:"tick"`
	TickSpacing  int32    `json:"tickSpacing"`
	Ticks        []Tick   `json:"ticks,omitempty"`
}

// Pool is one AMM liquidity pool, tagged by protocol variant. Token0/Token1
// follow the canonical ordering rule (lexicographically smaller address is
// token0). FeePPM is the swap fee in parts-per-million of input: 3000 for
// every V2 pair, the deployed fee tier (500/3000/10000) for V3 pools.
type Pool struct {
	Address common.Address `json:"address"`
	ChainID uint64         `json:"chainId"`
	Type    PoolType       `json:"type"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
	FeePPM  uint32         `json:"feePpm"`

	V2 *V2State `json:"v2,omitempty"`
	V3 *V3State `json:"v3,omitempty"`

	// LastUpdatedBlock is the block the pool state was last read at.
	LastUpdatedBlock uint64 `json:"lastUpdatedBlock"`
}

// V2FeePPM is the fixed 0.30% constant-product fee.
const V2FeePPM uint32 = 3000

// Involves reports whether token is one side of the pool.
func (p *Pool) Involves(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// Other returns the opposite side of the pool for token. The caller must
// ensure token is one of the pool's sides.
func (p *Pool) Other(token common.Address) common.Address {
	if p.Token0 == token {
		return p.Token1
	}
	return p.Token0
}

// Ready reports whether the pool carries usable state for quoting.
func (p *Pool) Ready() bool {
	switch p.Type {
	case PoolTypeV2:
		return p.V2 != nil && p.V2.Reserve0 != nil && p.V2.Reserve1 != nil &&
			p.V2.Reserve0.Sign() > 0 && p.V2.Reserve1.Sign() > 0
	case PoolTypeV3:
		return p.V3 != nil && p.V3.SqrtPriceX96 != nil && p.V3.Liquidity != nil &&
			p.V3.SqrtPriceX96.Sign() > 0 && p.V3.Liquidity.Sign() > 0
	default:
		return false
	}
}

// ReserveOf returns the V2 reserve sitting on the token side. Nil for V3
// pools and for tokens the pool does not involve.
func (p *Pool) ReserveOf(token common.Address) *big.Int {
	if p.Type != PoolTypeV2 || p.V2 == nil {
		return nil
	}
	switch token {
	case p.Token0:
		return p.V2.Reserve0
	case p.Token1:
		return p.V2.Reserve1
	default:
		return nil
	}
}

// SortTokens applies the canonical address ordering rule.
func SortTokens(a, b common.Address) (token0, token1 common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// PairAddressV2 derives the deterministic CREATE2 address of a V2 pair from
// its factory, init code hash, and token pair.
func PairAddressV2(factory common.Address, initCodeHash common.Hash, tokenA, tokenB common.Address) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)
	salt := crypto.Keccak256(append(token0.Bytes(), token1.Bytes()...))
	return create2Address(factory, salt, initCodeHash)
}

// PoolAddressV3 derives the deterministic CREATE2 address of a V3 pool from
// its factory, init code hash, token pair, and fee tier.
func PoolAddressV3(factory common.Address, initCodeHash common.Hash, tokenA, tokenB common.Address, feePPM uint32) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)
	// abi.encode(token0, token1, fee): three left-padded 32-byte words
	var enc [96]byte
	copy(enc[12:32], token0.Bytes())
	copy(enc[44:64], token1.Bytes())
	fee := new(big.Int).SetUint64(uint64(feePPM))
	fee.FillBytes(enc[64:96])
	salt := crypto.Keccak256(enc[:])
	return create2Address(factory, salt, initCodeHash)
}

func create2Address(deployer common.Address, salt []byte, initCodeHash common.Hash) common.Address {
	buf := make([]byte, 0, 85)
	buf = append(buf, 0xff)
	buf = append(buf, deployer.Bytes()...)
	buf = append(buf, salt...)
	buf = append(buf, initCodeHash.Bytes()...)
	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}
