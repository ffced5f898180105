package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	poolTokenA = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	poolTokenB = common.HexToAddress("0x00000000000000000000000000000000000000B2")
)

func readyV2Pool() *Pool {
	return &Pool{
		Address: common.HexToAddress("0x0000000000000000000000000000000000000101"),
		ChainID: 1,
		Type:    PoolTypeV2,
		Token0:  poolTokenA,
		Token1:  poolTokenB,
		FeePPM:  V2FeePPM,
		V2: &V2State{
			Reserve0: big.NewInt(1_000_000),
			Reserve1: big.NewInt(2_000_000),
		},
	}
}

func readyV3Pool() *Pool {
	return &Pool{
		Address: common.HexToAddress("0x0000000000000000000000000000000000000102"),
		ChainID: 1,
		Type:    PoolTypeV3,
		Token0:  poolTokenA,
		Token1:  poolTokenB,
		FeePPM:  500,
		V3: &V3State{
			SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
			Liquidity:    big.NewInt(1_000_000),
			Tick:         0,
			TickSpacing:  10,
		},
	}
}

func TestSortTokens(t *testing.T) {
	t0, t1 := SortTokens(poolTokenB, poolTokenA)
	if t0 != poolTokenA || t1 != poolTokenB {
		t.Fatalf("got (%s, %s), want (%s, %s)", t0.Hex(), t1.Hex(), poolTokenA.Hex(), poolTokenB.Hex())
	}
	t0, t1 = SortTokens(poolTokenA, poolTokenB)
	if t0 != poolTokenA || t1 != poolTokenB {
		t.Fatalf("sorted input reordered: (%s, %s)", t0.Hex(), t1.Hex())
	}
}

func TestPoolTypeString(t *testing.T) {
	if got := PoolTypeV2.String(); got != "v2-pool" {
		t.Fatalf("PoolTypeV2.String() = %q", got)
	}
	if got := PoolTypeV3.String(); got != "v3-pool" {
		t.Fatalf("PoolTypeV3.String() = %q", got)
	}
	if got := PoolType(9).String(); got != "UNKNOWN" {
		t.Fatalf("PoolType(9).String() = %q", got)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Pool)
		pool   *Pool
		want   bool
	}{
		{name: "v2 with reserves", pool: readyV2Pool(), want: true},
		{name: "v3 with state", pool: readyV3Pool(), want: true},
		{
			name: "v2 missing state",
			pool: readyV2Pool(),
			mutate: func(p *Pool) {
				p.V2 = nil
			},
		},
		{
			name: "v2 zero reserve",
			pool: readyV2Pool(),
			mutate: func(p *Pool) {
				p.V2.Reserve1 = big.NewInt(0)
			},
		},
		{
			name: "v2 nil reserve",
			pool: readyV2Pool(),
			mutate: func(p *Pool) {
				p.V2.Reserve0 = nil
			},
		},
		{
			name: "v3 missing state",
			pool: readyV3Pool(),
			mutate: func(p *Pool) {
				p.V3 = nil
			},
		},
		{
			name: "v3 zero price",
			pool: readyV3Pool(),
			mutate: func(p *Pool) {
				p.V3.SqrtPriceX96 = big.NewInt(0)
			},
		},
		{
			name: "v3 zero liquidity",
			pool: readyV3Pool(),
			mutate: func(p *Pool) {
				p.V3.Liquidity = big.NewInt(0)
			},
		},
		{
			name: "unknown type",
			pool: readyV2Pool(),
			mutate: func(p *Pool) {
				p.Type = PoolType(9)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.mutate != nil {
				tc.mutate(tc.pool)
			}
			if got := tc.pool.Ready(); got != tc.want {
				t.Fatalf("Ready() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInvolvesAndOther(t *testing.T) {
	p := readyV2Pool()
	if !p.Involves(poolTokenA) || !p.Involves(poolTokenB) {
		t.Fatal("pool should involve both its tokens")
	}
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000C3")
	if p.Involves(stranger) {
		t.Fatal("pool should not involve a third token")
	}
	if got := p.Other(poolTokenA); got != poolTokenB {
		t.Fatalf("Other(token0) = %s, want token1", got.Hex())
	}
	if got := p.Other(poolTokenB); got != poolTokenA {
		t.Fatalf("Other(token1) = %s, want token0", got.Hex())
	}
}

func TestReserveOf(t *testing.T) {
	p := readyV2Pool()
	if got := p.ReserveOf(poolTokenA); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("ReserveOf(token0) = %s", got)
	}
	if got := p.ReserveOf(poolTokenB); got.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("ReserveOf(token1) = %s", got)
	}
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000C3")
	if got := p.ReserveOf(stranger); got != nil {
		t.Fatalf("ReserveOf(stranger) = %s, want nil", got)
	}
	if got := readyV3Pool().ReserveOf(poolTokenA); got != nil {
		t.Fatalf("ReserveOf on a v3 pool = %s, want nil", got)
	}
}

// Known mainnet deployments pin the CREATE2 derivations.
func TestPairAddressV2(t *testing.T) {
	factory := common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	initCodeHash := common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	want := common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
	if got := PairAddressV2(factory, initCodeHash, usdc, weth); got != want {
		t.Fatalf("PairAddressV2 = %s, want %s", got.Hex(), want.Hex())
	}
	// Token order must not matter.
	if got := PairAddressV2(factory, initCodeHash, weth, usdc); got != want {
		t.Fatalf("PairAddressV2 reversed = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestPoolAddressV3(t *testing.T) {
	factory := common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	initCodeHash := common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	want := common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")
	if got := PoolAddressV3(factory, initCodeHash, usdc, weth, 3000); got != want {
		t.Fatalf("PoolAddressV3 = %s, want %s", got.Hex(), want.Hex())
	}
	if got := PoolAddressV3(factory, initCodeHash, weth, usdc, 3000); got != want {
		t.Fatalf("PoolAddressV3 reversed = %s, want %s", got.Hex(), want.Hex())
	}
	// A different fee tier is a different pool.
	if got := PoolAddressV3(factory, initCodeHash, usdc, weth, 500); got == want {
		t.Fatal("fee tier should change the derived address")
	}
}
