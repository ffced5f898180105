package router

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
)

const testChainID = uint64(1)

var (
	tokenA = common.HexToAddress("0x000000000000000000000000000000000000000A")
	tokenB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	tokenC = common.HexToAddress("0x000000000000000000000000000000000000000C")
	tokenD = common.HexToAddress("0x000000000000000000000000000000000000000d")
)

func testToken(address common.Address, symbol string) domain.Currency {
	return domain.NewToken(testChainID, address, 18, symbol)
}

func poolAddr(b byte) common.Address {
	var addr common.Address
	addr[0] = 0xF0
	addr[19] = b
	return addr
}

// v2Pool builds a ready constant-product pool. Reserves are given in the
// caller's token order and stored canonically.
func v2Pool(addrByte byte, tokA, tokB common.Address, reserveA, reserveB int64) *domain.Pool {
	token0, token1 := domain.SortTokens(tokA, tokB)
	r0, r1 := reserveA, reserveB
	if token0 != tokA {
		r0, r1 = reserveB, reserveA
	}
	return &domain.Pool{
		Address: poolAddr(addrByte),
		ChainID: testChainID,
		Type:    domain.PoolTypeV2,
		Token0:  token0,
		Token1:  token1,
		FeePPM:  domain.V2FeePPM,
		V2:      &domain.V2State{Reserve0: big.NewInt(r0), Reserve1: big.NewInt(r1)},
	}
}

// v3Pool builds a ready concentrated-liquidity pool at price 1 (sqrtPrice
// 2^96) unless a sqrt price is given.
func v3Pool(addrByte byte, tokA, tokB common.Address, feePPM uint32, liquidity *big.Int, sqrtPrice *big.Int) *domain.Pool {
	token0, token1 := domain.SortTokens(tokA, tokB)
	if sqrtPrice == nil {
		sqrtPrice = new(big.Int).Lsh(big.NewInt(1), 96)
	}
	return &domain.Pool{
		Address: poolAddr(addrByte),
		ChainID: testChainID,
		Type:    domain.PoolTypeV3,
		Token0:  token0,
		Token1:  token1,
		FeePPM:  feePPM,
		V3: &domain.V3State{
			SqrtPriceX96: sqrtPrice,
			Liquidity:    liquidity,
			Tick:         0,
			TickSpacing:  60,
		},
	}
}

func testBases() *BaseTokens {
	return NewBaseTokens(map[uint64][]domain.Currency{
		testChainID: {testToken(tokenB, "WETH"), testToken(tokenD, "USDC")},
	})
}

func mustRoute(pools []*domain.Pool, input, output domain.Currency) *domain.Route {
	route, err := domain.NewRoute(pools, input, output)
	if err != nil {
		panic(err)
	}
	return route
}
