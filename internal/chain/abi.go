package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI fragments for the read surface of the engine. Parsed once, on first
// use.

const multicallABIJSON = `[
  {"inputs":[{"components":[{"name":"target","type":"address"},{"name":"gasLimit","type":"uint256"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],
   "name":"multicall",
   "outputs":[{"name":"blockNumber","type":"uint256"},{"components":[{"name":"success","type":"bool"},{"name":"gasUsed","type":"uint256"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],
   "stateMutability":"nonpayable","type":"function"}
]`

const pairABIJSON = `[
  {"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"}
]`

const poolV3ABIJSON = `[
  {"inputs":[],"name":"slot0","outputs":[{"name":"sqrtPriceX96","type":"uint160"},{"name":"tick","type":"int24"},{"name":"observationIndex","type":"uint16"},{"name":"observationCardinality","type":"uint16"},{"name":"observationCardinalityNext","type":"uint16"},{"name":"feeProtocol","type":"uint8"},{"name":"unlocked","type":"bool"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"liquidity","outputs":[{"name":"","type":"uint128"}],"stateMutability":"view","type":"function"}
]`

const erc20ABIJSON = `[
  {"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"nonces","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"decimals","outputs":[{"type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"symbol","outputs":[{"type":"string"}],"stateMutability":"view","type":"function"}
]`

const routerV2ABIJSON = `[
  {"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapTokensForExactTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactETHForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForETH","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapETHForExactTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapTokensForExactETH","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

const routerV3ABIJSON = `[
  {"inputs":[{"components":[{"name":"path","type":"bytes"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"}],"name":"params","type":"tuple"}],"name":"exactInput","outputs":[{"name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
  {"inputs":[{"components":[{"name":"path","type":"bytes"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountOut","type":"uint256"},{"name":"amountInMaximum","type":"uint256"}],"name":"params","type":"tuple"}],"name":"exactOutput","outputs":[{"name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"token","type":"address"},{"name":"value","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"name":"selfPermit","outputs":[],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"data","type":"bytes[]"}],"name":"multicall","outputs":[{"name":"results","type":"bytes[]"}],"stateMutability":"payable","type":"function"}
]`

var (
	abiOnce      sync.Once
	multicallABI abi.ABI
	pairABI      abi.ABI
	poolV3ABI    abi.ABI
	erc20ABI     abi.ABI
	routerV2ABI  abi.ABI
	routerV3ABI  abi.ABI
	abiErr       error
)

func loadABIs() {
	abiOnce.Do(func() {
		parse := func(dst *abi.ABI, raw string) {
			if abiErr != nil {
				return
			}
			*dst, abiErr = abi.JSON(strings.NewReader(raw))
		}
		parse(&multicallABI, multicallABIJSON)
		parse(&pairABI, pairABIJSON)
		parse(&poolV3ABI, poolV3ABIJSON)
		parse(&erc20ABI, erc20ABIJSON)
		parse(&routerV2ABI, routerV2ABIJSON)
		parse(&routerV3ABI, routerV3ABIJSON)
	})
}

// MulticallABI returns the parsed multicall aggregator ABI.
func MulticallABI() (abi.ABI, error) {
	loadABIs()
	return multicallABI, abiErr
}

// PairABI returns the parsed V2 pair ABI.
func PairABI() (abi.ABI, error) {
	loadABIs()
	return pairABI, abiErr
}

// PoolV3ABI returns the parsed V3 pool ABI.
func PoolV3ABI() (abi.ABI, error) {
	loadABIs()
	return poolV3ABI, abiErr
}

// ERC20ABI returns the parsed ERC-20 ABI.
func ERC20ABI() (abi.ABI, error) {
	loadABIs()
	return erc20ABI, abiErr
}

// RouterV2ABI returns the parsed legacy router ABI.
func RouterV2ABI() (abi.ABI, error) {
	loadABIs()
	return routerV2ABI, abiErr
}

// RouterV3ABI returns the parsed V3/combined router ABI.
func RouterV3ABI() (abi.ABI, error) {
	loadABIs()
	return routerV3ABI, abiErr
}
