package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Currency is either a chain's native asset or an ERC-20 token. The native
// asset has no contract address; routing always happens over its wrapped
// representation, so Wrapped must be set for native currencies.
type Currency struct {
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name,omitempty"`
	IsNative bool           `json:"isNative,omitempty"`

	// Wrapped is the wrapped-native token address, used in place of Address
	// when IsNative is true.
	Wrapped common.Address `json:"wrapped,omitempty"`
}

// NewToken builds an ERC-20 currency.
func NewToken(chainID uint64, address common.Address, decimals uint8, symbol string) Currency {
	return Currency{
		ChainID:  chainID,
		Address:  address,
		Decimals: decimals,
		Symbol:   symbol,
	}
}

// NewNative builds the chain's native currency with its wrapped token address.
func NewNative(chainID uint64, wrapped common.Address, decimals uint8, symbol string) Currency {
	return Currency{
		ChainID:  chainID,
		Decimals: decimals,
		Symbol:   symbol,
		IsNative: true,
		Wrapped:  wrapped,
	}
}

// RoutingAddress is the token address pools are keyed by: the wrapped token
// for the native asset, the contract address otherwise.
func (c Currency) RoutingAddress() common.Address {
	if c.IsNative {
		return c.Wrapped
	}
	return c.Address
}

// Equal reports whether two currencies identify the same asset: same chain
// and, for tokens, same contract address. Two native currencies on the same
// chain are equal; a native currency never equals its wrapped token.
func (c Currency) Equal(other Currency) bool {
	if c.ChainID != other.ChainID {
		return false
	}
	if c.IsNative || other.IsNative {
		return c.IsNative == other.IsNative
	}
	return c.Address == other.Address
}

// IsZero reports whether the currency is unset.
func (c Currency) IsZero() bool {
	return c.ChainID == 0 && !c.IsNative && c.Address == (common.Address{})
}
