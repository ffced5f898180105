package http

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/approval"
	"github.com/hazeflow/swap-engine/internal/builder"
	"github.com/hazeflow/swap-engine/internal/chain"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/reconcile"
	"github.com/hazeflow/swap-engine/internal/router"
)

var errBadAddress = errors.New("invalid token address")

// Service bundles the engine components the HTTP handlers drive.
type Service struct {
	Reconciler *reconcile.Reconciler
	Router     *router.Router
	Builder    *builder.Builder
	Optimizer  *approval.Optimizer
	Cache      *chain.DataCache

	ChainID       uint64
	WrappedNative common.Address
	NativeSymbol  string

	meta sync.Map // token address -> chain.TokenMetadataResult
}

// Currency resolves a request token parameter. The literal "native" selects
// the chain's native asset; anything else must be a hex address. Token
// decimals and symbol come from the chain when a data cache is attached.
func (s *Service) Currency(ctx context.Context, raw string) (domain.Currency, error) {
	if strings.EqualFold(raw, "native") {
		symbol := s.NativeSymbol
		if symbol == "" {
			symbol = "NATIVE"
		}
		return domain.NewNative(s.ChainID, s.WrappedNative, 18, symbol), nil
	}
	if !common.IsHexAddress(raw) {
		return domain.Currency{}, errBadAddress
	}
	addr := common.HexToAddress(raw)
	decimals, symbol := s.tokenMetadata(ctx, addr)
	return domain.NewToken(s.ChainID, addr, decimals, symbol), nil
}

// tokenMetadata reads ERC-20 decimals/symbol once per token. Without a
// cache, or for non-standard tokens, it assumes 18 decimals.
func (s *Service) tokenMetadata(ctx context.Context, token common.Address) (uint8, string) {
	if v, ok := s.meta.Load(token); ok {
		m := v.(chain.TokenMetadataResult)
		return m.Decimals, m.Symbol
	}
	if s.Cache == nil {
		return 18, ""
	}
	results, err := chain.FetchTokenMetadata(ctx, s.Cache, []common.Address{token})
	if err != nil || len(results) != 1 || !results[0].Valid {
		return 18, ""
	}
	s.meta.Store(token, results[0])
	return results[0].Decimals, results[0].Symbol
}
