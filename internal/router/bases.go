package router

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// TokenPair is an unordered candidate pair considered during route
// enumeration.
type TokenPair struct {
	A domain.Currency
	B domain.Currency
}

// BaseTokens holds the per-chain routing bases: well-connected tokens that
// intermediate hops are allowed to pass through. Per-token additions widen
// the set for tokens that mainly trade against something unusual, and
// per-token overrides replace it entirely for tokens with restrictive
// transfer rules.
type BaseTokens struct {
	byChain    map[uint64][]domain.Currency
	additional map[uint64]map[common.Address][]domain.Currency
	custom     map[uint64]map[common.Address][]domain.Currency
}

func NewBaseTokens(byChain map[uint64][]domain.Currency) *BaseTokens {
	if byChain == nil {
		byChain = make(map[uint64][]domain.Currency)
	}
	return &BaseTokens{
		byChain:    byChain,
		additional: make(map[uint64]map[common.Address][]domain.Currency),
		custom:     make(map[uint64]map[common.Address][]domain.Currency),
	}
}

// AddAdditional widens the base set when token is one side of the trade.
func (b *BaseTokens) AddAdditional(chainID uint64, token common.Address, bases ...domain.Currency) {
	if b.additional[chainID] == nil {
		b.additional[chainID] = make(map[common.Address][]domain.Currency)
	}
	b.additional[chainID][token] = append(b.additional[chainID][token], bases...)
}

// SetCustom replaces the base set entirely when token is one side of the
// trade.
func (b *BaseTokens) SetCustom(chainID uint64, token common.Address, bases ...domain.Currency) {
	if b.custom[chainID] == nil {
		b.custom[chainID] = make(map[common.Address][]domain.Currency)
	}
	b.custom[chainID][token] = bases
}

// basesFor resolves the effective base set for one side of a trade.
func (b *BaseTokens) basesFor(chainID uint64, token common.Address) []domain.Currency {
	if overrides, ok := b.custom[chainID]; ok {
		if bases, ok := overrides[token]; ok {
			return bases
		}
	}
	bases := b.byChain[chainID]
	if extra, ok := b.additional[chainID]; ok {
		if added, ok := extra[token]; ok {
			merged := make([]domain.Currency, 0, len(bases)+len(added))
			merged = append(merged, bases...)
			merged = append(merged, added...)
			return merged
		}
	}
	return bases
}

// CandidatePairs builds the deduplicated pair set a route may traverse for
// an input/output trade: the direct pair, each side against its bases, and
// every base-to-base pair. Same-token pairs are dropped.
func (b *BaseTokens) CandidatePairs(input, output domain.Currency) []TokenPair {
	chainID := input.ChainID
	if input.Equal(output) {
		return nil
	}

	inBases := b.basesFor(chainID, input.RoutingAddress())
	outBases := b.basesFor(chainID, output.RoutingAddress())

	allBases := make([]domain.Currency, 0, len(inBases)+len(outBases))
	allBases = append(allBases, inBases...)
	allBases = append(allBases, outBases...)

	seen := make(map[[2]common.Address]struct{})
	pairs := make([]TokenPair, 0, 2*len(allBases)+len(allBases)*len(allBases)/2+1)

	add := func(a, b domain.Currency) {
		aAddr, bAddr := a.RoutingAddress(), b.RoutingAddress()
		if aAddr == bAddr || a.ChainID != b.ChainID {
			return
		}
		key := [2]common.Address{aAddr, bAddr}
		if bAddr.Big().Cmp(aAddr.Big()) < 0 {
			key = [2]common.Address{bAddr, aAddr}
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		pairs = append(pairs, TokenPair{A: a, B: b})
	}

	add(input, output)
	for _, base := range allBases {
		add(input, base)
		add(output, base)
	}
	for i := range allBases {
		for j := i + 1; j < len(allBases); j++ {
			add(allBases[i], allBases[j])
		}
	}
	return pairs
}
