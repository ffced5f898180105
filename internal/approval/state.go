package approval

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// Spender identifies which router contract a trade executes through, and
// therefore which contract needs the token allowance.
type Spender uint8

const (
	// SpenderCombined handles trades mixing V2 and V3 pools, split trades,
	// and is the default when the trade shape is unknown.
	SpenderCombined Spender = iota
	SpenderV2Router
	SpenderV3Router

	// SpenderUndetermined defers the choice: an approval is still pending
	// and selecting now could strand it.
	SpenderUndetermined
)

func (s Spender) String() string {
	switch s {
	case SpenderV2Router:
		return "v2-router"
	case SpenderV3Router:
		return "v3-router"
	case SpenderUndetermined:
		return "undetermined"
	default:
		return "combined-router"
	}
}

// Addresses holds the deployed router contracts per chain.
type Addresses struct {
	Combined common.Address
	V2Router common.Address
	V3Router common.Address
}

// For resolves a spender to its contract address. An undetermined spender
// has no address yet.
func (a Addresses) For(s Spender) common.Address {
	switch s {
	case SpenderV2Router:
		return a.V2Router
	case SpenderV3Router:
		return a.V3Router
	case SpenderUndetermined:
		return common.Address{}
	default:
		return a.Combined
	}
}

// SpenderForTrade picks the cheapest sufficient router from the trade shape
// alone: the protocol routers for pure single-route trades, the combined
// router for everything else. Split trades always need the combined router;
// the protocol routers execute one path per call.
func SpenderForTrade(trade *domain.Trade) Spender {
	if trade == nil || len(trade.Swaps) > 1 {
		return SpenderCombined
	}
	if trade.PureV2() {
		return SpenderV2Router
	}
	if trade.PureV3() {
		return SpenderV3Router
	}
	return SpenderCombined
}

// candidateSpenders lists the routers able to execute the trade, the
// combined router first. Protocol routers qualify only for pure
// single-route trades.
func candidateSpenders(trade *domain.Trade) []Spender {
	cands := []Spender{SpenderCombined}
	if trade == nil || len(trade.Swaps) != 1 {
		return cands
	}
	if trade.PureV2() {
		cands = append(cands, SpenderV2Router)
	} else if trade.PureV3() {
		cands = append(cands, SpenderV3Router)
	}
	return cands
}
