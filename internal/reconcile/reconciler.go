package reconcile

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/common"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/metrics"
	"github.com/hazeflow/swap-engine/internal/remote"
	"github.com/hazeflow/swap-engine/internal/router"
)

// Inputs is one quoting request as the caller sees it.
type Inputs struct {
	TokenIn   domain.Currency
	TokenOut  domain.Currency
	Amount    *big.Int
	TradeType domain.TradeType
	Filter    router.PoolFilter

	// SlippageBps overrides auto slippage when nonzero.
	SlippageBps uint32
}

func (in Inputs) valid() bool {
	if in.TokenIn.IsZero() || in.TokenOut.IsZero() {
		return false
	}
	if in.TokenIn.Equal(in.TokenOut) || in.TokenIn.RoutingAddress() == in.TokenOut.RoutingAddress() {
		return false
	}
	return in.Amount != nil && in.Amount.Sign() > 0
}

// Result is the reconciled quote for one generation of inputs.
type Result struct {
	State      domain.TradeState
	Trade      *domain.Trade
	Remote     bool
	Generation uint64

	SlippageBps    uint32
	PriceImpactBps uint16
	Severity       router.PriceImpactSeverity
	GasEstimate    uint64
	BlockNumber    uint64

	Err error
}

// PoolDataSource reports the freshness of the local pool set.
type PoolDataSource interface {
	// Ready is false until the initial pool set has loaded.
	Ready() bool
	// Syncing is true while a refresh for a newer block is in flight.
	Syncing() bool
}

// Reconciler folds local routing, remote quoting, and pool data freshness
// into a single trade state. Submissions are debounced; every submission
// takes a new generation and a stale generation's result is dropped rather
// than published.
type Reconciler struct {
	router *router.Router
	remote *remote.Client
	source PoolDataSource
	pricer *router.USDPricer

	debounce time.Duration

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	latest     Result

	updates chan Result
	closed  bool
}

func New(rt *router.Router, rc *remote.Client, source PoolDataSource, debounce time.Duration) *Reconciler {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Reconciler{
		router:   rt,
		remote:   rc,
		source:   source,
		debounce: debounce,
		updates:  make(chan Result, 16),
		latest:   Result{State: domain.TradeStateInvalid},
	}
}

// SetPricer attaches the USD pricer auto slippage sizes against. Without
// one, auto slippage falls back to the per-chain default.
func (r *Reconciler) SetPricer(p *router.USDPricer) {
	r.pricer = p
}

// Updates delivers debounced reconcile results in submission order. Slow
// consumers drop intermediate results, never the channel.
func (r *Reconciler) Updates() <-chan Result { return r.updates }

// Latest returns the most recently published result.
func (r *Reconciler) Latest() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Submit schedules a reconcile after the debounce window. Rapid successive
// submissions collapse into the last one.
func (r *Reconciler) Submit(inputs Inputs) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.generation
	}
	r.generation++
	gen := r.generation

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		result := r.Reconcile(context.Background(), inputs)
		result.Generation = gen
		r.publish(gen, result)
	})
	return gen
}

func (r *Reconciler) publish(gen uint64, result Result) {
	r.mu.Lock()
	if r.closed || gen != r.generation {
		r.mu.Unlock()
		return
	}
	r.latest = result
	r.mu.Unlock()

	select {
	case r.updates <- result:
	default:
		// Drop the oldest buffered result to keep the newest flowing.
		select {
		case <-r.updates:
		default:
		}
		select {
		case r.updates <- result:
		default:
		}
	}
}

// Close stops the pending timer and closes the update stream.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	close(r.updates)
}

// Reconcile computes the trade state for inputs right now, without
// debouncing. Remote quoting is tried first and falls back silently to the
// local router.
func (r *Reconciler) Reconcile(ctx context.Context, inputs Inputs) Result {
	if !inputs.valid() {
		return Result{State: domain.TradeStateInvalid}
	}
	if r.source != nil && !r.source.Ready() {
		return Result{State: domain.TradeStateLoading}
	}

	result := r.quote(ctx, inputs)
	if result.State != domain.TradeStateValid {
		return result
	}

	result.SlippageBps = inputs.SlippageBps
	if result.SlippageBps == 0 {
		gasUSD := result.Trade.GasEstimateUSD
		var outUSD *big.Rat
		if r.pricer != nil {
			outUSD = r.pricer.TokenValueUSD(result.Trade.OutputCurrency(), result.Trade.OutputAmount())
			if gasUSD == nil {
				gasUSD = r.pricer.GasCostUSD(ctx, inputs.TokenIn.ChainID, router.GasForTrade(result.Trade))
			}
		}
		result.SlippageBps = router.AutoSlippageBps(result.Trade, gasUSD, outUSD)
	}
	result.PriceImpactBps, result.Severity = router.PriceImpact(result.Trade)
	if result.GasEstimate == 0 {
		result.GasEstimate = router.GasForTrade(result.Trade)
	}

	if r.source != nil && r.source.Syncing() {
		result.State = domain.TradeStateSyncing
	}
	return result
}

func (r *Reconciler) quote(ctx context.Context, inputs Inputs) Result {
	if r.remote != nil && r.remote.Enabled() {
		remoteReq := remote.QuoteRequest{
			TokenIn:     inputs.TokenIn,
			TokenOut:    inputs.TokenOut,
			Amount:      inputs.Amount,
			TradeType:   inputs.TradeType,
			SlippageBps: inputs.SlippageBps,
		}
		if quote, err := r.remote.GetQuote(ctx, remoteReq); err == nil {
			return Result{
				State:       domain.TradeStateValid,
				Trade:       quote.Trade,
				Remote:      true,
				GasEstimate: quote.GasUseEstimate,
				BlockNumber: quote.BlockNumber,
			}
		} else {
			metrics.RemoteFallbacks.Inc()
			log.Debug().Err(err).Msg("remote quote unavailable, falling back to local routing")
		}
	}

	trade, err := r.router.Quote(inputs.TokenIn, inputs.TokenOut, inputs.TradeType, inputs.Amount, inputs.Filter)
	if err != nil {
		if errors.Is(err, router.ErrNoRoute) {
			return Result{State: domain.TradeStateNoRouteFound, Err: common.Classify(common.KindNoRoute, err)}
		}
		if errors.Is(err, router.ErrSameToken) || errors.Is(err, router.ErrZeroAmount) {
			return Result{State: domain.TradeStateInvalid, Err: common.Classify(common.KindInput, err)}
		}
		return Result{State: domain.TradeStateNoRouteFound, Err: common.Classify(common.KindUnknown, err)}
	}
	return Result{State: domain.TradeStateValid, Trade: trade}
}
