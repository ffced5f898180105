package http

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/http/httputil"
	"github.com/hazeflow/swap-engine/internal/metrics"
	"github.com/hazeflow/swap-engine/internal/reconcile"
	"github.com/hazeflow/swap-engine/internal/router"
)

type QuoteHandler struct {
	svc *Service
}

func NewQuoteHandler(svc *Service) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

// QuoteRequest carries the parameters of one quote lookup.
type QuoteRequest struct {
	// Input token address, or "native" for the chain's native asset.
	TokenIn string `form:"tokenIn" binding:"required" example:"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"`

	// Output token address, or "native".
	TokenOut string `form:"tokenOut" binding:"required" example:"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"`

	// Amount in smallest token units.
	Amount string `form:"amount" binding:"required" example:"1000000000000000000"`

	// TradeType determines how Amount is interpreted:
	// - "exactIn": Amount is the exact input, output is estimated
	// - "exactOut": Amount is the exact output, input is estimated
	TradeType string `form:"tradeType" binding:"required" enums:"exactIn,exactOut" example:"exactIn"`

	// Slippage tolerance in basis points. Zero selects automatic slippage.
	SlippageBps uint32 `form:"slippageBps" example:"50"`

	// Protocols restricts routing: "v2", "v3", or empty for both.
	Protocols string `form:"protocols" example:"v2,v3"`

	// Owner optionally reports the wallet's approval state alongside the
	// quote.
	Owner string `form:"owner" example:"0x00000000000000000000000000000000000000EE"`
}

// HopInfo describes a single pool traversal within a route.
type HopInfo struct {
	PoolAddress string `json:"poolAddress"`
	PoolType    string `json:"poolType"`
	FeePPM      uint32 `json:"feePpm"`
	TokenIn     string `json:"tokenIn"`
	TokenOut    string `json:"tokenOut"`
}

// RouteInfo describes one route of a (possibly split) trade.
type RouteInfo struct {
	// Percent of the total input flowing through this route.
	Percent   int       `json:"percent"`
	AmountIn  string    `json:"amountIn"`
	AmountOut string    `json:"amountOut"`
	Hops      []HopInfo `json:"hops"`
}

// QuoteResponse is the reconciled quote for the requested pair.
type QuoteResponse struct {
	State     string `json:"state"`
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	TradeType string `json:"tradeType"`

	AmountIn  string `json:"amountIn,omitempty"`
	AmountOut string `json:"amountOut,omitempty"`

	// OtherAmountThreshold is the slippage-bounded counterpart of the
	// quoted amount: minimum output for exactIn, maximum input for
	// exactOut.
	OtherAmountThreshold string `json:"otherAmountThreshold,omitempty"`

	SlippageBps         uint32 `json:"slippageBps,omitempty"`
	PriceImpactBps      uint16 `json:"priceImpactBps"`
	PriceImpactPercent  string `json:"priceImpactPercent,omitempty"`
	PriceImpactSeverity string `json:"priceImpactSeverity,omitempty"`
	FeeBps              uint32 `json:"feeBps,omitempty"`

	GasEstimate uint64 `json:"gasEstimate,omitempty"`
	Remote      bool   `json:"remote"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`

	// ApprovalState and Spender report where the owner's allowance stands
	// against the router the trade would execute through. Present only
	// when the owner query parameter is set.
	ApprovalState string `json:"approvalState,omitempty"`
	Spender       string `json:"spender,omitempty"`

	Routes []RouteInfo `json:"routes,omitempty"`
}

func (h *QuoteHandler) parseInputs(c *gin.Context) (reconcile.Inputs, bool) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
		return reconcile.Inputs{}, false
	}

	tokenIn, err := h.svc.Currency(c.Request.Context(), req.TokenIn)
	if err != nil {
		httputil.BadRequest(c, "invalid tokenIn address")
		return reconcile.Inputs{}, false
	}
	tokenOut, err := h.svc.Currency(c.Request.Context(), req.TokenOut)
	if err != nil {
		httputil.BadRequest(c, "invalid tokenOut address")
		return reconcile.Inputs{}, false
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		httputil.BadRequest(c, "invalid amount: must be a positive integer")
		return reconcile.Inputs{}, false
	}

	var tradeType domain.TradeType
	switch req.TradeType {
	case "exactIn":
		tradeType = domain.ExactInput
	case "exactOut":
		tradeType = domain.ExactOutput
	default:
		httputil.BadRequest(c, "invalid tradeType: must be exactIn or exactOut")
		return reconcile.Inputs{}, false
	}

	filter := router.AllPools
	switch req.Protocols {
	case "", "v2,v3", "v3,v2":
	case "v2":
		filter = router.OnlyV2
	case "v3":
		filter = router.OnlyV3
	default:
		httputil.BadRequest(c, "invalid protocols: must be v2, v3, or v2,v3")
		return reconcile.Inputs{}, false
	}

	return reconcile.Inputs{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		Amount:      amount,
		TradeType:   tradeType,
		Filter:      filter,
		SlippageBps: req.SlippageBps,
	}, true
}

// @Summary Get swap quote
// @Description Quote the best trade for a token pair across V2 and V3 pools,
// @Description including split routes, price impact, and slippage bounds.
// @Tags quote
// @Produce json
// @Param tokenIn query string true "Input token address or 'native'"
// @Param tokenOut query string true "Output token address or 'native'"
// @Param amount query string true "Amount in smallest token units"
// @Param tradeType query string true "exactIn or exactOut" Enums(exactIn, exactOut)
// @Param slippageBps query int false "Slippage tolerance in basis points; 0 = automatic"
// @Param protocols query string false "Restrict routing to v2 or v3"
// @Param owner query string false "Wallet address; reports its approval state alongside the quote"
// @Success 200 {object} httputil.Response{data=QuoteResponse}
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	inputs, ok := h.parseInputs(c)
	if !ok {
		return
	}

	start := time.Now()
	result := h.svc.Reconciler.Reconcile(c.Request.Context(), inputs)
	metrics.QuoteDuration.WithLabelValues(inputs.TradeType.String()).Observe(time.Since(start).Seconds())

	switch result.State {
	case domain.TradeStateNoRouteFound:
		metrics.QuoteRequests.WithLabelValues(inputs.TradeType.String(), "no_route").Inc()
		httputil.NotFound(c, "no route found")
		return
	case domain.TradeStateInvalid:
		metrics.QuoteRequests.WithLabelValues(inputs.TradeType.String(), "invalid").Inc()
		httputil.BadRequest(c, "invalid trade inputs")
		return
	}

	metrics.QuoteRequests.WithLabelValues(inputs.TradeType.String(), "ok").Inc()
	resp := buildQuoteResponse(&inputs, result)
	h.attachApprovalState(c, &resp, inputs, result)
	httputil.Success(c, resp)
}

// attachApprovalState decorates a quote with where the owner's allowance
// stands, without delaying the response on a chain read: a cold cache
// answers UNKNOWN and warms in the background so the next poll has it.
func (h *QuoteHandler) attachApprovalState(c *gin.Context, resp *QuoteResponse, inputs reconcile.Inputs, result reconcile.Result) {
	ownerRaw := c.Query("owner")
	if !common.IsHexAddress(ownerRaw) || result.Trade == nil || h.svc.Optimizer == nil {
		return
	}
	owner := common.HexToAddress(ownerRaw)
	trade := result.Trade
	bound := trade.MaximumAmountIn(result.SlippageBps)

	status, ok := h.svc.Optimizer.PeekApproval(owner, inputs.TokenIn, bound, trade)
	if !ok {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, _ = h.svc.Optimizer.Check(ctx, owner, inputs.TokenIn, bound, trade)
		}()
		resp.ApprovalState = domain.ApprovalUnknown.String()
		return
	}
	resp.ApprovalState = status.State.String()
	resp.Spender = status.Spender.String()
}

func buildQuoteResponse(inputs *reconcile.Inputs, result reconcile.Result) QuoteResponse {
	resp := QuoteResponse{
		State:     result.State.String(),
		TokenIn:   currencyLabel(inputs.TokenIn),
		TokenOut:  currencyLabel(inputs.TokenOut),
		TradeType: inputs.TradeType.String(),
		Remote:    result.Remote,
	}
	if result.Trade == nil {
		return resp
	}
	trade := result.Trade

	resp.AmountIn = trade.InputAmount().String()
	resp.AmountOut = trade.OutputAmount().String()
	resp.SlippageBps = result.SlippageBps
	resp.PriceImpactBps = result.PriceImpactBps
	resp.PriceImpactPercent = fmt.Sprintf("%.2f%%", float64(result.PriceImpactBps)/100.0)
	resp.PriceImpactSeverity = string(result.Severity)
	resp.GasEstimate = result.GasEstimate
	resp.BlockNumber = result.BlockNumber

	if trade.Type == domain.ExactInput {
		resp.OtherAmountThreshold = trade.MinimumAmountOut(result.SlippageBps).String()
	} else {
		resp.OtherAmountThreshold = trade.MaximumAmountIn(result.SlippageBps).String()
	}

	// LP fee across the whole trade, floored to basis points.
	feeFrac := router.TradeFeeFraction(trade)
	feeBps := new(big.Rat).Mul(feeFrac, big.NewRat(10_000, 1))
	resp.FeeBps = uint32(new(big.Int).Div(feeBps.Num(), feeBps.Denom()).Uint64())

	totalIn := trade.InputAmount()
	for _, swap := range trade.Swaps {
		percent := 100
		if len(trade.Swaps) > 1 && totalIn.Sign() > 0 {
			share := new(big.Int).Mul(swap.AmountIn, big.NewInt(100))
			percent = int(share.Div(share, totalIn).Int64())
		}
		info := RouteInfo{
			Percent:   percent,
			AmountIn:  swap.AmountIn.String(),
			AmountOut: swap.AmountOut.String(),
			Hops:      make([]HopInfo, 0, len(swap.Route.Pools)),
		}
		for i, pool := range swap.Route.Pools {
			info.Hops = append(info.Hops, HopInfo{
				PoolAddress: pool.Address.Hex(),
				PoolType:    pool.Type.String(),
				FeePPM:      pool.FeePPM,
				TokenIn:     swap.Route.Path[i].Hex(),
				TokenOut:    swap.Route.Path[i+1].Hex(),
			})
		}
		resp.Routes = append(resp.Routes, info)
	}
	return resp
}

func currencyLabel(c domain.Currency) string {
	if c.IsNative {
		return "native"
	}
	return c.Address.Hex()
}
