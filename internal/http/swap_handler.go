package http

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/hazeflow/swap-engine/internal/approval"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/http/httputil"
	"github.com/hazeflow/swap-engine/internal/reconcile"
	"github.com/hazeflow/swap-engine/internal/router"
)

type SwapHandler struct {
	svc *Service
}

func NewSwapHandler(svc *Service) *SwapHandler {
	return &SwapHandler{svc: svc}
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.buildSwap)
}

// SwapRequest asks for a ready-to-sign swap transaction.
type SwapRequest struct {
	TokenIn     string `json:"tokenIn" binding:"required"`
	TokenOut    string `json:"tokenOut" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	TradeType   string `json:"tradeType" binding:"required" enums:"exactIn,exactOut"`
	Recipient   string `json:"recipient" binding:"required"`
	SlippageBps uint32 `json:"slippageBps"`
	Protocols   string `json:"protocols"`

	// Owner is the wallet funding the swap. When set, the calldata targets
	// the router that wallet has already approved instead of the shape
	// default.
	Owner string `json:"owner"`

	// ConfirmHighImpact acknowledges a price impact above 5%. Trades in
	// that band are rejected without it; impact above 10% is rejected
	// outright.
	ConfirmHighImpact bool `json:"confirmHighImpact"`
}

// SwapResponse is the transaction the external signer submits, plus the
// quote it was built from.
type SwapResponse struct {
	To          string `json:"to"`
	Data        string `json:"data"`
	Value       string `json:"value"`
	Deadline    string `json:"deadline"`
	GasEstimate uint64 `json:"gasEstimate"`
	Spender     string `json:"spender"`

	// AmountBound is the slippage bound the calldata enforces: minimum
	// output for exactIn, maximum input for exactOut.
	AmountBound string `json:"amountBound"`

	Quote QuoteResponse `json:"quote"`
}

// @Summary Build swap transaction
// @Description Quote the pair and assemble the router calldata, deadline, and
// @Description slippage bounds for submission by an external signer.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body SwapRequest true "Swap parameters"
// @Success 200 {object} httputil.Response{data=SwapResponse}
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Failure 409 {object} httputil.Response
// @Router /api/v1/swap [post]
func (h *SwapHandler) buildSwap(c *gin.Context) {
	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !common.IsHexAddress(req.Recipient) {
		httputil.BadRequest(c, "invalid recipient address")
		return
	}
	recipient := common.HexToAddress(req.Recipient)

	inputs, ok := h.parseSwapInputs(c, &req)
	if !ok {
		return
	}

	result := h.svc.Reconciler.Reconcile(c.Request.Context(), inputs)
	switch result.State {
	case domain.TradeStateNoRouteFound:
		httputil.NotFound(c, "no route found")
		return
	case domain.TradeStateInvalid:
		httputil.BadRequest(c, "invalid trade inputs")
		return
	case domain.TradeStateLoading:
		httputil.Error(c, 503, "pool data still loading")
		return
	}

	if result.Severity.Level() >= 4 {
		httputil.BadRequest(c, "price impact too high: trade would move the pools more than 10%")
		return
	}
	if result.Severity.Level() == 3 && !req.ConfirmHighImpact {
		httputil.BadRequest(c, "price impact above 5%: set confirmHighImpact to proceed")
		return
	}

	spender := approval.SpenderForTrade(result.Trade)
	if req.Owner != "" {
		if !common.IsHexAddress(req.Owner) {
			httputil.BadRequest(c, "invalid owner address")
			return
		}
		bound := result.Trade.MaximumAmountIn(result.SlippageBps)
		status, err := h.svc.Optimizer.Check(c.Request.Context(), common.HexToAddress(req.Owner), inputs.TokenIn, bound, result.Trade)
		if err != nil {
			httputil.InternalError(c, "allowance lookup failed: "+err.Error())
			return
		}
		if status.State == domain.ApprovalPending {
			httputil.Error(c, 409, "approval pending: wait for it to confirm before building the swap")
			return
		}
		spender = status.Spender
	}

	call, err := h.svc.Builder.BuildFor(result.Trade, spender, recipient, result.SlippageBps, time.Now())
	if err != nil {
		httputil.InternalError(c, "failed to build swap call: "+err.Error())
		return
	}

	httputil.Success(c, SwapResponse{
		To:          call.To.Hex(),
		Data:        hexutil.Encode(call.Data),
		Value:       call.Value.String(),
		Deadline:    call.Deadline.String(),
		GasEstimate: call.GasEstimate,
		Spender:     call.Spender.String(),
		AmountBound: call.AmountBound.String(),
		Quote:       buildQuoteResponse(&inputs, result),
	})
}

func (h *SwapHandler) parseSwapInputs(c *gin.Context, req *SwapRequest) (reconcile.Inputs, bool) {
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
