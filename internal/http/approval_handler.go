package http

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/hazeflow/swap-engine/internal/approval"
	"github.com/hazeflow/swap-engine/internal/http/httputil"
)

type ApprovalHandler struct {
	svc *Service
}

func NewApprovalHandler(svc *Service) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

func (h *ApprovalHandler) Root() string {
	return "/approval"
}

func (h *ApprovalHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getState)
	pub.POST("/plan", h.getPlans)
}

// ApprovalStateResponse reports where the allowance stands for a token and
// the router it would execute through.
type ApprovalStateResponse struct {
	State     string `json:"state"`
	Spender   string `json:"spender"`
	SpenderAt string `json:"spenderAddress"`
	Allowance string `json:"allowance,omitempty"`
	Block     uint64 `json:"blockNumber,omitempty"`
}

// @Summary Get approval state
// @Description Resolve the allowance state of (owner, token) against the
// @Description router contract the engine would route through.
// @Tags approval
// @Produce json
// @Param owner query string true "Wallet address"
// @Param token query string true "Token address or 'native'"
// @Param amount query string true "Amount in smallest token units"
// @Success 200 {object} httputil.Response{data=ApprovalStateResponse}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/approval [get]
func (h *ApprovalHandler) getState(c *gin.Context) {
	ownerRaw := c.Query("owner")
	if !common.IsHexAddress(ownerRaw) {
		httputil.BadRequest(c, "invalid owner address")
		return
	}
	token, err := h.svc.Currency(c.Request.Context(), c.Query("token"))
	if err != nil {
		httputil.BadRequest(c, "invalid token address")
		return
	}
	amount, ok := new(big.Int).SetString(c.Query("amount"), 10)
	if !ok || amount.Sign() <= 0 {
		httputil.BadRequest(c, "invalid amount: must be a positive integer")
		return
	}

	status, err := h.svc.Optimizer.Check(c.Request.Context(), common.HexToAddress(ownerRaw), token, amount, nil)
	if err != nil {
		httputil.InternalError(c, "allowance lookup failed: "+err.Error())
		return
	}

	resp := ApprovalStateResponse{
		State:     status.State.String(),
		Spender:   status.Spender.String(),
		SpenderAt: status.SpenderAddr.Hex(),
		Block:     status.BlockNumber,
	}
	if status.Allowance != nil {
		resp.Allowance = status.Allowance.String()
	}
	httputil.Success(c, resp)
}

// PlanRequest asks for the ordered approval paths for a token.
type PlanRequest struct {
	Owner  string `json:"owner" binding:"required"`
	Token  string `json:"token" binding:"required"`
	Amount string `json:"amount" binding:"required"`

	// SupportsPermit marks tokens implementing EIP-2612; the caller calls
	// nonces() to find out.
	SupportsPermit bool   `json:"supportsPermit"`
	PermitNonce    string `json:"permitNonce"`
	TokenName      string `json:"tokenName"`

	// RequiresReset marks tokens that revert when changing a non-zero
	// allowance to another non-zero value.
	RequiresReset bool `json:"requiresReset"`
}

// PlanEntry is one approval path, best first.
type PlanEntry struct {
	Method   string `json:"method"`
	Token    string `json:"token"`
	Spender  string `json:"spender"`
	Amount   string `json:"amount"`
	CallData string `json:"callData,omitempty"`

	Permit *approval.PermitMessage `json:"permit,omitempty"`
}

// @Summary Get approval plans
// @Description List the approval paths for spending a token, ordered
// @Description cheapest first: permit, exact approve, infinite approve.
// @Tags approval
// @Accept json
// @Produce json
// @Param request body PlanRequest true "Approval parameters"
// @Success 200 {object} httputil.Response{data=[]PlanEntry}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/approval/plan [post]
func (h *ApprovalHandler) getPlans(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !common.IsHexAddress(req.Owner) {
		httputil.BadRequest(c, "invalid owner address")
		return
	}
	token, err := h.svc.Currency(c.Request.Context(), req.Token)
	if err != nil || token.IsNative {
		httputil.BadRequest(c, "approval needs an ERC-20 token")
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		httputil.BadRequest(c, "invalid amount: must be a positive integer")
		return
	}

	info := approval.TokenInfo{
		Name:           req.TokenName,
		SupportsPermit: req.SupportsPermit,
		RequiresReset:  req.RequiresReset,
	}
	if req.PermitNonce != "" {
		if nonce, ok := new(big.Int).SetString(req.PermitNonce, 10); ok {
			info.PermitNonce = nonce
		}
	}

	// A quote-less plan targets the combined router; the trade-specific
	// spender is settled at swap time.
	spender := h.svc.Optimizer.SpenderAddress(approval.SpenderCombined)
	deadline := big.NewInt(time.Now().Add(30 * time.Minute).Unix())
	plans, err := approval.Plans(token, info, common.HexToAddress(req.Owner), spender, amount, deadline)
	if err != nil {
		httputil.InternalError(c, "failed to build approval plans: "+err.Error())
		return
	}

	entries := make([]PlanEntry, 0, len(plans))
	for _, p := range plans {
		entry := PlanEntry{
			Method:  p.Method.String(),
			Token:   p.Token.Hex(),
			Spender: p.Spender.Hex(),
			Amount:  p.Amount.String(),
			Permit:  p.Permit,
		}
		if len(p.CallData) > 0 {
			entry.CallData = hexutil.Encode(p.CallData)
		}
		entries = append(entries, entry)
	}
	httputil.Success(c, entries)
}
