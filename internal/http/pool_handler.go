package http

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/http/httputil"
)

type PoolHandler struct {
	svc *Service
}

func NewPoolHandler(svc *Service) *PoolHandler {
	return &PoolHandler{svc: svc}
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listPools)
	pub.GET("/:address", h.getPool)
	admin.POST("", h.registerPool)
	admin.DELETE("/:address", h.removePool)
}

// PoolSummary is the list view of one pool.
type PoolSummary struct {
	Address          string `json:"address"`
	Type             string `json:"type"`
	Token0           string `json:"token0"`
	Token1           string `json:"token1"`
	FeePPM           uint32 `json:"feePpm"`
	Ready            bool   `json:"ready"`
	LastUpdatedBlock uint64 `json:"lastUpdatedBlock"`
}

// PoolListResponse wraps the pool list with graph counters.
type PoolListResponse struct {
	Total int           `json:"total"`
	Ready int           `json:"ready"`
	Pools []PoolSummary `json:"pools"`
}

// @Summary List pools
// @Description List every pool in the routing graph with readiness flags.
// @Tags pools
// @Produce json
// @Success 200 {object} httputil.Response{data=PoolListResponse}
// @Router /api/v1/pools [get]
func (h *PoolHandler) listPools(c *gin.Context) {
	graph := h.svc.Router.Graph()
	pools := graph.GetAllPools()

	resp := PoolListResponse{
		Total: graph.PoolCount(),
		Ready: graph.ReadyPoolCount(),
		Pools: make([]PoolSummary, 0, len(pools)),
	}
	for _, p := range pools {
		resp.Pools = append(resp.Pools, PoolSummary{
			Address:          p.Address.Hex(),
			Type:             p.Type.String(),
			Token0:           p.Token0.Hex(),
			Token1:           p.Token1.Hex(),
			FeePPM:           p.FeePPM,
			Ready:            p.Ready(),
			LastUpdatedBlock: p.LastUpdatedBlock,
		})
	}
	httputil.Success(c, resp)
}

// PoolDetail adds the protocol state to the summary view.
type PoolDetail struct {
	PoolSummary

	Reserve0 string `json:"reserve0,omitempty"`
	Reserve1 string `json:"reserve1,omitempty"`

	SqrtPriceX96 string `json:"sqrtPriceX96,omitempty"`
	Liquidity    string `json:"liquidity,omitempty"`
	Tick         int32  `json:"tick,omitempty"`
	TickSpacing  int32  `json:"tickSpacing,omitempty"`
	LoadedTicks  int    `json:"loadedTicks,omitempty"`
}

// @Summary Get pool
// @Description Fetch one pool with its full protocol state.
// @Tags pools
// @Produce json
// @Param address path string true "Pool address"
// @Success 200 {object} httputil.Response{data=PoolDetail}
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Router /api/v1/pools/{address} [get]
func (h *PoolHandler) getPool(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		httputil.BadRequest(c, "invalid pool address")
		return
	}
	pool := h.svc.Router.Graph().GetPool(common.HexToAddress(raw))
	if pool == nil {
		httputil.NotFound(c, "pool not found")
		return
	}

	detail := PoolDetail{
		PoolSummary: PoolSummary{
			Address:          pool.Address.Hex(),
			Type:             pool.Type.String(),
			Token0:           pool.Token0.Hex(),
			Token1:           pool.Token1.Hex(),
			FeePPM:           pool.FeePPM,
			Ready:            pool.Ready(),
			LastUpdatedBlock: pool.LastUpdatedBlock,
		},
	}
	switch pool.Type {
	case domain.PoolTypeV2:
		if pool.V2 != nil {
			if pool.V2.Reserve0 != nil {
				detail.Reserve0 = pool.V2.Reserve0.String()
			}
			if pool.V2.Reserve1 != nil {
				detail.Reserve1 = pool.V2.Reserve1.String()
			}
		}
	case domain.PoolTypeV3:
		if pool.V3 != nil {
			if pool.V3.SqrtPriceX96 != nil {
				detail.SqrtPriceX96 = pool.V3.SqrtPriceX96.String()
			}
			if pool.V3.Liquidity != nil {
				detail.Liquidity = pool.V3.Liquidity.String()
			}
			detail.Tick = pool.V3.Tick
			detail.TickSpacing = pool.V3.TickSpacing
			detail.LoadedTicks = len(pool.V3.Ticks)
		}
	}
	httputil.Success(c, detail)
}

// @Summary Remove pool
// @Description Drop a pool from the routing graph.
// @Tags pools
// @Produce json
// @Param address path string true "Pool address"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/admin/pools/{address} [delete]
func (h *PoolHandler) removePool(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		httputil.BadRequest(c, "invalid pool address")
		return
	}
	h.svc.Router.Graph().RemovePool(common.HexToAddress(raw))
	httputil.Success(c, gin.H{"removed": raw})
}

// RegisterPoolRequest describes a pool to track. State is loaded from the
// chain on the next refresh, so a registered pool is not routable until then.
type RegisterPoolRequest struct {
	Address     string `json:"address" binding:"required" example:"0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"`
	Type        string `json:"type" binding:"required" example:"v2"`
	Token0      string `json:"token0" binding:"required"`
	Token1      string `json:"token1" binding:"required"`
	FeePPM      uint32 `json:"feePpm" example:"3000"`
	TickSpacing int32  `json:"tickSpacing" example:"60"`
}

// @Summary Register pool
// @Description Add a pool to the routing graph. Its reserves or slot0 state
// @Description are fetched on the next block refresh.
// @Tags pools
// @Accept json
// @Produce json
// @Param request body RegisterPoolRequest true "Pool description"
// @Success 200 {object} httputil.Response{data=PoolSummary}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/admin/pools [post]
func (h *PoolHandler) registerPool(c *gin.Context) {
	var req RegisterPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if !common.IsHexAddress(req.Address) || !common.IsHexAddress(req.Token0) || !common.IsHexAddress(req.Token1) {
		httputil.BadRequest(c, "invalid address")
		return
	}

	token0, token1 := domain.SortTokens(common.HexToAddress(req.Token0), common.HexToAddress(req.Token1))
	pool := &domain.Pool{
		Address: common.HexToAddress(req.Address),
		ChainID: h.svc.ChainID,
		Token0:  token0,
		Token1:  token1,
	}
	switch req.Type {
	case "v2":
		pool.Type = domain.PoolTypeV2
		pool.FeePPM = domain.V2FeePPM
	case "v3":
		if req.FeePPM == 0 || req.TickSpacing == 0 {
			httputil.BadRequest(c, "v3 pools need feePpm and tickSpacing")
			return
		}
		pool.Type = domain.PoolTypeV3
		pool.FeePPM = req.FeePPM
		pool.V3 = &domain.V3State{TickSpacing: req.TickSpacing}
	default:
		httputil.BadRequest(c, "type must be v2 or v3")
		return
	}

	h.svc.Router.Graph().AddPool(pool)
	httputil.Success(c, PoolSummary{
		Address: pool.Address.Hex(),
		Type:    pool.Type.String(),
		Token0:  pool.Token0.Hex(),
		Token1:  pool.Token1.Hex(),
		FeePPM:  pool.FeePPM,
		Ready:   pool.Ready(),
	})
}
