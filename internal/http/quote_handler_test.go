package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http/httptest"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/hazeflow/swap-engine/internal/approval"
	"github.com/hazeflow/swap-engine/internal/builder"
	"github.com/hazeflow/swap-engine/internal/config"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/http/httputil"
	"github.com/hazeflow/swap-engine/internal/reconcile"
	"github.com/hazeflow/swap-engine/internal/router"
)

var (
	tokenA  = ethcommon.HexToAddress("0x000000000000000000000000000000000000000A")
	tokenB  = ethcommon.HexToAddress("0x000000000000000000000000000000000000000b")
	trader  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000EE")
	wrapped = ethcommon.HexToAddress("0x0000000000000000000000000000000000000FFF")

	routerAddrs = approval.Addresses{
		Combined: ethcommon.HexToAddress("0x0000000000000000000000000000000000000C01"),
		V2Router: ethcommon.HexToAddress("0x0000000000000000000000000000000000000C02"),
		V3Router: ethcommon.HexToAddress("0x0000000000000000000000000000000000000C03"),
	}
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	graph := router.NewGraph()
	graph.AddPool(&domain.Pool{
		Address: ethcommon.HexToAddress("0xF000000000000000000000000000000000000001"),
		ChainID: 1,
		Type:    domain.PoolTypeV2,
		Token0:  tokenA,
		Token1:  tokenB,
		FeePPM:  domain.V2FeePPM,
		V2:      &domain.V2State{Reserve0: big.NewInt(10_000_000), Reserve1: big.NewInt(10_000_000)},
	})
	bases := router.NewBaseTokens(map[uint64][]domain.Currency{
		1: {domain.NewToken(1, tokenB, 18, "WETH")},
	})
	rt := router.New(graph, bases, config.RouterConfig{MaxHops: 3, HopPreferenceBps: 50, MaxSplits: 1})

	svc := &Service{
		Reconciler:    reconcile.New(rt, nil, nil, 0),
		Router:        rt,
		Builder:       builder.New(routerAddrs, 0),
		Optimizer:     approval.NewOptimizer(nil, routerAddrs),
		ChainID:       1,
		WrappedNative: wrapped,
		NativeSymbol:  "ETH",
	}

	r := gin.New()
	api := r.Group("api")
	pub := api.Group(APIVersion)
	admin := api.Group(APIVersion + "/admin")
	for _, h := range []httputil.IHttpHandler{
		NewQuoteHandler(svc),
		NewSwapHandler(svc),
		NewApprovalHandler(svc),
		NewPoolHandler(svc),
	} {
		h.SetRoutes(pub.Group(h.Root()), admin.Group(h.Root()))
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, url string, body []byte) (int, httputil.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp httputil.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w.Code, resp
}

func TestQuoteEndpoint(t *testing.T) {
	r := newTestRouter(t)
	url := fmt.Sprintf("/api/v1/quote?tokenIn=%s&tokenOut=%s&amount=1000&tradeType=exactIn", tokenA.Hex(), tokenB.Hex())

	code, resp := doJSON(t, r, "GET", url, nil)
	if code != 200 || !resp.Success {
		t.Fatalf("quote failed: code=%d resp=%+v", code, resp)
	}

	data, _ := json.Marshal(resp.Data)
	var quote QuoteResponse
	if err := json.Unmarshal(data, &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if quote.State != "VALID" {
		t.Fatalf("state = %q", quote.State)
	}
	if quote.AmountIn != "1000" {
		t.Fatalf("amountIn = %q", quote.AmountIn)
	}
	if quote.AmountOut == "" || quote.AmountOut == "0" {
		t.Fatalf("amountOut = %q", quote.AmountOut)
	}
	if quote.SlippageBps == 0 {
		t.Fatalf("expected auto slippage, got 0")
	}
	if len(quote.Routes) != 1 || len(quote.Routes[0].Hops) != 1 {
		t.Fatalf("routes = %+v", quote.Routes)
	}
	if quote.Routes[0].Percent != 100 {
		t.Fatalf("percent = %d", quote.Routes[0].Percent)
	}
	if quote.FeeBps != 30 {
		t.Fatalf("feeBps = %d, want 30", quote.FeeBps)
	}
}

func TestQuoteEndpointValidation(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		name string
		url  string
		code int
	}{
		{"missing params", "/api/v1/quote", 400},
		{"bad token", "/api/v1/quote?tokenIn=xyz&tokenOut=" + tokenB.Hex() + "&amount=1000&tradeType=exactIn", 400},
		{"bad amount", fmt.Sprintf("/api/v1/quote?tokenIn=%s&tokenOut=%s&amount=-5&tradeType=exactIn", tokenA.Hex(), tokenB.Hex()), 400},
		{"bad tradeType", fmt.Sprintf("/api/v1/quote?tokenIn=%s&tokenOut=%s&amount=1000&tradeType=market", tokenA.Hex(), tokenB.Hex()), 400},
		{"bad protocols", fmt.Sprintf("/api/v1/quote?tokenIn=%s&tokenOut=%s&amount=1000&tradeType=exactIn&protocols=v4", tokenA.Hex(), tokenB.Hex()), 400},
		{"no route", fmt.Sprintf("/api/v1/quote?tokenIn=%s&tokenOut=%s&amount=1000&tradeType=exactIn", tokenA.Hex(), trader.Hex()), 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := doJSON(t, r, "GET", tt.url, nil)
			if code != tt.code {
				t.Fatalf("code = %d, want %d (resp %+v)", code, tt.code, resp)
			}
			if resp.Success {
				t.Fatalf("expected failure envelope")
			}
		})
	}
}

func TestSwapEndpointBuildsCall(t *testing.T) {
	r := newTestRouter(t)
	body, _ := json.Marshal(SwapRequest{
		TokenIn:     tokenA.Hex(),
		TokenOut:    tokenB.Hex(),
		Amount:      "1000",
		TradeType:   "exactIn",
		Recipient:   trader.Hex(),
		SlippageBps: 50,
	})

	code, resp := doJSON(t, r, "POST", "/api/v1/swap", body)
	if code != 200 || !resp.Success {
		t.Fatalf("swap failed: code=%d resp=%+v", code, resp)
	}

	data, _ := json.Marshal(resp.Data)
	var swap SwapResponse
	if err := json.Unmarshal(data, &swap); err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if swap.To != routerAddrs.V2Router.Hex() {
		t.Fatalf("to = %q, want v2 router", swap.To)
	}
	if len(swap.Data) < 10 || swap.Data[:2] != "0x" {
		t.Fatalf("data = %q", swap.Data)
	}
	if swap.Spender != "v2-router" {
		t.Fatalf("spender = %q", swap.Spender)
	}
	if swap.Quote.State != "VALID" {
		t.Fatalf("embedded quote state = %q", swap.Quote.State)
	}
}

func TestSwapEndpointRejectsBadRecipient(t *testing.T) {
	r := newTestRouter(t)
	body, _ := json.Marshal(SwapRequest{
		TokenIn:   tokenA.Hex(),
		TokenOut:  tokenB.Hex(),
		Amount:    "1000",
		TradeType: "exactIn",
		Recipient: "not-an-address",
	})
	code, _ := doJSON(t, r, "POST", "/api/v1/swap", body)
	if code != 400 {
		t.Fatalf("code = %d, want 400", code)
	}
}

func TestSwapEndpointBlocksExtremeImpact(t *testing.T) {
	// 1.5M against 10M reserves moves the pool well past 10%; no
	// confirmation flag makes that executable.
	r := newTestRouter(t)
	body, _ := json.Marshal(SwapRequest{
		TokenIn:           tokenA.Hex(),
		TokenOut:          tokenB.Hex(),
		Amount:            "1500000",
		TradeType:         "exactIn",
		Recipient:         trader.Hex(),
		SlippageBps:       50,
		ConfirmHighImpact: true,
	})
	code, resp := doJSON(t, r, "POST", "/api/v1/swap", body)
	if code != 400 || resp.Success {
		t.Fatalf("code = %d resp = %+v, want 400 failure", code, resp)
	}
}

func TestSwapEndpointHighImpactNeedsConfirmation(t *testing.T) {
	r := newTestRouter(t)
	req := SwapRequest{
		TokenIn:     tokenA.Hex(),
		TokenOut:    tokenB.Hex(),
		Amount:      "700000",
		TradeType:   "exactIn",
		Recipient:   trader.Hex(),
		SlippageBps: 50,
	}

	body, _ := json.Marshal(req)
	code, resp := doJSON(t, r, "POST", "/api/v1/swap", body)
	if code != 400 || resp.Success {
		t.Fatalf("unconfirmed high impact: code = %d resp = %+v, want 400 failure", code, resp)
	}

	req.ConfirmHighImpact = true
	body, _ = json.Marshal(req)
	code, resp = doJSON(t, r, "POST", "/api/v1/swap", body)
	if code != 200 || !resp.Success {
		t.Fatalf("confirmed high impact: code = %d resp = %+v, want success", code, resp)
	}
}

func TestQuoteEndpointReportsApprovalState(t *testing.T) {
	r := newTestRouter(t)
	url := fmt.Sprintf("/api/v1/quote?tokenIn=%s&tokenOut=%s&amount=1000&tradeType=exactIn&owner=%s",
		tokenA.Hex(), tokenB.Hex(), trader.Hex())

	code, resp := doJSON(t, r, "GET", url, nil)
	if code != 200 || !resp.Success {
		t.Fatalf("quote failed: code=%d resp=%+v", code, resp)
	}
	data, _ := json.Marshal(resp.Data)
	var quote QuoteResponse
	if err := json.Unmarshal(data, &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	// No allowance cache is wired here, so the state cannot be resolved
	// yet; the field is still populated for the polling client.
	if quote.ApprovalState != "UNKNOWN" {
		t.Fatalf("approvalState = %q, want UNKNOWN", quote.ApprovalState)
	}
}

func TestPoolEndpoints(t *testing.T) {
	r := newTestRouter(t)

	code, resp := doJSON(t, r, "GET", "/api/v1/pools", nil)
	if code != 200 || !resp.Success {
		t.Fatalf("list failed: code=%d", code)
	}
	data, _ := json.Marshal(resp.Data)
	var list PoolListResponse
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || list.Ready != 1 || len(list.Pools) != 1 {
		t.Fatalf("list = %+v", list)
	}

	code, resp = doJSON(t, r, "GET", "/api/v1/pools/"+list.Pools[0].Address, nil)
	if code != 200 || !resp.Success {
		t.Fatalf("detail failed: code=%d", code)
	}
	data, _ = json.Marshal(resp.Data)
	var detail PoolDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Reserve0 != "10000000" || detail.Reserve1 != "10000000" {
		t.Fatalf("detail reserves = %+v", detail)
	}

	code, _ = doJSON(t, r, "GET", "/api/v1/pools/"+trader.Hex(), nil)
	if code != 404 {
		t.Fatalf("missing pool code = %d, want 404", code)
	}

	code, _ = doJSON(t, r, "DELETE", "/api/v1/admin/pools/"+list.Pools[0].Address, nil)
	if code != 200 {
		t.Fatalf("remove code = %d", code)
	}
	code, _ = doJSON(t, r, "GET", "/api/v1/pools/"+list.Pools[0].Address, nil)
	if code != 404 {
		t.Fatalf("pool still present after remove")
	}
}

func TestApprovalPlanEndpoint(t *testing.T) {
	r := newTestRouter(t)
	body, _ := json.Marshal(PlanRequest{
		Owner:          trader.Hex(),
		Token:          tokenA.Hex(),
		Amount:         "5000",
		SupportsPermit: true,
		PermitNonce:    "2",
		TokenName:      "Token A",
	})

	code, resp := doJSON(t, r, "POST", "/api/v1/approval/plan", body)
	if code != 200 || !resp.Success {
		t.Fatalf("plan failed: code=%d resp=%+v", code, resp)
	}
	data, _ := json.Marshal(resp.Data)
	var entries []PlanEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d plans, want 3", len(entries))
	}
	if entries[0].Method != "permit" || entries[0].Permit == nil {
		t.Fatalf("first plan = %+v", entries[0])
	}
	if entries[1].Method != "approve" || entries[1].CallData == "" {
		t.Fatalf("second plan = %+v", entries[1])
	}
	if entries[2].Method != "approve-infinite" {
		t.Fatalf("third plan = %+v", entries[2])
	}

	// Native asset never needs approval plans.
	body, _ = json.Marshal(PlanRequest{Owner: trader.Hex(), Token: "native", Amount: "5000"})
	code, _ = doJSON(t, r, "POST", "/api/v1/approval/plan", body)
	if code != 400 {
		t.Fatalf("native plan code = %d, want 400", code)
	}
}
