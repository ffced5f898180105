package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/config"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/metrics"
)

var (
	ErrDisabled         = errors.New("remote quoting disabled")
	ErrUnsupportedChain = errors.New("chain not covered by remote quoting")
	ErrStaleBlock       = errors.New("remote quote older than last seen block")
	ErrTokenMismatch    = errors.New("remote quote tokens do not match request")
	ErrMalformedRoute   = errors.New("remote route payload malformed")
	ErrBadStatus        = errors.New("remote quote request failed")
)

// Client fetches quotes from the remote routing service. Responses are
// cached briefly per request shape, and a response for an older block than
// one already seen on the chain is rejected so quotes only move forward.
type Client struct {
	cfg  config.RemoteConfig
	http *http.Client

	supported map[uint64]bool

	mu        sync.Mutex
	lastBlock map[uint64]uint64
	cache     map[string]cachedQuote
}

type cachedQuote struct {
	quote   *Quote
	expires time.Time
}

func NewClient(cfg config.RemoteConfig) *Client {
	supported := make(map[uint64]bool, len(cfg.SupportedChains))
	for _, chainID := range cfg.SupportedChains {
		supported[chainID] = true
	}
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		supported: supported,
		lastBlock: make(map[uint64]uint64),
		cache:     make(map[string]cachedQuote),
	}
}

// Enabled reports whether remote quoting is configured at all.
func (c *Client) Enabled() bool { return c.cfg.BaseURL != "" }

// GetQuote fetches, validates, and rebuilds a remote quote. Every error is
// recoverable: the caller is expected to fall back to local routing.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if len(c.supported) > 0 && !c.supported[req.TokenIn.ChainID] {
		return nil, ErrUnsupportedChain
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, ErrMalformedRoute
	}

	key := c.requestKey(req)
	if quote := c.cachedFor(key); quote != nil {
		metrics.CacheHits.Inc()
		return quote, nil
	}

	quote, err := c.fetch(ctx, req)
	if err != nil {
		metrics.RemoteQuoteRequests.WithLabelValues("error").Inc()
		log.Debug().Err(err).
			Str("token_in", req.TokenIn.Symbol).
			Str("token_out", req.TokenOut.Symbol).
			Msg("remote quote failed")
		return nil, err
	}
	metrics.RemoteQuoteRequests.WithLabelValues("ok").Inc()

	c.mu.Lock()
	c.cache[key] = cachedQuote{quote: quote, expires: time.Now().Add(c.cfg.CacheTTL)}
	c.mu.Unlock()
	return quote, nil
}

func (c *Client) cachedFor(key string) *Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expires) {
		delete(c.cache, key)
		return nil
	}
	return entry.quote
}

func (c *Client) requestKey(req QuoteRequest) string {
	return fmt.Sprintf("%d:%s:%s:%s:%s",
		req.TokenIn.ChainID,
		req.TokenIn.RoutingAddress().Hex(),
		req.TokenOut.RoutingAddress().Hex(),
		req.TradeType.String(),
		req.Amount.String(),
	)
}

func (c *Client) fetch(ctx context.Context, req QuoteRequest) (*Quote, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL + "/quote")
	if err != nil {
		return nil, err
	}
	tradeType := "exactIn"
	if req.TradeType == domain.ExactOutput {
		tradeType = "exactOut"
	}
	query := endpoint.Query()
	query.Set("tokenInAddress", req.TokenIn.RoutingAddress().Hex())
	query.Set("tokenInChainId", fmt.Sprintf("%d", req.TokenIn.ChainID))
	query.Set("tokenOutAddress", req.TokenOut.RoutingAddress().Hex())
	query.Set("tokenOutChainId", fmt.Sprintf("%d", req.TokenOut.ChainID))
	query.Set("amount", req.Amount.String())
	query.Set("type", tradeType)
	endpoint.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded quoteResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}
	return c.validate(req, &decoded)
}

// validate applies the block monotonicity and token match guards, then
// rebuilds the trade.
func (c *Client) validate(req QuoteRequest, resp *quoteResponse) (*Quote, error) {
	block := parseBig(resp.BlockNumber)
	if block == nil || !block.IsUint64() {
		return nil, ErrMalformedRoute
	}
	blockNumber := block.Uint64()

	chainID := req.TokenIn.ChainID
	c.mu.Lock()
	last := c.lastBlock[chainID]
	if blockNumber < last {
		c.mu.Unlock()
		return nil, ErrStaleBlock
	}
	c.lastBlock[chainID] = blockNumber
	c.mu.Unlock()

	if err := checkTokens(req, resp); err != nil {
		return nil, err
	}

	trade, err := resp.toTrade(req)
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		Trade:             trade,
		BlockNumber:       blockNumber,
		GasUseEstimateUSD: parseRat(resp.GasUseEstimateUSD),
		RouteString:       resp.RouteString,
	}
	if gas := parseBig(resp.GasUseEstimate); gas != nil && gas.IsUint64() {
		quote.GasUseEstimate = gas.Uint64()
	}
	return quote, nil
}

// checkTokens verifies the response's route endpoints are the requested
// tokens. A route for a different pair is discarded even if well-formed.
func checkTokens(req QuoteRequest, resp *quoteResponse) error {
	wantIn := req.TokenIn.RoutingAddress()
	wantOut := req.TokenOut.RoutingAddress()
	for _, leg := range resp.Route {
		if len(leg) == 0 {
			return ErrMalformedRoute
		}
		gotIn := common.HexToAddress(leg[0].TokenIn.Address)
		gotOut := common.HexToAddress(leg[len(leg)-1].TokenOut.Address)
		if !strings.EqualFold(gotIn.Hex(), wantIn.Hex()) || !strings.EqualFold(gotOut.Hex(), wantOut.Hex()) {
			return ErrTokenMismatch
		}
	}
	return nil
}

// LastBlock returns the highest block seen for a chain.
func (c *Client) LastBlock(chainID uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBlock[chainID]
}
