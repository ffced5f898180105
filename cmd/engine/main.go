package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/approval"
	"github.com/hazeflow/swap-engine/internal/builder"
	"github.com/hazeflow/swap-engine/internal/chain"
	"github.com/hazeflow/swap-engine/internal/common"
	"github.com/hazeflow/swap-engine/internal/config"
	"github.com/hazeflow/swap-engine/internal/domain"
	enginehttp "github.com/hazeflow/swap-engine/internal/http"
	"github.com/hazeflow/swap-engine/internal/persistence"
	"github.com/hazeflow/swap-engine/internal/reconcile"
	"github.com/hazeflow/swap-engine/internal/remote"
	"github.com/hazeflow/swap-engine/internal/router"
)

// @title Swap Engine API
// @version 1.0
// @description On-chain trade routing and quoting engine for constant-product and concentrated-liquidity pools.
// @description
// @description - **Quoting**: exact-in and exact-out quotes across direct, multi-hop, and split routes
// @description - **Reconciliation**: local quotes cross-checked against an optional remote routing API
// @description - **Price Impact**: basis-point impact with severity levels
// @description - **Swap Building**: unsigned calldata for the V2, V3, and combined routers
// @description - **Approvals**: allowance tracking with permit-first approval planning
// @description
// @description Amounts are in the token's smallest unit. Default slippage is auto-derived per chain.
// @BasePath /
// @schemes http https
// @tag.name quote
// @tag.description Get swap quotes with routing and price impact detail
// @tag.name swap
// @tag.description Build unsigned swap calldata ready for signing
// @tag.name approval
// @tag.description Token allowance state and approval planning
// @tag.name pools
// @tag.description Inspect and manage the routing pool set

func main() {
	common.InitRuntime()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid config")
		return
	}
	common.InitLogger(cfg.General.Env, cfg.General.LogLevel)

	client, err := ethclient.Dial(cfg.RPC.RPCUrl)
	if err != nil {
		log.Error().Err(err).Str("url", cfg.RPC.RPCUrl).Msg("failed to dial rpc")
		return
	}
	defer client.Close()

	cache := chain.NewDataCache(client, ethcommon.HexToAddress(cfg.RPC.MulticallAddress), cfg.RPC.ChainID)
	cache.SetActive(true)

	graph := router.NewGraph()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	var storage *persistence.Storage
	if cfg.Persistence.Enabled {
		storage, err = persistence.NewStorage(cfg.Persistence.DBPath)
		if err != nil {
			log.Error().Err(err).Msg("failed to open pool store")
			return
		}
		defer storage.Close()

		pools, err := storage.LoadAllPools()
		if err != nil {
			log.Warn().Err(err).Msg("warm start skipped")
		} else if len(pools) > 0 {
			graph.AddPoolsBatch(pools)
			log.Info().Int("pools", len(pools)).Msg("graph warm-started from disk")
		}

		persister := persistence.NewPersister(storage, graph, cfg.Persistence.PersistInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			persister.Run(ctx)
		}()
	}

	wrapped := ethcommon.HexToAddress(cfg.Contracts.WrappedNative)
	bases := router.NewBaseTokens(map[uint64][]domain.Currency{
		cfg.RPC.ChainID: baseTokens(cfg.RPC.ChainID, wrapped),
	})
	rt := router.New(graph, bases, cfg.Router)

	if cfg.Remote.BaseURL != "" && len(cfg.Remote.SupportedChains) == 0 {
		cfg.Remote.SupportedChains = []uint64{cfg.RPC.ChainID}
	}
	remoteClient := remote.NewClient(cfg.Remote)

	src := &poolSync{}
	reconciler := reconcile.New(rt, remoteClient, src, cfg.Router.DebounceWindow)
	defer reconciler.Close()

	natives := map[uint64]domain.Currency{
		cfg.RPC.ChainID: domain.NewToken(cfg.RPC.ChainID, wrapped, 18, "WNATIVE"),
	}
	if stable, ok := referenceStable(cfg.RPC.ChainID); ok {
		reconciler.SetPricer(router.NewUSDPricer(rt, client, natives, map[uint64]domain.Currency{
			cfg.RPC.ChainID: stable,
		}))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchBlocks(ctx, client, cache, graph, storage, src, 3*time.Second)
	}()

	addrs := approval.Addresses{
		Combined: ethcommon.HexToAddress(cfg.Contracts.CombinedRouter),
		V2Router: ethcommon.HexToAddress(cfg.Contracts.V2Router),
		V3Router: ethcommon.HexToAddress(cfg.Contracts.V3Router),
	}

	svc := &enginehttp.Service{
		Reconciler:    reconciler,
		Router:        rt,
		Builder:       builder.New(addrs, 0),
		Optimizer:     approval.NewOptimizer(cache, addrs),
		Cache:         cache,
		ChainID:       cfg.RPC.ChainID,
		WrappedNative: wrapped,
		NativeSymbol:  nativeSymbol(cfg.RPC.ChainID),
	}

	server := enginehttp.NewServer(&cfg.General, svc)
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping http server")
	}
	wg.Wait()
	log.Info().Msg("shutdown complete")
}

// baseTokens is the intermediate-token set route enumeration pivots through.
// The wrapped native token is always included; well-known mainnet stables are
// added on chain 1.
func baseTokens(chainID uint64, wrapped ethcommon.Address) []domain.Currency {
	tokens := []domain.Currency{
		domain.NewToken(chainID, wrapped, 18, "WNATIVE"),
	}
	if chainID == 1 {
		tokens = append(tokens,
			domain.NewToken(1, ethcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), 6, "USDC"),
			domain.NewToken(1, ethcommon.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), 6, "USDT"),
			domain.NewToken(1, ethcommon.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), 18, "DAI"),
		)
	}
	return tokens
}

// referenceStable is the USDC deployment used as the USD unit of account
// for gas and output valuation.
func referenceStable(chainID uint64) (domain.Currency, bool) {
	switch chainID {
	case 1:
		return domain.NewToken(1, ethcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), 6, "USDC"), true
	case 10:
		return domain.NewToken(10, ethcommon.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"), 6, "USDC"), true
	case 8453:
		return domain.NewToken(8453, ethcommon.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), 6, "USDC"), true
	case 42161:
		return domain.NewToken(42161, ethcommon.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), 6, "USDC"), true
	default:
		return domain.Currency{}, false
	}
}

func nativeSymbol(chainID uint64) string {
	switch chainID {
	case 56:
		return "BNB"
	case 137:
		return "POL"
	case 43114:
		return "AVAX"
	default:
		return "ETH"
	}
}
