package reconcile

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/config"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/router"
)

var (
	recTokenA = common.HexToAddress("0x000000000000000000000000000000000000000A")
	recTokenB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	recTokenC = common.HexToAddress("0x000000000000000000000000000000000000000C")
)

type fakeSource struct {
	ready   atomic.Bool
	syncing atomic.Bool
}

func (s *fakeSource) Ready() bool   { return s.ready.Load() }
func (s *fakeSource) Syncing() bool { return s.syncing.Load() }

func newTestReconciler(debounce time.Duration) (*Reconciler, *fakeSource) {
	graph := router.NewGraph()
	graph.AddPool(&domain.Pool{
		Address: common.HexToAddress("0xF000000000000000000000000000000000000001"),
		ChainID: 1,
		Type:    domain.PoolTypeV2,
		Token0:  recTokenA,
		Token1:  recTokenB,
		FeePPM:  domain.V2FeePPM,
		V2:      &domain.V2State{Reserve0: big.NewInt(100_000), Reserve1: big.NewInt(100_000)},
	})
	bases := router.NewBaseTokens(map[uint64][]domain.Currency{
		1: {domain.NewToken(1, recTokenB, 18, "WETH")},
	})
	rt := router.New(graph, bases, config.RouterConfig{MaxHops: 3, HopPreferenceBps: 50, MaxSplits: 1})

	source := &fakeSource{}
	source.ready.Store(true)
	return New(rt, nil, source, debounce), source
}

func validInputs() Inputs {
	return Inputs{
		TokenIn:   domain.NewToken(1, recTokenA, 18, "AAA"),
		TokenOut:  domain.NewToken(1, recTokenB, 18, "BBB"),
		Amount:    big.NewInt(1000),
		TradeType: domain.ExactInput,
	}
}

func TestReconcileInvalidInputs(t *testing.T) {
	r, _ := newTestReconciler(time.Millisecond)
	defer r.Close()

	tests := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"identical tokens", func(in *Inputs) { in.TokenOut = in.TokenIn }},
		{"zero amount", func(in *Inputs) { in.Amount = big.NewInt(0) }},
		{"negative amount", func(in *Inputs) { in.Amount = big.NewInt(-5) }},
		{"nil amount", func(in *Inputs) { in.Amount = nil }},
		{"unset token", func(in *Inputs) { in.TokenIn = domain.Currency{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := validInputs()
			tt.mutate(&inputs)
			result := r.Reconcile(context.Background(), inputs)
			if result.State != domain.TradeStateInvalid {
				t.Fatalf("expected INVALID, got %s", result.State)
			}
		})
	}
}

func TestReconcileValid(t *testing.T) {
	r, _ := newTestReconciler(time.Millisecond)
	defer r.Close()

	result := r.Reconcile(context.Background(), validInputs())
	if result.State != domain.TradeStateValid {
		t.Fatalf("expected VALID, got %s", result.State)
	}
	if result.Trade == nil || result.Trade.OutputAmount().Sign() <= 0 {
		t.Fatal("expected a populated trade")
	}
	if result.Remote {
		t.Fatal("no remote client configured, trade cannot be remote")
	}
	if result.SlippageBps == 0 {
		t.Fatal("expected a slippage tolerance")
	}
	if result.GasEstimate == 0 {
		t.Fatal("expected a gas estimate")
	}
}

func TestReconcileNoRoute(t *testing.T) {
	r, _ := newTestReconciler(time.Millisecond)
	defer r.Close()

	inputs := validInputs()
	inputs.TokenOut = domain.NewToken(1, recTokenC, 18, "CCC")
	result := r.Reconcile(context.Background(), inputs)
	if result.State != domain.TradeStateNoRouteFound {
		t.Fatalf("expected NO_ROUTE_FOUND, got %s", result.State)
	}
}

func TestReconcileLoadingAndSyncing(t *testing.T) {
	r, source := newTestReconciler(time.Millisecond)
	defer r.Close()

	source.ready.Store(false)
	if result := r.Reconcile(context.Background(), validInputs()); result.State != domain.TradeStateLoading {
		t.Fatalf("expected LOADING, got %s", result.State)
	}

	source.ready.Store(true)
	source.syncing.Store(true)
	result := r.Reconcile(context.Background(), validInputs())
	if result.State != domain.TradeStateSyncing {
		t.Fatalf("expected SYNCING, got %s", result.State)
	}
	if result.Trade == nil {
		t.Fatal("syncing state must still carry the last computed trade")
	}
}

func TestSubmitDebouncesToLastGeneration(t *testing.T) {
	r, _ := newTestReconciler(30 * time.Millisecond)
	defer r.Close()

	inputs := validInputs()
	for i := 0; i < 5; i++ {
		inputs.Amount = big.NewInt(int64(1000 + i))
		r.Submit(inputs)
	}
	lastGen := r.Submit(inputs)

	select {
	case result := <-r.Updates():
		if result.Generation != lastGen {
			t.Fatalf("expected only generation %d, got %d", lastGen, result.Generation)
		}
		if result.State != domain.TradeStateValid {
			t.Fatalf("expected VALID, got %s", result.State)
		}
	case <-time.After(time.Second):
		t.Fatal("no result within deadline")
	}

	// No earlier generation may surface afterwards.
	select {
	case extra := <-r.Updates():
		t.Fatalf("unexpected extra result for generation %d", extra.Generation)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLatestTracksPublished(t *testing.T) {
	r, _ := newTestReconciler(5 * time.Millisecond)
	defer r.Close()

	if r.Latest().State != domain.TradeStateInvalid {
		t.Fatal("initial state must be INVALID")
	}

	r.Submit(validInputs())
	select {
	case <-r.Updates():
	case <-time.After(time.Second):
		t.Fatal("no result within deadline")
	}
	if r.Latest().State != domain.TradeStateValid {
		t.Fatalf("latest not updated, got %s", r.Latest().State)
	}
}
