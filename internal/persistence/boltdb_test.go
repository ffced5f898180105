package persistence

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "pools.db"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleV2Pool() *domain.Pool {
	return &domain.Pool{
		Address:          common.HexToAddress("0x0000000000000000000000000000000000001001"),
		ChainID:          1,
		Type:             domain.PoolTypeV2,
		Token0:           common.HexToAddress("0x000000000000000000000000000000000000000A"),
		Token1:           common.HexToAddress("0x000000000000000000000000000000000000000b"),
		FeePPM:           domain.V2FeePPM,
		V2:               &domain.V2State{Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(2_500_000)},
		LastUpdatedBlock: 123,
	}
}

func sampleV3Pool() *domain.Pool {
	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	return &domain.Pool{
		Address:          common.HexToAddress("0x0000000000000000000000000000000000001002"),
		ChainID:          1,
		Type:             domain.PoolTypeV3,
		Token0:           common.HexToAddress("0x000000000000000000000000000000000000000A"),
		Token1:           common.HexToAddress("0x000000000000000000000000000000000000000b"),
		FeePPM:           500,
		V3: &domain.V3State{
			SqrtPriceX96: sqrtPrice,
			Liquidity:    big.NewInt(9_000_000),
			Tick:         0,
			TickSpacing:  10,
		},
		LastUpdatedBlock: 456,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	v2 := sampleV2Pool()
	v3 := sampleV3Pool()

	if err := s.SavePoolBatch([]*domain.Pool{v2, v3}); err != nil {
		t.Fatalf("SavePoolBatch: %v", err)
	}

	pools, err := s.LoadAllPools()
	if err != nil {
		t.Fatalf("LoadAllPools: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("loaded %d pools, want 2", len(pools))
	}

	byAddr := make(map[common.Address]*domain.Pool)
	for _, p := range pools {
		byAddr[p.Address] = p
	}

	got := byAddr[v2.Address]
	if got == nil || got.Type != domain.PoolTypeV2 {
		t.Fatalf("v2 pool missing or wrong type: %+v", got)
	}
	if got.V2.Reserve0.Cmp(v2.V2.Reserve0) != 0 || got.V2.Reserve1.Cmp(v2.V2.Reserve1) != 0 {
		t.Fatalf("v2 reserves round trip: %+v", got.V2)
	}
	if got.LastUpdatedBlock != 123 {
		t.Fatalf("lastUpdatedBlock = %d", got.LastUpdatedBlock)
	}
	if !got.Ready() {
		t.Fatalf("loaded v2 pool not ready")
	}

	got = byAddr[v3.Address]
	if got == nil || got.Type != domain.PoolTypeV3 {
		t.Fatalf("v3 pool missing or wrong type: %+v", got)
	}
	if got.V3.SqrtPriceX96.Cmp(v3.V3.SqrtPriceX96) != 0 {
		t.Fatalf("sqrtPrice round trip: %v", got.V3.SqrtPriceX96)
	}
	if got.V3.Liquidity.Cmp(v3.V3.Liquidity) != 0 || got.V3.TickSpacing != 10 {
		t.Fatalf("v3 state round trip: %+v", got.V3)
	}
	if got.FeePPM != 500 {
		t.Fatalf("feePPM = %d", got.FeePPM)
	}
}

func TestSavePoolOverwrites(t *testing.T) {
	s := newTestStorage(t)
	pool := sampleV2Pool()
	if err := s.SavePool(pool); err != nil {
		t.Fatalf("SavePool: %v", err)
	}

	pool.V2.Reserve0 = big.NewInt(42)
	pool.LastUpdatedBlock = 999
	if err := s.SavePool(pool); err != nil {
		t.Fatalf("SavePool again: %v", err)
	}

	pools, err := s.LoadAllPools()
	if err != nil {
		t.Fatalf("LoadAllPools: %v", err)
	}
	if len(pools) != 1 {
		t.Fatalf("loaded %d pools, want 1", len(pools))
	}
	if pools[0].V2.Reserve0.Cmp(big.NewInt(42)) != 0 || pools[0].LastUpdatedBlock != 999 {
		t.Fatalf("overwrite not applied: %+v", pools[0])
	}
}

func TestDeletePool(t *testing.T) {
	s := newTestStorage(t)
	pool := sampleV2Pool()
	if err := s.SavePool(pool); err != nil {
		t.Fatalf("SavePool: %v", err)
	}
	if err := s.DeletePool(pool); err != nil {
		t.Fatalf("DeletePool: %v", err)
	}
	count, err := s.PoolCount()
	if err != nil {
		t.Fatalf("PoolCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d after delete", count)
	}
}

func TestLoadSkipsCorruptEntries(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SavePool(sampleV2Pool()); err != nil {
		t.Fatalf("SavePool: %v", err)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolsBucket)).Put([]byte("1:0xjunk"), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("plant corrupt entry: %v", err)
	}

	pools, err := s.LoadAllPools()
	if err != nil {
		t.Fatalf("LoadAllPools: %v", err)
	}
	if len(pools) != 1 {
		t.Fatalf("loaded %d pools, want 1 (corrupt skipped)", len(pools))
	}
}

func TestLastBlockPerChain(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SaveLastBlock(1, 18_000_000); err != nil {
		t.Fatalf("SaveLastBlock: %v", err)
	}
	if err := s.SaveLastBlock(8453, 9_000_000); err != nil {
		t.Fatalf("SaveLastBlock: %v", err)
	}

	block, err := s.LastBlock(1)
	if err != nil || block != 18_000_000 {
		t.Fatalf("LastBlock(1) = (%d, %v)", block, err)
	}
	block, err = s.LastBlock(8453)
	if err != nil || block != 9_000_000 {
		t.Fatalf("LastBlock(8453) = (%d, %v)", block, err)
	}
	block, err = s.LastBlock(10)
	if err != nil || block != 0 {
		t.Fatalf("LastBlock(10) = (%d, %v), want zero", block, err)
	}
}

type staticSource struct {
	pools []*domain.Pool
}

func (s *staticSource) GetAllPools() []*domain.Pool { return s.pools }
func (s *staticSource) ReadyPoolCount() int         { return len(s.pools) }

func TestPersisterSnapshot(t *testing.T) {
	s := newTestStorage(t)
	src := &staticSource{pools: []*domain.Pool{sampleV2Pool(), sampleV3Pool()}}

	p := NewPersister(s, src, 0)
	p.Snapshot()

	count, err := s.PoolCount()
	if err != nil {
		t.Fatalf("PoolCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
