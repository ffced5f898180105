package approval

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/chain"
	"github.com/hazeflow/swap-engine/internal/domain"
)

// Status is the resolved approval picture for one prospective swap: which
// router the trade needs, and where the token allowance stands against it.
type Status struct {
	Spender     Spender
	SpenderAddr common.Address
	State       domain.ApprovalState
	Allowance   *big.Int
	BlockNumber uint64
}

type pendingKey struct {
	owner   common.Address
	token   common.Address
	spender common.Address
}

// Optimizer resolves allowance state against the router a trade will use.
// It tracks approvals submitted through it so a wallet is not asked to
// approve twice while the first transaction is still in the mempool.
type Optimizer struct {
	cache *chain.DataCache
	addrs Addresses

	mu      sync.Mutex
	pending map[pendingKey]common.Hash
}

func NewOptimizer(cache *chain.DataCache, addrs Addresses) *Optimizer {
	return &Optimizer{
		cache:   cache,
		addrs:   addrs,
		pending: make(map[pendingKey]common.Hash),
	}
}

// SpenderAddress resolves a spender to its configured contract address.
func (o *Optimizer) SpenderAddress(s Spender) common.Address {
	return o.addrs.For(s)
}

// Check resolves the approval picture for spending amount of the trade's
// input currency. Every router able to execute the trade is a candidate,
// and an already approved candidate wins, the combined router first; with
// nothing approved the combined router is the default, so a wallet never
// approves a protocol router it does not strictly need. Native currency
// never needs approval. A pending approval reported earlier via MarkPending
// against any candidate defers the choice entirely until ClearPending;
// allowance reads lag the mempool.
func (o *Optimizer) Check(ctx context.Context, owner common.Address, input domain.Currency, amount *big.Int, trade *domain.Trade) (Status, error) {
	if input.IsNative {
		sp := SpenderForTrade(trade)
		return Status{Spender: sp, SpenderAddr: o.addrs.For(sp), State: domain.ApprovalApproved}, nil
	}
	token := input.Address
	cands := candidateSpenders(trade)

	if o.anyPending(owner, token, cands) {
		return Status{Spender: SpenderUndetermined, State: domain.ApprovalPending}, nil
	}

	if o.cache == nil {
		sp := SpenderForTrade(trade)
		return Status{Spender: sp, SpenderAddr: o.addrs.For(sp), State: domain.ApprovalUnknown}, nil
	}

	var firstErr error
	statuses := make([]Status, len(cands))
	for i, sp := range cands {
		st, err := o.readAllowance(ctx, owner, token, amount, sp)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		statuses[i] = st
	}
	for _, st := range statuses {
		if st.State == domain.ApprovalApproved {
			return st, nil
		}
	}
	return statuses[0], firstErr
}

// PeekApproval is the non-blocking Check: it answers from the multicall
// cache without dispatching a round trip. ok is false when a candidate
// router's allowance has never been fetched; callers warm the cache with a
// background Check and retry on the next poll.
func (o *Optimizer) PeekApproval(owner common.Address, input domain.Currency, amount *big.Int, trade *domain.Trade) (Status, bool) {
	if input.IsNative {
		sp := SpenderForTrade(trade)
		return Status{Spender: sp, SpenderAddr: o.addrs.For(sp), State: domain.ApprovalApproved}, true
	}
	token := input.Address
	cands := candidateSpenders(trade)

	if o.anyPending(owner, token, cands) {
		return Status{Spender: SpenderUndetermined, State: domain.ApprovalPending}, true
	}
	if o.cache == nil {
		return Status{}, false
	}

	statuses := make([]Status, len(cands))
	for i, sp := range cands {
		addr := o.addrs.For(sp)
		results, ok := chain.PeekAllowances(o.cache, owner, addr, []common.Address{token})
		if !ok {
			return Status{}, false
		}
		st := Status{Spender: sp, SpenderAddr: addr, State: domain.ApprovalUnknown}
		if len(results) == 1 && results[0].Valid {
			st.BlockNumber = o.cache.LatestBlock()
			st.Allowance = results[0].Amount
			st.State = allowanceState(st.Allowance, amount)
		}
		statuses[i] = st
	}
	for _, st := range statuses {
		if st.State == domain.ApprovalApproved {
			return st, true
		}
	}
	return statuses[0], true
}

func (o *Optimizer) anyPending(owner, token common.Address, cands []Spender) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, sp := range cands {
		if _, ok := o.pending[pendingKey{owner, token, o.addrs.For(sp)}]; ok {
			return true
		}
	}
	return false
}

// readAllowance resolves the allowance of (owner, token) against one
// spender, blocking on the chain read.
func (o *Optimizer) readAllowance(ctx context.Context, owner, token common.Address, amount *big.Int, sp Spender) (Status, error) {
	st := Status{Spender: sp, SpenderAddr: o.addrs.For(sp), State: domain.ApprovalUnknown}
	results, err := chain.FetchAllowances(ctx, o.cache, owner, st.SpenderAddr, []common.Address{token})
	if err != nil {
		return st, err
	}
	st.BlockNumber = o.cache.LatestBlock()
	if len(results) != 1 || !results[0].Valid {
		return st, nil
	}
	st.Allowance = results[0].Amount
	st.State = allowanceState(st.Allowance, amount)
	return st, nil
}

func allowanceState(allowance, amount *big.Int) domain.ApprovalState {
	if amount != nil && allowance.Cmp(amount) >= 0 {
		return domain.ApprovalApproved
	}
	return domain.ApprovalNotApproved
}

// MarkPending records an approval transaction submitted for the pair. The
// entry keeps Check answering PENDING until the caller clears it on
// confirmation or drop.
func (o *Optimizer) MarkPending(owner, token, spender common.Address, tx common.Hash) {
	o.mu.Lock()
	o.pending[pendingKey{owner, token, spender}] = tx
	o.mu.Unlock()
	log.Debug().
		Str("owner", owner.Hex()).
		Str("token", token.Hex()).
		Str("spender", spender.Hex()).
		Str("tx", tx.Hex()).
		Msg("approval pending")
}

// ClearPending removes a tracked approval, returning the transaction hash
// that was pending, if any.
func (o *Optimizer) ClearPending(owner, token, spender common.Address) (common.Hash, bool) {
	k := pendingKey{owner, token, spender}
	o.mu.Lock()
	tx, ok := o.pending[k]
	delete(o.pending, k)
	o.mu.Unlock()
	return tx, ok
}
