package approval

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/hazeflow/swap-engine/internal/chain"
	"github.com/hazeflow/swap-engine/internal/domain"
)

var ErrNativeCurrency = errors.New("approval: native currency needs no approval")

// Method is the mechanism a Plan uses to grant the allowance.
type Method uint8

const (
	MethodNone Method = iota
	// MethodPermit signs an EIP-2612 permit off-chain; no separate
	// approval transaction is sent.
	MethodPermit
	// MethodApprove sends approve(spender, amount) for the exact trade
	// amount.
	MethodApprove
	// MethodApproveInfinite sends approve(spender, MaxUint256) once, for
	// tokens whose approve reverts on non-zero-to-non-zero changes.
	MethodApproveInfinite
)

func (m Method) String() string {
	switch m {
	case MethodPermit:
		return "permit"
	case MethodApprove:
		return "approve"
	case MethodApproveInfinite:
		return "approve-infinite"
	default:
		return "none"
	}
}

// Plan is one way to establish the allowance a trade needs. Plans are
// ordered: a permit costs no gas, an exact approve leaves no dangling
// allowance, an infinite approve is the last resort for non-standard tokens.
type Plan struct {
	Method   Method
	Token    common.Address
	Spender  common.Address
	Amount   *big.Int
	CallData []byte

	// Permit holds the EIP-712 payload to sign when Method is MethodPermit.
	Permit *PermitMessage
}

// PermitMessage is the EIP-2612 typed-data message the wallet signs.
type PermitMessage struct {
	Name     string         `json:"name"`
	Version  string         `json:"version"`
	ChainID  uint64         `json:"chainId"`
	Token    common.Address `json:"verifyingContract"`
	Owner    common.Address `json:"owner"`
	Spender  common.Address `json:"spender"`
	Value    *big.Int       `json:"value"`
	Nonce    *big.Int       `json:"nonce"`
	Deadline *big.Int       `json:"deadline"`
}

// TokenInfo carries the token capabilities the planner needs. SupportsPermit
// is decided by probing nonces() off-chain; RequiresReset marks tokens that
// revert when changing a non-zero allowance to another non-zero value.
type TokenInfo struct {
	Name           string
	Version        string
	SupportsPermit bool
	RequiresReset  bool
	PermitNonce    *big.Int
}

// Plans returns the approval paths for spending amount of input via spender,
// best first. The caller tries each in order and falls through on wallet or
// token rejection.
func Plans(input domain.Currency, info TokenInfo, owner, spender common.Address, amount, deadline *big.Int) ([]Plan, error) {
	if input.IsNative {
		return nil, ErrNativeCurrency
	}
	erc20, err := chain.ERC20ABI()
	if err != nil {
		return nil, err
	}

	var plans []Plan
	if info.SupportsPermit {
		version := info.Version
		if version == "" {
			version = "1"
		}
		plans = append(plans, Plan{
			Method:  MethodPermit,
			Token:   input.Address,
			Spender: spender,
			Amount:  amount,
			Permit: &PermitMessage{
				Name:     info.Name,
				Version:  version,
				ChainID:  input.ChainID,
				Token:    input.Address,
				Owner:    owner,
				Spender:  spender,
				Value:    amount,
				Nonce:    info.PermitNonce,
				Deadline: deadline,
			},
		})
	}

	if !info.RequiresReset {
		exact, err := erc20.Pack("approve", spender, amount)
		if err != nil {
			return nil, err
		}
		plans = append(plans, Plan{
			Method:   MethodApprove,
			Token:    input.Address,
			Spender:  spender,
			Amount:   amount,
			CallData: exact,
		})
	}

	infinite, err := erc20.Pack("approve", spender, math.MaxBig256)
	if err != nil {
		return nil, err
	}
	plans = append(plans, Plan{
		Method:   MethodApproveInfinite,
		Token:    input.Address,
		Spender:  spender,
		Amount:   new(big.Int).Set(math.MaxBig256),
		CallData: infinite,
	})
	return plans, nil
}
