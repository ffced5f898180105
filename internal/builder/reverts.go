package builder

import (
	"strings"

	"github.com/hazeflow/swap-engine/internal/common"
)

// RevertReason is the best-effort interpretation of a swap revert string.
// Matching is substring-based against the strings the router and token
// contracts actually emit; anything unrecognized stays ReasonUnknown rather
// than being guessed at.
type RevertReason uint8

const (
	ReasonUnknown RevertReason = iota
	// ReasonSlippage means the pool price moved past the trade's bound
	// between quoting and execution.
	ReasonSlippage
	// ReasonExpired means the deadline passed before the transaction mined.
	ReasonExpired
	// ReasonAllowance means transferFrom failed, almost always a missing or
	// insufficient approval.
	ReasonAllowance
	// ReasonBalance means the sender does not hold the input amount.
	ReasonBalance
)

func (r RevertReason) String() string {
	switch r {
	case ReasonSlippage:
		return "SLIPPAGE"
	case ReasonExpired:
		return "EXPIRED"
	case ReasonAllowance:
		return "ALLOWANCE"
	case ReasonBalance:
		return "BALANCE"
	default:
		return "UNKNOWN"
	}
}

// Kind maps the reason onto the pipeline's error classification.
func (r RevertReason) Kind() common.ErrorKind {
	switch r {
	case ReasonAllowance:
		return common.KindApproval
	case ReasonSlippage, ReasonExpired, ReasonBalance:
		return common.KindSwapExecution
	default:
		return common.KindUnknown
	}
}

// revertPatterns is ordered: earlier entries win, so the more specific
// strings sit above the catch-alls they contain.
var revertPatterns = []struct {
	substr string
	reason RevertReason
}{
	{"INSUFFICIENT_OUTPUT_AMOUNT", ReasonSlippage},
	{"EXCESSIVE_INPUT_AMOUNT", ReasonSlippage},
	{"Too little received", ReasonSlippage},
	{"Too much requested", ReasonSlippage},
	{"Price slippage check", ReasonSlippage},
	{"Transaction too old", ReasonExpired},
	{"EXPIRED", ReasonExpired},
	{"TRANSFER_FROM_FAILED", ReasonAllowance},
	{"insufficient allowance", ReasonAllowance},
	{"STF", ReasonAllowance},
	{"transfer amount exceeds balance", ReasonBalance},
	{"INSUFFICIENT_INPUT_AMOUNT", ReasonBalance},
}

// ClassifyRevert maps a raw revert string to a RevertReason. Exact
// substrings are tried first; a case-insensitive pass follows because ERC-20
// error strings vary in casing across token implementations.
func ClassifyRevert(revert string) RevertReason {
	for _, p := range revertPatterns {
		if strings.Contains(revert, p.substr) {
			return p.reason
		}
	}
	lower := strings.ToLower(revert)
	for _, p := range revertPatterns {
		if strings.Contains(lower, strings.ToLower(p.substr)) {
			return p.reason
		}
	}
	return ReasonUnknown
}
