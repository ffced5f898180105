package domain

// TradeState is the lifecycle state of one quote generation. A new state is
// created on every input change; once superseded by the next generation it
// is never mutated.
type TradeState uint8

const (
	TradeStateInvalid TradeState = iota
	TradeStateLoading
	TradeStateNoRouteFound
	TradeStateSyncing
	TradeStateValid
)

func (s TradeState) String() string {
	switch s {
	case TradeStateInvalid:
		return "INVALID"
	case TradeStateLoading:
		return "LOADING"
	case TradeStateNoRouteFound:
		return "NO_ROUTE_FOUND"
	case TradeStateSyncing:
		return "SYNCING"
	case TradeStateValid:
		return "VALID"
	default:
		return "UNKNOWN"
	}
}

// ApprovalState is the allowance state of one (token, spender) pair.
type ApprovalState uint8

const (
	ApprovalUnknown ApprovalState = iota
	ApprovalNotApproved
	ApprovalPending
	ApprovalApproved
)

func (s ApprovalState) String() string {
	switch s {
	case ApprovalUnknown:
		return "UNKNOWN"
	case ApprovalNotApproved:
		return "NOT_APPROVED"
	case ApprovalPending:
		return "PENDING"
	case ApprovalApproved:
		return "APPROVED"
	default:
		return "INVALID"
	}
}
