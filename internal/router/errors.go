package router

import "errors"

var (
	ErrNoRoute               = errors.New("no route found between tokens")
	ErrNoPoolFound           = errors.New("no pool found for pair")
	ErrInvalidPool           = errors.New("invalid pool state")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for trade")
	ErrSameToken             = errors.New("input and output tokens are identical")
	ErrZeroAmount            = errors.New("trade amount must be positive")
	ErrAmountTooLarge        = errors.New("trade amount exceeds pool output reserve")
)
