// Package common provides shared utilities used across all features
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies trade-pipeline failures. Only user-facing,
// action-blocking kinds are surfaced; the rest are recovered internally.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindInput covers missing/identical currencies and unparsable amounts.
	KindInput
	// KindNoRoute means both local and remote searches found nothing usable.
	KindNoRoute
	// KindStaleData marks a result older than the current generation. It is
	// silently discarded, never surfaced.
	KindStaleData
	// KindNetwork marks RPC/HTTP failures that trigger a fallback path.
	KindNetwork
	// KindApproval marks a rejected or reverted token approval.
	KindApproval
	// KindSwapExecution marks a reverted or rejected swap submission.
	KindSwapExecution
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "INPUT"
	case KindNoRoute:
		return "NO_ROUTE"
	case KindStaleData:
		return "STALE_DATA"
	case KindNetwork:
		return "NETWORK"
	case KindApproval:
		return "APPROVAL"
	case KindSwapExecution:
		return "SWAP_EXECUTION"
	default:
		return "UNKNOWN"
	}
}

// TradeError wraps an underlying error with its classification.
type TradeError struct {
	Kind ErrorKind
	Err  error
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// Classify wraps err with kind, preserving the chain for errors.Is.
func Classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &TradeError{Kind: kind, Err: err}
}

// KindOf extracts the classification of err, KindUnknown when unclassified.
func KindOf(err error) ErrorKind {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// Recoverable reports whether the pipeline may continue on a fallback path
// after err instead of surfacing it.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindStaleData, KindNetwork, KindNoRoute:
		return true
	default:
		return false
	}
}

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}
