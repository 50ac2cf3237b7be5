package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error type constants for classification and matching.
const (
	// ErrorTypeValidation indicates a structurally invalid definition
	// (cycle, missing dependency, no start node). Fatal before execution.
	ErrorTypeValidation = "validation_error"

	// ErrorTypeConfiguration indicates a misconfigured node, such as a task
	// node bound to neither an agent nor a tool. Contained to the node.
	ErrorTypeConfiguration = "configuration_error"

	// ErrorTypeExternalExecution indicates an agent or tool invocation
	// failed. Retried per the node's retry policy.
	ErrorTypeExternalExecution = "external_execution_error"

	// ErrorTypeTimeout indicates a node exceeded its timeout and was
	// cooperatively cancelled.
	ErrorTypeTimeout = "timeout_error"

	// ErrorTypeCancelled indicates the execution's cancellation signal
	// fired. Not counted as a failure.
	ErrorTypeCancelled = "cancellation_error"
)

// Error is a structured workflow error with a classification type. It
// supports Go's error wrapping patterns via Unwrap.
type Error struct {
	Type    string `json:"type"`
	Cause   string `json:"cause"`
	NodeID  string `json:"node_id,omitempty"`
	Wrapped error  `json:"-"`
}

func (e *Error) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: node %q: %s", e.Type, e.NodeID, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// IsRecoverable reports whether retrying can help. External execution and
// timeout errors are retryable; validation, configuration, and cancellation
// errors are not.
func (e *Error) IsRecoverable() bool {
	switch e.Type {
	case ErrorTypeExternalExecution, ErrorTypeTimeout:
		return true
	}
	return false
}

// NewError creates an Error with the given classification type and cause.
func NewError(errorType, cause string) *Error {
	return &Error{Type: errorType, Cause: cause}
}

// NewNodeError creates an Error attributed to a specific node.
func NewNodeError(errorType, nodeID, cause string) *Error {
	return &Error{Type: errorType, NodeID: nodeID, Cause: cause}
}

// Classify converts an arbitrary error into an *Error. Context cancellation
// maps to the cancelled type, deadline expiry to the timeout type, and
// anything else defaults to an external execution error so that retries apply
// to unknown failures by default.
func Classify(err error) *Error {
	var werr *Error
	if errors.As(err, &werr) {
		return werr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Type: ErrorTypeCancelled, Cause: err.Error(), Wrapped: err}
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return &Error{Type: ErrorTypeTimeout, Cause: err.Error(), Wrapped: err}
	}
	return &Error{Type: ErrorTypeExternalExecution, Cause: err.Error(), Wrapped: err}
}

// MatchesType reports whether an error classifies as the given error type.
func MatchesType(err error, errorType string) bool {
	return Classify(err).Type == errorType
}

// IsCancellation reports whether an error represents execution cancellation
// rather than a genuine failure.
func IsCancellation(err error) bool {
	return MatchesType(err, ErrorTypeCancelled)
}
