package errors

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents internal error codes for transaction operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Caller errors
	ErrCodeInvalidArgument ErrorCode = 1000
	ErrCodeNotFound        ErrorCode = 1001
	ErrCodeInvalidState    ErrorCode = 1002

	// Commit outcomes
	ErrCodeConflictRejected  ErrorCode = 2000
	ErrCodeConflictExhausted ErrorCode = 2001

	// Engine errors
	ErrCodeInternal ErrorCode = 3000
)

// TxnError represents a structured error with code and context
type TxnError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *TxnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *TxnError) Unwrap() error {
	return e.Cause
}

// ToGRPCStatus converts TxnError to gRPC status
func (e *TxnError) ToGRPCStatus() *status.Status {
	return status.New(e.toGRPCCode(), e.Error())
}

// toGRPCCode maps internal error codes to gRPC codes
func (e *TxnError) toGRPCCode() codes.Code {
	switch e.Code {
	case ErrCodeOK:
		return codes.OK
	case ErrCodeInvalidArgument:
		return codes.InvalidArgument
	case ErrCodeNotFound:
		return codes.NotFound
	case ErrCodeInvalidState:
		return codes.FailedPrecondition
	case ErrCodeConflictRejected:
		return codes.Aborted
	case ErrCodeConflictExhausted:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// NewTxnError creates a new TxnError
func NewTxnError(code ErrorCode, message string, cause error) *TxnError {
	return &TxnError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *TxnError) WithDetail(key string, value interface{}) *TxnError {
	e.Details[key] = value
	return e
}

// Convenience constructors for the engine's error taxonomy

func InvalidArgument(message string, cause error) *TxnError {
	return NewTxnError(ErrCodeInvalidArgument, message, cause)
}

func NotFound(key string) *TxnError {
	return NewTxnError(ErrCodeNotFound, fmt.Sprintf("key not found: %s", key), nil).
		WithDetail("key", key)
}

func InvalidState(op, state string) *TxnError {
	return NewTxnError(ErrCodeInvalidState, fmt.Sprintf("%s on %s transaction", op, state), nil).
		WithDetail("operation", op).
		WithDetail("state", state)
}

// ConflictRejected reports a commit-time validation failure, naming every key
// whose observed history went stale.
func ConflictRejected(keys []string) *TxnError {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return NewTxnError(ErrCodeConflictRejected,
		fmt.Sprintf("commit rejected, conflicting keys: %s", strings.Join(sorted, ", ")), nil).
		WithDetail("keys", sorted)
}

func ConflictExhausted(attempts int, cause error) *TxnError {
	return NewTxnError(ErrCodeConflictExhausted,
		fmt.Sprintf("conflict retry budget exhausted after %d attempts", attempts), cause).
		WithDetail("attempts", attempts)
}

func InternalError(message string, cause error) *TxnError {
	return NewTxnError(ErrCodeInternal, message, cause)
}

// IsTxnError checks if an error is a TxnError
func IsTxnError(err error) bool {
	_, ok := err.(*TxnError)
	return ok
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if te, ok := err.(*TxnError); ok {
		return te.Code
	}
	return ErrCodeInternal
}

// IsNotFound reports whether the error is a read of a key with no visible version
func IsNotFound(err error) bool {
	return GetCode(err) == ErrCodeNotFound
}

// IsConflict reports whether the error is a commit-time conflict rejection,
// the only error class the retry scheduler re-drives
func IsConflict(err error) bool {
	return GetCode(err) == ErrCodeConflictRejected
}

// ConflictKeys returns the conflicting keys recorded on a rejection, if any
func ConflictKeys(err error) []string {
	te, ok := err.(*TxnError)
	if !ok || te.Code != ErrCodeConflictRejected {
		return nil
	}
	keys, _ := te.Details["keys"].([]string)
	return keys
}
