package models

import "fmt"

// Error codes used across the acquisition pipeline.
const (
	ErrCodePoolExhausted  = "POOL_EXHAUSTED"
	ErrCodePoolClosed     = "POOL_CLOSED"
	ErrCodeAcquireTimeout = "ACQUIRE_TIMEOUT"
	ErrCodeNavigation     = "NAVIGATION_FAILED"
	ErrCodeNavTimeout     = "NAVIGATION_TIMEOUT"
	ErrCodeAdapter        = "ADAPTER_FAILED"
	ErrCodeExtraction     = "EXTRACTION_INVALID"
	ErrCodeInvalidConfig  = "INVALID_CONFIG"
	ErrCodeExpansion      = "EXPANSION_FAILED"
	ErrCodeStore          = "STORE_FAILED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// HarvestError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type HarvestError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *HarvestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *HarvestError) Unwrap() error {
	return e.Err
}

// NewHarvestError creates a new HarvestError.
func NewHarvestError(code, message string, err error) *HarvestError {
	return &HarvestError{Code: code, Message: message, Err: err}
}
