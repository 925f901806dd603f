package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured is returned when provider credentials are missing.
	ErrNotConfigured = errors.New("booking: provider not configured")
	// ErrFilterRequired is returned when availability is requested without
	// a category or service selection.
	ErrFilterRequired = errors.New("booking: category or service filter required")
	// ErrSlotUnavailable marks a slot that failed live re-validation.
	ErrSlotUnavailable = errors.New("booking: slot no longer available")
	// ErrSuperseded is returned to a fetch cancelled by a newer one.
	ErrSuperseded = errors.New("booking: superseded by a newer query")
	// ErrInvalidAdmission marks admission input rejected before any call.
	ErrInvalidAdmission = errors.New("booking: invalid admission request")
)

// ProviderError describes a failed provider call.
type ProviderError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: Mindbody API returned error code: %d - %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Temporary reports whether a retry may succeed: transport failures,
// throttling and server errors.
func (e *ProviderError) Temporary() bool {
	if e.StatusCode == 0 {
		return e.Err != nil && !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// SlotUnavailableError carries the slot that failed re-validation.
type SlotUnavailableError struct {
	BookableItemID string
	Reason         string
}

func (e *SlotUnavailableError) Error() string {
	if e.Reason == "" {
		return ErrSlotUnavailable.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSlotUnavailable.Error(), e.Reason)
}

func (e *SlotUnavailableError) Is(target error) bool { return target == ErrSlotUnavailable }

// AdmissionError wraps a cart-side failure after the slot was confirmed.
type AdmissionError struct {
	Reason string
	Err    error
}

func (e *AdmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking: admission failed: %s: %v", e.Reason, e.Err)
	}
	return "booking: admission failed: " + e.Reason
}

func (e *AdmissionError) Unwrap() error { return e.Err }

// IsTemporary reports whether err carries a retryable provider failure.
func IsTemporary(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return false
}
