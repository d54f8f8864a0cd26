package domain

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "amount must be a positive number, got 0"}
	if err.Error() != "amount must be a positive number, got 0" {
		t.Errorf("Error() = %q, want %q", err.Error(), "amount must be a positive number, got 0")
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	var err error = &ValidationError{Message: "bad", Err: ErrInvalidAmount}
	if !errors.Is(err, ErrInvalidAmount) {
		t.Error("expected ValidationError to unwrap to ErrInvalidAmount")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Error("expected errors.As to find *ValidationError")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrEmptyQueue,
		ErrInvalidAmount,
		ErrInvalidOrder,
		ErrInvalidSide,
		ErrAccountNotFound,
		ErrWrongSide,
		ErrDuplicateOrder,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}
