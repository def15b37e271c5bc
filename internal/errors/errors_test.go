// Package errors tests for error code definitions and error handling.
package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorCodeValues verifies all error codes have non-empty values.
func TestErrorCodeValues(t *testing.T) {
	codes := []ErrorCode{
		ErrInternal, ErrInvalid, ErrNotFound, ErrValidation, ErrConfig,
		ErrLocalStore, ErrDatabase, ErrMigration,
		ErrRemoteUnavailable, ErrRemoteRejected, ErrUnauthorized,
		ErrSyncFailed, ErrSyncTimeout, ErrQueueFull,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if code == "" {
			t.Error("ErrorCode should not be empty")
		}
		if seen[code] {
			t.Errorf("duplicate ErrorCode %q", code)
		}
		seen[code] = true
	}
}

// TestAppError_Error verifies error message formatting.
func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "error without underlying error",
			appError: &AppError{Code: ErrInternal, Message: "something failed"},
			want:     "[INTERNAL_ERROR] something failed",
		},
		{
			name:     "error with underlying error",
			appError: &AppError{Code: ErrLocalStore, Message: "persist failed", Err: errors.New("disk full")},
			want:     "[LOCAL_STORE_ERROR] persist failed: disk full",
		},
		{
			name:     "not found error",
			appError: &AppError{Code: ErrNotFound, Message: "feedback not found"},
			want:     "[NOT_FOUND] feedback not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestWrap verifies error wrapping.
func TestWrap(t *testing.T) {
	underlyingErr := errors.New("underlying")

	err := Wrap(ErrRemoteUnavailable, "list failed", underlyingErr)
	if err.Code != ErrRemoteUnavailable {
		t.Errorf("Wrap() code = %q, want %q", err.Code, ErrRemoteUnavailable)
	}
	if err.Unwrap() != underlyingErr {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlyingErr)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is should find the wrapped error")
	}
}

// TestIs verifies error code checking through wrap chains.
func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{
			name: "matching AppError",
			err:  New(ErrNotFound, "not found"),
			code: ErrNotFound,
			want: true,
		},
		{
			name: "non-matching AppError",
			err:  New(ErrNotFound, "not found"),
			code: ErrInternal,
			want: false,
		},
		{
			name: "wrapped by fmt.Errorf",
			err:  fmt.Errorf("submit: %w", New(ErrValidation, "empty text")),
			code: ErrValidation,
			want: true,
		},
		{
			name: "inner code of nested AppError",
			err:  Wrap(ErrSyncFailed, "drain", New(ErrRemoteUnavailable, "down")),
			code: ErrRemoteUnavailable,
			want: true,
		},
		{
			name: "plain error",
			err:  errors.New("plain"),
			code: ErrInternal,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			code: ErrInternal,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCodeOf verifies code extraction.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("x: %w", New(ErrUnauthorized, "no"))); got != ErrUnauthorized {
		t.Errorf("CodeOf() = %q, want %q", got, ErrUnauthorized)
	}
	if got := CodeOf(errors.New("plain")); got != ErrInternal {
		t.Errorf("CodeOf(plain) = %q, want %q", got, ErrInternal)
	}
	if got := Newf(ErrConfig, "bad %s", "url").Message; got != "bad url" {
		t.Errorf("Newf() message = %q", got)
	}
}
