package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "message only",
			err: &Error{
				Code:    EINVALID,
				Message: "quantity out of range",
			},
			expected: "quantity out of range",
		},
		{
			name: "with operation",
			err: &Error{
				Code:    EINVALID,
				Op:      "cart.update_quantity",
				Message: "quantity out of range",
			},
			expected: "cart.update_quantity: quantity out of range",
		},
		{
			name: "with wrapped error",
			err: &Error{
				Code:    ENETWORK,
				Op:      "catalog.fetch_page",
				Message: "no response from remote service",
				Err:     errors.New("connection refused"),
			},
			expected: "catalog.fetch_page: no response from remote service: connection refused",
		},
		{
			name: "wrapped error without op",
			err: &Error{
				Code:    EINTERNAL,
				Message: "decode failed",
				Err:     errors.New("unexpected EOF"),
			},
			expected: "decode failed: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Network(underlying, "cart.resolve")

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find underlying error")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "domain error", err: Invalid("op", "test"), expected: EINVALID},
		{name: "wrapped domain error", err: fmt.Errorf("wrapped: %w", StockExceeded("op", 400, "x")), expected: ESTOCK},
		{name: "non-domain error", err: errors.New("some error"), expected: EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.expected {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "stock error keeps its text", err: StockExceeded("op", 0, MessageOutOfStock), expected: MessageOutOfStock},
		{name: "stock error without text", err: &Error{Code: ESTOCK}, expected: MessageStockExceeded},
		{name: "auth error", err: Unauthorized("op", "token expired"), expected: MessageUnauthorized},
		{name: "network error is generic", err: Network(errors.New("dial tcp"), "op"), expected: MessageNetwork},
		{name: "server error hides body", err: Server("op", 500, "traceback leaked"), expected: MessageGeneric},
		{name: "invalid keeps message", err: Invalid("op", "Quantity must be at least 1"), expected: "Quantity must be at least 1"},
		{name: "non-domain error", err: errors.New("some internal detail"), expected: MessageGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.expected {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorOpAndStatus(t *testing.T) {
	err := Server("remote.add_item", 502, "bad gateway")
	if got := ErrorOp(err); got != "remote.add_item" {
		t.Errorf("ErrorOp() = %q", got)
	}
	if got := ErrorStatus(err); got != 502 {
		t.Errorf("ErrorStatus() = %d", got)
	}
	if got := ErrorOp(errors.New("x")); got != "" {
		t.Errorf("ErrorOp() on plain error = %q", got)
	}
}

func TestWithOp(t *testing.T) {
	orig := Server("remote.list_carts", 500, "boom")
	got := WithOp(orig, "cart.resolve")

	if ErrorOp(got) != "cart.resolve" {
		t.Errorf("WithOp op = %q", ErrorOp(got))
	}
	if ErrorOp(orig) != "remote.list_carts" {
		t.Error("WithOp must not mutate the original error")
	}
	if !IsCode(WithOp(errors.New("x"), "op"), EINTERNAL) {
		t.Error("plain errors should become internal")
	}
	if WithOp(nil, "op") != nil {
		t.Error("WithOp(nil) should be nil")
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(EINVALID, "cart.update_quantity", "quantity %d exceeds stock %d", 5, 3)

	var domainErr *Error
	if !errors.As(err, &domainErr) {
		t.Fatal("Errorf should return *Error")
	}
	if domainErr.Message != "quantity 5 exceeds stock 3" {
		t.Errorf("Message = %q", domainErr.Message)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, EINTERNAL, "op", "msg") != nil {
		t.Error("WrapError(nil) should return nil")
	}
	underlying := errors.New("eof")
	err := WrapError(underlying, EINTERNAL, "remote.decode", "decode failed")
	if !errors.Is(err, underlying) {
		t.Error("WrapError should wrap")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Network(errors.New("timeout"), "op")) {
		t.Error("network errors are retryable")
	}
	if IsRetryable(Server("op", 500, "x")) {
		t.Error("server errors are not retryable")
	}
	if IsRetryable(ErrStaleResponse) {
		t.Error("stale responses are not retryable")
	}
}
