package zboot

import (
	"errors"
	"strings"
	"testing"
)

func TestLaunchError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *LaunchError
		wantStr string
	}{
		{
			name:    "basic error",
			err:     &LaunchError{Code: "TEST_ERROR", Message: "test message"},
			wantStr: "[TEST_ERROR] test message",
		},
		{
			name: "error with cause",
			err: &LaunchError{
				Code:    "TEST_ERROR",
				Message: "test message",
				Cause:   errors.New("underlying error"),
			},
			wantStr: "[TEST_ERROR] test message: underlying error",
		},
		{
			name: "error with details",
			err: &LaunchError{
				Code:    "TEST_ERROR",
				Message: "test message",
				Details: map[string]interface{}{"part": 3},
			},
			wantStr: "details",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.wantStr) {
				t.Errorf("Error() = %q, want to contain %q", got, tt.wantStr)
			}
		})
	}
}

func TestLaunchError_WithCause(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrDecompress.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("WithCause() should allow errors.Is on the cause")
	}
	if !errors.Is(err, ErrDecompress) {
		t.Error("derived error should still match its sentinel by code")
	}
}

func TestLaunchError_WithDetail(t *testing.T) {
	err := ErrDecompress.WithDetail("part", 2)
	if err.Details["part"] != 2 {
		t.Errorf("WithDetail() part = %v, want 2", err.Details["part"])
	}

	// The sentinel must stay untouched.
	if len(ErrDecompress.Details) != 0 {
		t.Errorf("sentinel mutated: %v", ErrDecompress.Details)
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(ErrExec); got != "EXEC_FAILED" {
		t.Errorf("ErrorCode() = %q, want EXEC_FAILED", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Errorf("ErrorCode(plain) = %q, want empty", got)
	}
}
