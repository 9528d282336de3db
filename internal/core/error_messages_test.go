package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "empty column selection",
			err:         ValidationErrors{{Field: "includeColumns", Message: "no columns selected"}},
			wantCode:    "VAL001",
			wantMessage: "No columns selected",
		},
		{
			name:        "unsupported format",
			err:         ValidationErrors{{Field: "format", Message: `unsupported format "docx"`}},
			wantCode:    "VAL002",
			wantMessage: "The requested format is not available",
		},
		{
			name:        "unknown column",
			err:         errors.New(`unknown column "nope" for projects`),
			wantCode:    "VAL004",
			wantMessage: "A selected column does not exist",
		},
		{
			name:        "inverted range",
			err:         errors.New("invalid range: amountMin is greater than amountMax"),
			wantCode:    "VAL005",
			wantMessage: "A range filter has its bounds reversed",
		},
		{
			name:        "render error",
			err:         &RenderError{Format: FormatXLSX, Err: errors.New("boom")},
			wantCode:    "REN003",
			wantMessage: "The document could not be generated",
		},
		{
			name:        "renderer panic",
			err:         &RenderError{Format: FormatPDF, Err: errors.New("renderer panic: index out of range")},
			wantCode:    "REN001",
			wantMessage: "The document builder stopped unexpectedly",
		},
		{
			name:        "corrupt history",
			err:         &PersistenceError{Op: "decode", Key: DefaultHistoryKey, Err: errors.New("corrupt history: unexpected EOF")},
			wantCode:    "PER001",
			wantMessage: "Saved export history could not be read",
		},
		{
			name:        "history write failure",
			err:         &PersistenceError{Op: "save", Key: DefaultHistoryKey, Err: errors.New("disk full")},
			wantCode:    "PER002",
			wantMessage: "Export history could not be saved",
		},
		{
			name:        "job not found",
			err:         fmt.Errorf("%w: abc", ErrJobNotFound),
			wantCode:    "JOB001",
			wantMessage: "The export job does not exist",
		},
		{
			name:        "limiter saturated",
			err:         ErrTooManyExports,
			wantCode:    "EXP001",
			wantMessage: "Too many exports in progress",
		},
		{
			name:        "cancelled context",
			err:         context.Canceled,
			wantCode:    "EXP002",
			wantMessage: "The export was cancelled",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("UNKNOWN ENTITY TYPE \"donors\""),
			wantCode:    "VAL003",
			wantMessage: "The requested data type does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("too many concurrent exports, please try again later")
	result := FormatUserError(err)

	expected := "Too many exports in progress (Code: EXP001). Please wait a moment and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrInvalidTransition, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("%w: 0192", ErrJobNotFound)
		userErr := NewUserError(techErr)

		if userErr.Error() != "The export job does not exist" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrJobNotFound) {
			t.Error("Unwrap() should return original error")
		}
	})
}
