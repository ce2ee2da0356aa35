package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeDecode, "bad image: %s", "sample.bin")

	if err.Code != ErrCodeDecode {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeDecode)
	}
	if err.Message != "bad image: sample.bin" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("Cause = %v, want nil", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeRetrieval, cause, "fetch %s", "https://example.com/a.png")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	want := "RETRIEVAL_ERROR: fetch https://example.com/a.png: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeEncode, "boom"), ErrCodeEncode, true},
		{"different code", New(ErrCodeEncode, "boom"), ErrCodeDecode, false},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeLayout, "empty")), ErrCodeLayout, true},
		{"plain error", stderrors.New("plain"), ErrCodeInternal, false},
		{"nil cause chain", Wrap(ErrCodeTimeout, stderrors.New("deadline"), "slow"), ErrCodeTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is(%v, %q) = %v, want %v", tt.err, tt.code, got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeFontNotFound, "no arial")); got != ErrCodeFontNotFound {
		t.Errorf("GetCode = %q, want %q", got, ErrCodeFontNotFound)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidColor, "bad triplet")); got != "bad triplet" {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(stderrors.New("raw")); got != "raw" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}
