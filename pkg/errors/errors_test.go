package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"plain", New(ErrCodeInvalidCategory, "unknown layer category: %s", "cape"), "INVALID_CATEGORY: unknown layer category: cape"},
		{"wrapped", Wrap(ErrCodeStore, errors.New("conn refused"), "save fit %s", "shirt"), "STORE_ERROR: save fit shirt: conn refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(ErrCodeNetwork, cause, "fetch fits")

	if errors.Unwrap(err) != cause {
		t.Error("Unwrap does not return the cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
}

func TestIs(t *testing.T) {
	nested := Wrap(ErrCodeStore, New(ErrCodeTimeout, "redis"), "fetch")

	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"match", New(ErrCodeInvalidInput, "x"), ErrCodeInvalidInput, true},
		{"mismatch", New(ErrCodeInvalidInput, "x"), ErrCodeNetwork, false},
		{"outer of chain", nested, ErrCodeStore, true},
		{"inner of chain", nested, ErrCodeTimeout, true},
		{"not in chain", nested, ErrCodeNotFound, false},
		{"behind fmt wrap", fmt.Errorf("load: %w", nested), ErrCodeTimeout, true},
		{"uncoded", errors.New("plain"), ErrCodeInvalidInput, false},
		{"nil", nil, ErrCodeInvalidInput, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCodeAndUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode Code
		wantMsg  string
	}{
		{"coded", New(ErrCodePoseNotFound, "unknown pose side_v1"), ErrCodePoseNotFound, "unknown pose side_v1"},
		{"outermost wins", Wrap(ErrCodeStore, New(ErrCodeTimeout, "slow"), "save"), ErrCodeStore, "save"},
		{"uncoded", errors.New("plain"), "", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.wantCode {
				t.Errorf("GetCode() = %q, want %q", got, tt.wantCode)
			}
			if got := UserMessage(tt.err); got != tt.wantMsg {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
	if GetCode(nil) != "" {
		t.Error("GetCode(nil) should be empty")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid transform", New(ErrCodeInvalidTransform, "nan"), 400},
		{"invalid category", New(ErrCodeInvalidCategory, "cape"), 400},
		{"pose not found", New(ErrCodePoseNotFound, "side_v1"), 404},
		{"unauthorized", New(ErrCodeUnauthorized, "no user"), 401},
		{"timeout", New(ErrCodeTimeout, "slow"), 504},
		{"store", Wrap(ErrCodeStore, errors.New("conn refused"), "upsert"), 502},
		{"texture", New(ErrCodeTextureLoad, "zero size"), 422},
		{"unsupported", New(ErrCodeUnsupported, "bmp"), 501},
		{"internal", New(ErrCodeInternal, "bug"), 500},
		{"plain", errors.New("boom"), 500},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), 504},
		{"behind fmt wrap", fmt.Errorf("ctx: %w", New(ErrCodeNotFound, "fit")), 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
