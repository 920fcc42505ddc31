package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeInvalidArgument, "group is required")
	if err == nil {
		t.Fatal("New should return non-nil error")
	}

	var customErr *E
	if !errors.As(err, &customErr) {
		t.Fatal("Error should be of type *E")
	}
	if customErr.Code != CodeInvalidArgument {
		t.Errorf("Expected code %s, got %s", CodeInvalidArgument, customErr.Code)
	}
	if got := err.Error(); got != "INVALID_ARGUMENT: group is required" {
		t.Errorf("Unexpected error text %q", got)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrap(CodeUnavailable, "settings.find", originalErr)

	var customErr *E
	if !errors.As(wrappedErr, &customErr) {
		t.Fatal("Wrapped error should be of type *E")
	}
	if customErr.Op != "settings.find" {
		t.Errorf("Expected operation %q, got %q", "settings.find", customErr.Op)
	}
	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Wrapped error should unwrap to the original error")
	}
	if got := wrappedErr.Error(); got != "UNAVAILABLE settings.find: connection refused" {
		t.Errorf("Unexpected error text %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(CodeInternal, "op", nil); err != nil {
		t.Errorf("Wrap(nil) should return nil, got %v", err)
	}
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("record not found")
	err := Wrapf(CodeNotFound, "settings.get", originalErr, "setting %s:%s", "chatbot", "fallback")

	if CodeOf(err) != CodeNotFound {
		t.Errorf("Expected code %s, got %s", CodeNotFound, CodeOf(err))
	}
	if got := err.Error(); got != "NOT_FOUND settings.get: setting chatbot:fallback: record not found" {
		t.Errorf("Unexpected error text %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"plain", errors.New("plain"), ""},
		{"structured", New(CodeNotFound, "x"), CodeNotFound},
		{"outermost wins", Wrap(CodeInternal, "outer", New(CodeNotFound, "inner")), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{"message on outer", Wrapf(CodeInternal, "op", errors.New("cause"), "outer msg"), "outer msg"},
		{"cause when no message", Wrap(CodeInvalidArgument, "op", errors.New("value must be a string")), "value must be a string"},
		{"nested message", Wrap(CodeInternal, "outer", New(CodeNotFound, "missing")), "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeAlreadyExists, "duplicate")
	if !IsCode(err, CodeAlreadyExists) {
		t.Error("IsCode should match the error code")
	}
	if IsCode(err, CodeInternal) {
		t.Error("IsCode should not match a different code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodePermissionDenied, http.StatusForbidden},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeDeadlineExceeded, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := HTTPStatus(tt.code); got != tt.want {
				t.Errorf("HTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("cause")
	err := Build(CodeInvalidArgument).
		WithOp("settings.create").
		WithErr(cause).
		WithMsgf("bad value for %s", "checkbox").
		WithDetails("field", "value").
		Err()

	var e *E
	if !As(err, &e) {
		t.Fatal("Builder should produce *E")
	}
	if e.Op != "settings.create" || e.Msg != "bad value for checkbox" {
		t.Errorf("Unexpected builder result: %+v", e)
	}
	if len(e.Details) != 2 {
		t.Errorf("Expected 2 details, got %d", len(e.Details))
	}
	if !Is(err, cause) {
		t.Error("Built error should unwrap to its cause")
	}
}
