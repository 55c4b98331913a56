package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"dubsync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "translation", "deeplx", "request failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"translation", "deeplx", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Wrap(services.ErrValidation, "api", "locale", "empty", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "captions", "fetch", "missing", nil), http.StatusNotFound},
		{services.Wrap(services.ErrConfiguration, "translation", "", "no api key", nil), http.StatusServiceUnavailable},
		{fmt.Errorf("outer: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{services.Wrap(services.ErrTransient, "llm", "complete", "503", nil), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := services.HTTPStatus(tt.err); got != tt.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(nil) {
		t.Fatal("nil should not be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrTimeout, "llm", "complete", "", nil)) {
		t.Fatal("timeout should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrValidation, "llm", "complete", "", nil)) {
		t.Fatal("validation should not be retryable")
	}
}
