package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := Validation("items are required")
	if KindOf(err) != KindValidation {
		t.Errorf("expected validation kind, got %v", KindOf(err))
	}

	wrapped := fmt.Errorf("create invoice: %w", err)
	if KindOf(wrapped) != KindValidation {
		t.Error("kind should survive wrapping")
	}

	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain error should be unknown kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{InvalidAmount("too much"), http.StatusUnprocessableEntity},
		{NotFound("invoice %s", "x"), http.StatusNotFound},
		{Conflict("row contended"), http.StatusConflict},
		{Upstream("lab confirm failed", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestUpstreamPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("order confirmation failed", cause)
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable via errors.Is")
	}
	if err.Error() != "order confirmation failed: connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
