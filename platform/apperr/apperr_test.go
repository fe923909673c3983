package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("lead not found"), http.StatusNotFound},
		{Validation("email is required"), http.StatusUnprocessableEntity},
		{Conflict("cannot merge a lead into itself"), http.StatusConflict},
		{BadRequest("bad json"), http.StatusBadRequest},
		{Upstream("places lookup failed", errors.New("timeout")), http.StatusBadGateway},
		{Unavailable("queue not configured"), http.StatusServiceUnavailable},
		{Internal("boom", nil), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("%s: expected status %d, got %d", tc.err.Kind, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrappedChain(t *testing.T) {
	base := NotFound("lead not found").WithOp("MergeLeads")
	wrapped := fmt.Errorf("handler: %w", base)

	if !Is(wrapped, KindNotFound) {
		t.Fatalf("expected wrapped error to carry KindNotFound, got %s", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain error to be KindUnknown")
	}
	if base.Error() != "MergeLeads: lead not found" {
		t.Fatalf("unexpected message %q", base.Error())
	}
}
