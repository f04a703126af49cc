package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfUnwrapsChain(t *testing.T) {
	base := Conflict("slot taken for %s", "f1")
	wrapped := fmt.Errorf("generate: %w", base)
	if got := KindOf(wrapped); got != KindConflict {
		t.Fatalf("KindOf: want=%q got=%q", KindConflict, got)
	}
	if got := KindOf(errors.New("plain")); got != KindGeneral {
		t.Fatalf("KindOf plain: want=%q got=%q", KindGeneral, got)
	}
}

func TestWrapKeepsExistingKind(t *testing.T) {
	err := Wrap(KindExternalAPI, Validation("bad input"))
	if got := KindOf(err); got != KindValidation {
		t.Fatalf("Wrap: want=%q got=%q", KindValidation, got)
	}
	err = Wrap(KindExternalAPI, errors.New("boom"))
	if got := KindOf(err); got != KindExternalAPI {
		t.Fatalf("Wrap plain: want=%q got=%q", KindExternalAPI, got)
	}
}

func TestExternalAPIPreservesCause(t *testing.T) {
	cause := errors.New("filtered: 1 reasons=[child]")
	err := ExternalAPI(cause, "video generation rejected")
	if !errors.Is(err, cause) {
		t.Fatalf("ExternalAPI: cause not preserved")
	}
	if err.Error() != "video generation rejected: filtered: 1 reasons=[child]" {
		t.Fatalf("ExternalAPI message: got=%q", err.Error())
	}
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:  http.StatusBadRequest,
		KindNotFound:    http.StatusNotFound,
		KindPermission:  http.StatusForbidden,
		KindConflict:    http.StatusConflict,
		KindExternalAPI: http.StatusBadGateway,
		KindGeneral:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := StatusFor(kind); got != want {
			t.Fatalf("StatusFor(%s): want=%d got=%d", kind, want, got)
		}
	}
}
