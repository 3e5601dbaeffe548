package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("bad input"), KindValidation},
		{Unauthorized("no token"), KindUnauthorized},
		{Forbidden("nope"), KindForbidden},
		{NotFound("missing"), KindNotFound},
		{NotFoundSKU("ABC-123", "M"), KindNotFound},
		{InsufficientStock("ABC-123", "M"), KindInsufficientStock},
		{Conflict("duplicate"), KindConflict},
		{Internal(errors.New("boom")), KindInternal},
		{errors.New("plain"), KindInternal},
	}
	for i, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("case %d: kind = %q, want %q", i, got, tc.want)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("while checking out: %w", InsufficientStock("ABC-123", "M"))
	if !IsKind(err, KindInsufficientStock) {
		t.Fatalf("kind lost through wrapping: %v", err)
	}

	appErr := From(err)
	if appErr.SKU != "ABC-123" || appErr.Size != "M" {
		t.Fatalf("context lost through wrapping: %+v", appErr)
	}
}

func TestInternalPassesThroughStructuredErrors(t *testing.T) {
	original := NotFoundSKU("ABC-123", "")
	wrapped := Internal(original)
	if wrapped.Kind != KindNotFound {
		t.Fatalf("Internal rewrapped a structured error as %q", wrapped.Kind)
	}
}

func TestFromWrapsPlainErrors(t *testing.T) {
	appErr := From(errors.New("disk full"))
	if appErr == nil || appErr.Kind != KindInternal {
		t.Fatalf("From(plain) = %+v, want internal", appErr)
	}
	if appErr.Error() != "internal error" {
		t.Fatalf("message = %q, want generic", appErr.Error())
	}
	if appErr.Err == nil || appErr.Err.Error() != "disk full" {
		t.Fatalf("original error not preserved: %v", appErr.Err)
	}
}

func TestNotFoundSKUMessage(t *testing.T) {
	withSize := NotFoundSKU("ABC-123", "M")
	if withSize.Error() != "sku ABC-123 size M not found" {
		t.Fatalf("message = %q", withSize.Error())
	}
	withoutSize := NotFoundSKU("ABC-123", "")
	if withoutSize.Error() != "sku ABC-123 not found" {
		t.Fatalf("message = %q", withoutSize.Error())
	}
}
