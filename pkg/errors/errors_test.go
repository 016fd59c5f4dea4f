package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeInsufficientStock)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatalf("insufficient stock must not be retryable")
	}

	meta = MetadataFor(CodeDependency)
	if !meta.Retryable {
		t.Fatalf("dependency errors must be retryable")
	}

	meta = MetadataFor(CodeGatewayDeclined)
	if meta.Retryable {
		t.Fatalf("gateway declines must never be retried")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(CodeDependency, cause, "gateway call failed")
	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be preserved")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeNotFound, "order missing")
	wrapped := fmt.Errorf("loading order: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatalf("expected typed error through wrapping")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if !HasCode(wrapped, CodeNotFound) {
		t.Fatalf("HasCode should see through wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(New(CodeGatewayDeclined, "declined")) {
		t.Fatalf("declines are permanent")
	}
	if !IsRetryable(New(CodeDependency, "timeout")) {
		t.Fatalf("dependency failures are transient")
	}
	if !IsRetryable(fmt.Errorf("untyped failure")) {
		t.Fatalf("untyped errors default to retryable")
	}
}
