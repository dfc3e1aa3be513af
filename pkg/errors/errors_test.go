package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodePrecondition, status: http.StatusUnprocessableEntity, publicMsg: "precondition failed", detailsOK: true},
		{code: CodeGateway, status: http.StatusBadGateway, publicMsg: "payment gateway request failed", detailsOK: true},
		{code: CodeVerification, status: http.StatusUnauthorized, publicMsg: "signature verification failed"},
		{code: CodeStore, status: http.StatusInternalServerError, publicMsg: "storage failure", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodePrecondition, "customer required")
	if base.Code() != CodePrecondition {
		t.Fatalf("expected precondition code, got %s", base.Code())
	}
	if base.Message() != "customer required" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"cart_id": "cart_01"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("connection reset")
	wrapped := Wrap(CodeGateway, cause, "initiate transaction")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeGateway {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("refund: %w", New(CodeGateway, "refund rejected"))
	if got := As(err); got == nil || got.Code() != CodeGateway {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsMatchesCodeInChain(t *testing.T) {
	err := fmt.Errorf("capture: %w", Wrap(CodeStore, stdErrors.New("locked"), "update order"))
	if !Is(err, CodeStore) {
		t.Fatalf("expected Is to match store code")
	}
	if Is(err, CodeGateway) {
		t.Fatalf("expected Is to reject gateway code")
	}
	if Is(stdErrors.New("plain"), CodeStore) {
		t.Fatalf("expected plain errors not to match")
	}
}

func TestDumpIncludesChainAndCode(t *testing.T) {
	err := fmt.Errorf("webhook: %w", Wrap(CodeVerification, stdErrors.New("checksum mismatch"), "verify"))
	d := Dump(err)
	if d.Code != CodeVerification {
		t.Fatalf("expected verification code, got %s", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
	if d.PGCode != "" {
		t.Fatalf("expected no pg code, got %q", d.PGCode)
	}
}
