package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := WithMetadata(CodeMalformedSnapshot, "missing key", map[string]string{"field": "scenario_a.tax_rate"})
	wrapped := fmt.Errorf("load snapshot: %w", err)

	if !stderrors.Is(wrapped, &Error{Code: CodeMalformedSnapshot}) {
		t.Errorf("errors.Is() = false, expected true for matching code")
	}
	if stderrors.Is(wrapped, &Error{Code: CodeInvalidParameter}) {
		t.Errorf("errors.Is() = true, expected false for different code")
	}
	if !HasCode(wrapped, CodeMalformedSnapshot) {
		t.Errorf("HasCode() = false, expected true")
	}
	if got := CodeOf(wrapped); got != CodeMalformedSnapshot {
		t.Errorf("CodeOf() = %s, expected %s", got, CodeMalformedSnapshot)
	}
	if got := Field(wrapped); got != "scenario_a.tax_rate" {
		t.Errorf("Field() = %q, expected scenario_a.tax_rate", got)
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := New(CodeInvalidParameter, "tax_rate out of range")
	err := Wrap(CodeMalformedSnapshot, "invalid snapshot", cause)

	if !stderrors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, expected true")
	}
	if !HasCode(err, CodeInvalidParameter) {
		t.Errorf("HasCode(err, INVALID_PARAMETER) = false, expected true via cause")
	}
	if got := err.Error(); got != "invalid snapshot: tax_rate out of range" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if got := CodeOf(stderrors.New("boom")); got != CodeUnknown {
		t.Errorf("CodeOf() = %s, expected %s", got, CodeUnknown)
	}
	if got := Field(stderrors.New("boom")); got != "" {
		t.Errorf("Field() = %q, expected empty", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeInvalidParameter:     http.StatusBadRequest,
		CodeMalformedSnapshot:    http.StatusBadRequest,
		CodeNotFound:             http.StatusNotFound,
		CodeIndicatorUnavailable: http.StatusServiceUnavailable,
		CodeUnknown:              http.StatusInternalServerError,
	}
	for code, expected := range tests {
		if got := code.HTTPStatus(); got != expected {
			t.Errorf("%s.HTTPStatus() = %d, expected %d", code, got, expected)
		}
	}
}
