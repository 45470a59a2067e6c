package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationInvalidField, http.StatusBadRequest},
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeAuthSignatureMissing, http.StatusUnauthorized},
		{ErrCodeAuthSignatureInvalid, http.StatusUnauthorized},
		{ErrCodeNotFoundCheckout, http.StatusNotFound},
		{ErrCodeNotFoundOrder, http.StatusNotFound},
		{ErrCodeUpstreamPolar, http.StatusInternalServerError},
		{ErrCodeUpstreamUnavailable, http.StatusInternalServerError},
		{ErrCodeUpstreamRateLimited, http.StatusInternalServerError},
		{ErrCodeConfigMissingWebhookSecret, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	appErr := NewAppError(ErrCodeUpstreamUnavailable, "upstream request failed", inner)

	if appErr.Error() != "upstream_unavailable: upstream request failed" {
		t.Errorf("unexpected error string %q", appErr.Error())
	}
	if !errors.Is(appErr, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestAppError_ErrorsAsThroughWrapping(t *testing.T) {
	appErr := NewAppError(ErrCodeNotFoundCheckout, "checkout not found", nil)
	wrapped := fmt.Errorf("handler: %w", appErr)

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to recover the AppError")
	}
	if target.Code != ErrCodeNotFoundCheckout {
		t.Errorf("unexpected code %q", target.Code)
	}
	if target.HTTPStatus() != http.StatusNotFound {
		t.Errorf("unexpected status %d", target.HTTPStatus())
	}
}

func TestNewAppErrorWithDetails(t *testing.T) {
	appErr := NewAppErrorWithDetails(
		ErrCodeUpstreamPolar,
		"Polar error (422)",
		nil,
		map[string]any{"provider_status": 422, "provider_body": `{"detail":"nope"}`},
	)

	if appErr.Details["provider_status"] != 422 {
		t.Errorf("expected provider_status detail, got %v", appErr.Details)
	}
}
