package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_003", "Payment verification failed", http.StatusPaymentRequired),
			expected: "[PAY_003] Payment verification failed",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("UPS_004", "Price feed unavailable", http.StatusBadGateway, fmt.Errorf("connection refused")),
			expected: "[UPS_004] Price feed unavailable: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("PAY_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Validation", Validation("missing field"), "VAL_001", 400},
		{"AuthorizationExpired", ErrAuthorizationExpired(), "VAL_002", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"AgentNotPaid", ErrAgentNotPaid(), "PAY_001", 400},
		{"EntitlementExists", ErrEntitlementExists(), "PAY_002", 409},
		{"PaymentInvalid", ErrPaymentInvalid("recipient mismatch"), "PAY_003", 402},
		{"TransactionReplay", ErrTransactionReplay(), "PAY_004", 409},
		{"AuthorizationReplay", ErrAuthorizationReplay(), "PAY_005", 409},
		{"EntitlementRevoked", ErrEntitlementRevoked(), "PAY_006", 402},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestPaymentInvalidCarriesReason(t *testing.T) {
	err := ErrPaymentInvalid("sender mismatch: expected 0xabc, got 0xdef")
	assert.Contains(t, err.Message, "sender mismatch")
}

func TestUpstreamErrors(t *testing.T) {
	inner := fmt.Errorf("dial tcp: connection refused")
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"FacilitatorVerify", ErrFacilitatorVerify(inner), "UPS_002", 502},
		{"FacilitatorSettle", ErrFacilitatorSettle(inner), "UPS_003", 502},
		{"PriceFeed", ErrPriceFeed(inner), "UPS_004", 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.True(t, errors.Is(tt.err, inner))
		})
	}
}

func TestConfigurationErrors(t *testing.T) {
	payoutErr := ErrPayoutNotConfigured()
	assert.Equal(t, "CFG_001", payoutErr.Code)
	assert.Equal(t, 500, payoutErr.HTTPStatus)

	facErr := ErrFacilitatorNotConfigured()
	assert.Equal(t, "CFG_002", facErr.Code)
	assert.Equal(t, 503, facErr.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Agent")
	assert.Contains(t, err.Message, "Agent")
	assert.Equal(t, "RES_001", err.Code)
	assert.Equal(t, 404, err.HTTPStatus)
}
