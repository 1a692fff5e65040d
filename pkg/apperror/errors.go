package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a 400 for malformed or schema-invalid input.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrAuthorizationExpired() *AppError {
	return New("VAL_002", "Payment authorization has expired", http.StatusBadRequest)
}

// ---- Resource lookup (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Payment verification & entitlements (PAY) ----

func ErrAgentNotPaid() *AppError {
	return New("PAY_001", "Agent does not require payment", http.StatusBadRequest)
}

func ErrEntitlementExists() *AppError {
	return New("PAY_002", "An active entitlement already exists for this agent and wallet", http.StatusConflict)
}

// ErrPaymentInvalid carries the verifier's mismatch reason so callers can see
// which side of the payment failed.
func ErrPaymentInvalid(reason string) *AppError {
	return New("PAY_003", fmt.Sprintf("Payment verification failed: %s", reason), http.StatusPaymentRequired)
}

func ErrTransactionReplay() *AppError {
	return New("PAY_004", "Transaction hash has already been used for a purchase", http.StatusConflict)
}

func ErrAuthorizationReplay() *AppError {
	return New("PAY_005", "Transfer authorization nonce has already been used", http.StatusConflict)
}

func ErrEntitlementRevoked() *AppError {
	return New("PAY_006", "Entitlement has been revoked or is no longer active", http.StatusPaymentRequired)
}

// ---- Upstream collaborators (UPS) ----

func ErrFacilitatorVerify(err error) *AppError {
	return Wrap("UPS_002", "Facilitator rejected payment verification", http.StatusBadGateway, err)
}

func ErrFacilitatorSettle(err error) *AppError {
	return Wrap("UPS_003", "Facilitator settlement failed", http.StatusBadGateway, err)
}

func ErrPriceFeed(err error) *AppError {
	return Wrap("UPS_004", "Price feed unavailable", http.StatusBadGateway, err)
}

// ---- Configuration (CFG) ----

func ErrPayoutNotConfigured() *AppError {
	return New("CFG_001", "Publisher payout address is not configured", http.StatusInternalServerError)
}

func ErrFacilitatorNotConfigured() *AppError {
	return New("CFG_002", "No facilitator endpoint configured for gasless settlement", http.StatusServiceUnavailable)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
