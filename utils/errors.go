package utils

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError represents an application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequestError creates a 400 Bad Request error
func BadRequestError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, message, err)
}

// NotFoundError creates a 404 Not Found error
func NotFoundError(message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, message, err)
}

// ConflictError creates a 409 Conflict error
func ConflictError(message string, err error) *AppError {
	return NewAppError(http.StatusConflict, message, err)
}

// GatewayError creates a 502 Bad Gateway error for upstream payment provider
// failures. These are retryable by the caller.
func GatewayError(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, message, err)
}

// SignatureError creates a 400 error for failed payment signature checks.
// The expected signature is never echoed back.
func SignatureError() *AppError {
	return NewAppError(http.StatusBadRequest, "Payment verification failed", nil)
}

// InsufficientFundsError signals a wallet debit that would drive the balance
// negative. It carries the shortfall so clients can prompt a recharge.
type InsufficientFundsError struct {
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
}

// Error implements the error interface
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// Shortfall returns how much the wallet is short by.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// IsInsufficientFunds checks whether err is an InsufficientFundsError.
func IsInsufficientFunds(err error) (*InsufficientFundsError, bool) {
	ife, ok := err.(*InsufficientFundsError)
	return ife, ok
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError returns the AppError if the error is an AppError
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
