package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrInsufficientBalance(shortage int64) *AppError {
	return &AppError{Code: "INSUFFICIENT_BALANCE", Message: fmt.Sprintf("insufficient balance, short %d", shortage), Status: 400}
}

func ErrBelowMinimum(msg string) *AppError {
	return &AppError{Code: "BELOW_MINIMUM", Message: msg, Status: 400}
}

// ErrQuoteUnavailable wraps a price oracle transport failure. The caller may
// retry the whole intent; nothing has been written.
func ErrQuoteUnavailable(cause error) *AppError {
	return &AppError{Code: "QUOTE_UNAVAILABLE", Message: "exchange rate unavailable", Status: 502, Cause: cause}
}

// ErrGateway wraps a payment gateway rejection or transport failure.
func ErrGateway(msg string, cause error) *AppError {
	return &AppError{Code: "GATEWAY_ERROR", Message: msg, Status: 502, Cause: cause}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// ValidatePositiveAmount checks that an amount is positive (in toman).
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return ErrValidation(fmt.Sprintf("amount must be positive, got %d", amount))
	}
	return nil
}
