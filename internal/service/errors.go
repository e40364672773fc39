package service

import (
	"errors"
	"fmt"
)

// Clases genéricas; la capa HTTP traduce cada una a un código de estado.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service error")
	ErrPaymentRejected = errors.New("payment rejected")
)

// Errores específicos. Cada uno envuelve su clase para que errors.Is
// funcione con ambos niveles.
var (
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrSignatureInvalid    = fmt.Errorf("%w: signature invalid", ErrPaymentRejected)
	ErrPaymentNotCaptured  = fmt.Errorf("%w: payment not captured", ErrPaymentRejected)
	ErrCurrencyMismatch    = fmt.Errorf("%w: currency mismatch", ErrPaymentRejected)
	ErrOrderMismatch       = fmt.Errorf("%w: payment does not belong to this order", ErrPaymentRejected)
	ErrPaymentNotFound     = fmt.Errorf("%w: payment not found", ErrNotFound)
	ErrInvalidOrExpiredOTP = fmt.Errorf("%w: invalid or expired otp", ErrValidation)
	ErrOTPNotVerified      = fmt.Errorf("%w: otp not verified", ErrValidation)
	ErrDuplicateReview     = fmt.Errorf("%w: duplicate review", ErrConflict)
	ErrEmailTaken          = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email", ErrValidation)
)

// validationf crea un error de validación con mensaje propio.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
