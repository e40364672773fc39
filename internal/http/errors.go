package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/service"
)

// errorClass asocia un error del servicio con su status y código público.
type errorClass struct {
	err    error
	status int
	code   string
}

// El orden importa: los errores específicos van antes que su clase.
var errorClasses = []errorClass{
	{service.ErrSignatureInvalid, http.StatusBadRequest, "SignatureInvalid"},
	{service.ErrPaymentNotCaptured, http.StatusBadRequest, "PaymentNotCaptured"},
	{service.ErrCurrencyMismatch, http.StatusBadRequest, "CurrencyMismatch"},
	{service.ErrOrderMismatch, http.StatusBadRequest, "OrderMismatch"},
	{service.ErrInvalidAmount, http.StatusBadRequest, "InvalidAmount"},
	{service.ErrInvalidOrExpiredOTP, http.StatusBadRequest, "InvalidOrExpiredOtp"},
	{service.ErrOTPNotVerified, http.StatusBadRequest, "OtpNotVerified"},
	{service.ErrPaymentNotFound, http.StatusNotFound, "PaymentNotFound"},
	{service.ErrDuplicateReview, http.StatusConflict, "DuplicateReview"},
	{service.ErrValidation, http.StatusBadRequest, "ValidationError"},
	{service.ErrPaymentRejected, http.StatusBadRequest, "PaymentRejected"},
	{service.ErrNotFound, http.StatusNotFound, "NotFound"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{service.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{service.ErrConflict, http.StatusConflict, "Conflict"},
}

const genericMessage = "something went wrong, please try again"

// writeError traduce err al cuerpo {success, error, message}. Los errores no
// clasificados y los de servicios externos se registran y se responden con un
// mensaje genérico.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	for _, cls := range errorClasses {
		if errors.Is(err, cls.err) {
			respondError(c, cls.status, cls.code, clientMessage(err))
			return
		}
	}
	if logger != nil {
		logger.Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
	}
	respondError(c, http.StatusInternalServerError, "ExternalServiceError", genericMessage)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": code, "message": message})
}

// clientMessage quita el prefijo de la clase ("validation error: ...") y deja
// el detalle que sí es útil para el cliente.
func clientMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		return msg[i+2:]
	}
	return msg
}

func badRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "ValidationError", message)
}
