// Package email entrega los códigos de recuperación de contraseña. Sin SMTP
// configurado el servicio usa un emisor deshabilitado: la solicitud de OTP
// sigue respondiendo igual y el fallo sólo queda en el log.
package email

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrSenderDisabled = errors.New("email sender disabled")

// Sender envía el código de recuperación; expiresAt se muestra al usuario
// como minutos restantes.
type Sender interface {
	SendPasswordResetOTP(ctx context.Context, toEmail string, code string, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendPasswordResetOTP(_ context.Context, toEmail string, _ string, _ time.Time) error {
	if s.reason == "" {
		return fmt.Errorf("%w: reset code for %s not sent", ErrSenderDisabled, toEmail)
	}
	return fmt.Errorf("%w: %s", ErrSenderDisabled, s.reason)
}
