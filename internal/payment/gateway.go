// Package payment adapta la pasarela de pagos externa: creación de órdenes,
// consulta de pagos y verificación de firmas.
package payment

import (
	"context"
	"errors"

	"edunexus/internal/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrGateway         = errors.New("payment gateway error")
	ErrGatewayOpen     = errors.New("payment gateway unavailable")
)

// OrderRequest describe la orden a crear; Notes viaja opaco hasta la pasarela.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Gateway es el contrato que la orquestación usa contra el proveedor.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (domain.Order, error)
	FetchOrder(ctx context.Context, orderID string) (domain.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (domain.Payment, error)
	KeyID() string
	VerifySignature(orderID, paymentID, signature string) bool
}
