package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/metrics"
	"edunexus/internal/payment"
	"edunexus/internal/repository"
)

// PaymentService crea órdenes en la pasarela y, al recibir la confirmación
// del cliente, verifica firma y estado antes de inscribir.
type PaymentService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	courses  repository.CourseRepository
	gateway  payment.Gateway
	saga     *EnrollmentSaga
	currency string
	metrics  *metrics.Metrics
}

func NewPaymentService(logger *zap.Logger, users repository.UserRepository, courses repository.CourseRepository, gateway payment.Gateway, saga *EnrollmentSaga, currency string, m *metrics.Metrics) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		logger:   logger,
		users:    users,
		courses:  courses,
		gateway:  gateway,
		saga:     saga,
		currency: strings.ToUpper(currency),
		metrics:  m,
	}
}

type OrderInput struct {
	UserID   string
	CourseID string
}

type OrderResult struct {
	Order domain.Order
	KeyID string
}

type VerifyInput struct {
	CourseID  string
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
}

type VerifyResult struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
}

// AmountFor convierte un precio a la unidad mínima de la moneda.
func AmountFor(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrInvalidAmount
	}
	amount := math.Round(price * 100)
	if amount < 1 || amount > math.MaxInt64/2 {
		return 0, ErrInvalidAmount
	}
	return int64(amount), nil
}

// CreateOrder no es idempotente: cada llamada crea una orden distinta en la
// pasarela.
func (s *PaymentService) CreateOrder(ctx context.Context, input OrderInput) (OrderResult, error) {
	course, err := s.courses.GetByID(ctx, input.CourseID)
	if err != nil {
		return OrderResult{}, mapRepoError(err, "course not found")
	}
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return OrderResult{}, mapRepoError(err, "user not found")
	}

	amount, err := AmountFor(course.Price)
	if err != nil {
		s.metrics.PaymentEvent("order", "invalid_amount")
		return OrderResult{}, err
	}

	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  course.ID,
		Notes: map[string]string{
			"courseId":    course.ID,
			"userId":      user.ID,
			"courseTitle": course.Title,
		},
	})
	if err != nil {
		s.metrics.PaymentEvent("order", "gateway_error")
		s.logger.Error("create gateway order failed",
			zap.Error(err),
			zap.String("course_id", course.ID),
			zap.String("user_id", user.ID),
		)
		return OrderResult{}, fmt.Errorf("%w: create order", ErrExternalService)
	}

	s.metrics.PaymentEvent("order", "created")
	s.logger.Info("payment order created",
		zap.String("order_id", order.ID),
		zap.String("course_id", course.ID),
		zap.String("user_id", user.ID),
		zap.Int64("amount", order.Amount),
	)
	return OrderResult{Order: order, KeyID: s.gateway.KeyID()}, nil
}

// VerifyPayment confía en el monto capturado que reporta la pasarela: no lo
// compara con el precio actual del curso. Sí exige que la orden pagada sea la
// creada para ese curso y ese usuario.
func (s *PaymentService) VerifyPayment(ctx context.Context, input VerifyInput) (VerifyResult, error) {
	if input.CourseID == "" || input.UserID == "" || input.OrderID == "" || input.PaymentID == "" || input.Signature == "" {
		return VerifyResult{}, validationf("courseId, userId, orderId, paymentId and signature are required")
	}

	logFields := []zap.Field{
		zap.String("order_id", input.OrderID),
		zap.String("payment_id", input.PaymentID),
		zap.String("course_id", input.CourseID),
		zap.String("user_id", input.UserID),
	}

	if !s.gateway.VerifySignature(input.OrderID, input.PaymentID, input.Signature) {
		s.metrics.PaymentEvent("verify", "signature_invalid")
		s.logger.Warn("payment signature invalid", logFields...)
		return VerifyResult{}, ErrSignatureInvalid
	}

	p, err := s.gateway.FetchPayment(ctx, input.PaymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			s.metrics.PaymentEvent("verify", "payment_not_found")
			s.logger.Warn("payment not found at gateway", logFields...)
			return VerifyResult{}, ErrPaymentNotFound
		}
		s.metrics.PaymentEvent("verify", "gateway_error")
		s.logger.Error("fetch payment failed", append(logFields, zap.Error(err))...)
		return VerifyResult{}, fmt.Errorf("%w: fetch payment", ErrExternalService)
	}
	if p.Status != domain.PaymentStatusCaptured {
		s.metrics.PaymentEvent("verify", "not_captured")
		s.logger.Warn("payment not captured", append(logFields, zap.String("status", p.Status))...)
		return VerifyResult{}, ErrPaymentNotCaptured
	}
	if !strings.EqualFold(p.Currency, s.currency) {
		s.metrics.PaymentEvent("verify", "currency_mismatch")
		s.logger.Warn("payment currency mismatch",
			append(logFields, zap.String("currency", p.Currency), zap.String("expected", s.currency))...)
		return VerifyResult{}, ErrCurrencyMismatch
	}

	if err := s.checkOrderBinding(ctx, input, p, logFields); err != nil {
		return VerifyResult{}, err
	}

	if _, err := s.courses.GetByID(ctx, input.CourseID); err != nil {
		return VerifyResult{}, mapRepoError(err, "course not found")
	}
	if _, err := s.users.GetByID(ctx, input.UserID); err != nil {
		return VerifyResult{}, mapRepoError(err, "user not found")
	}

	if err := s.saga.Apply(ctx, Enrollment{
		UserID:    input.UserID,
		CourseID:  input.CourseID,
		OrderID:   input.OrderID,
		PaymentID: input.PaymentID,
	}); err != nil {
		s.metrics.PaymentEvent("verify", "enrollment_failed")
		return VerifyResult{}, err
	}

	s.metrics.PaymentEvent("verify", "enrolled")
	s.logger.Info("payment verified", append(logFields, zap.Int64("amount", p.Amount))...)
	return VerifyResult{PaymentID: input.PaymentID, OrderID: input.OrderID}, nil
}

// checkOrderBinding exige que el pago pertenezca a la orden firmada y que la
// orden se haya creado para el mismo curso y usuario que se quieren inscribir.
func (s *PaymentService) checkOrderBinding(ctx context.Context, input VerifyInput, p domain.Payment, logFields []zap.Field) error {
	if p.OrderID != input.OrderID {
		s.metrics.PaymentEvent("verify", "order_mismatch")
		s.logger.Warn("payment belongs to another order",
			append(logFields, zap.String("payment_order_id", p.OrderID))...)
		return ErrOrderMismatch
	}

	order, err := s.gateway.FetchOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, payment.ErrOrderNotFound) {
			s.metrics.PaymentEvent("verify", "order_mismatch")
			s.logger.Warn("order not found at gateway", logFields...)
			return ErrOrderMismatch
		}
		s.metrics.PaymentEvent("verify", "gateway_error")
		s.logger.Error("fetch order failed", append(logFields, zap.Error(err))...)
		return fmt.Errorf("%w: fetch order", ErrExternalService)
	}

	if order.Notes["courseId"] != input.CourseID || order.Notes["userId"] != input.UserID {
		s.metrics.PaymentEvent("verify", "order_mismatch")
		s.logger.Warn("order bound to another course or user",
			append(logFields,
				zap.String("order_course_id", order.Notes["courseId"]),
				zap.String("order_user_id", order.Notes["userId"]),
			)...)
		return ErrOrderMismatch
	}
	return nil
}

// mapRepoError traduce ErrNotFound del almacenamiento a la clase de servicio.
func mapRepoError(err error, notFoundMsg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, notFoundMsg)
	}
	return err
}
