package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/metrics"
	"edunexus/internal/repository"
)

// Enrollment es el hecho a aplicar tras un pago verificado.
type Enrollment struct {
	UserID    string
	CourseID  string
	OrderID   string
	PaymentID string
}

// EnrollmentSaga aplica la inscripción en dos escrituras idempotentes
// ($addToSet): primero en el usuario, luego en el curso. Si la segunda
// falla tras los reintentos, el lado pendiente queda en el ledger de
// reparaciones para EnrollmentReconciler.
type EnrollmentSaga struct {
	logger     *zap.Logger
	users      repository.UserRepository
	courses    repository.CourseRepository
	repairs    repository.RepairRepository
	metrics    *metrics.Metrics
	newBackOff func() backoff.BackOff
}

func NewEnrollmentSaga(logger *zap.Logger, users repository.UserRepository, courses repository.CourseRepository, repairs repository.RepairRepository, m *metrics.Metrics) *EnrollmentSaga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentSaga{
		logger:     logger,
		users:      users,
		courses:    courses,
		repairs:    repairs,
		metrics:    m,
		newBackOff: defaultEnrollmentBackOff,
	}
}

func defaultEnrollmentBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 3 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

// Apply devuelve nil sólo si ambos lados quedaron escritos.
func (s *EnrollmentSaga) Apply(ctx context.Context, e Enrollment) error {
	if err := s.retry(ctx, func() error {
		return s.users.AddEnrolledCourse(ctx, e.UserID, e.CourseID)
	}); err != nil {
		s.metrics.Enrollment("user_write_failed")
		s.logger.Error("enrollment user write failed",
			zap.Error(err),
			zap.String("user_id", e.UserID),
			zap.String("course_id", e.CourseID),
			zap.String("payment_id", e.PaymentID),
		)
		return fmt.Errorf("%w: enroll user: %v", ErrExternalService, err)
	}

	if err := s.retry(ctx, func() error {
		return s.courses.AddEnrollmentStudent(ctx, e.CourseID, e.UserID)
	}); err != nil {
		s.metrics.Enrollment("partial")
		s.recordPartial(ctx, e, domain.RepairSideCourse, err)
		return fmt.Errorf("%w: enroll course: %v", ErrExternalService, err)
	}

	s.metrics.Enrollment("applied")
	return nil
}

func (s *EnrollmentSaga) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if errors.Is(err, repository.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(s.newBackOff(), ctx))
}

func (s *EnrollmentSaga) recordPartial(ctx context.Context, e Enrollment, side string, cause error) {
	fields := []zap.Field{
		zap.String("event", "enrollment_reconciliation"),
		zap.String("user_id", e.UserID),
		zap.String("course_id", e.CourseID),
		zap.String("order_id", e.OrderID),
		zap.String("payment_id", e.PaymentID),
		zap.String("failed_side", side),
		zap.Error(cause),
	}
	if s.repairs == nil {
		s.logger.Error("partial enrollment without repair ledger", fields...)
		return
	}

	// El contexto de la petición puede estar cancelado; el registro no debe perderse.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	repair, err := s.repairs.Record(recordCtx, domain.EnrollmentRepair{
		UserID:     e.UserID,
		CourseID:   e.CourseID,
		OrderID:    e.OrderID,
		PaymentID:  e.PaymentID,
		FailedSide: side,
		LastError:  cause.Error(),
	})
	if err != nil {
		s.logger.Error("partial enrollment not recorded", append(fields, zap.NamedError("ledger_error", err))...)
		return
	}
	s.logger.Error("partial enrollment recorded", append(fields, zap.String("repair_id", repair.ID))...)
}
