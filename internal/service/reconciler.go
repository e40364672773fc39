package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/metrics"
	"edunexus/internal/repository"
)

// Reconciler es el punto de entrada para el proceso externo que repara
// inscripciones aplicadas a medias.
type Reconciler interface {
	Reconcile(ctx context.Context, limit int) (ReconcileReport, error)
}

type ReconcileReport struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

// EnrollmentReconciler reaplica ambas escrituras de cada reparación
// pendiente. Como las dos son $addToSet, repetirlas es seguro.
type EnrollmentReconciler struct {
	logger  *zap.Logger
	repairs repository.RepairRepository
	users   repository.UserRepository
	courses repository.CourseRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewEnrollmentReconciler(logger *zap.Logger, repairs repository.RepairRepository, users repository.UserRepository, courses repository.CourseRepository, m *metrics.Metrics) *EnrollmentReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentReconciler{
		logger:  logger,
		repairs: repairs,
		users:   users,
		courses: courses,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *EnrollmentReconciler) Reconcile(ctx context.Context, limit int) (ReconcileReport, error) {
	var report ReconcileReport
	pending, err := r.repairs.ListPending(ctx, limit)
	if err != nil {
		return report, err
	}

	for _, repair := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if err := r.replay(ctx, repair); err != nil {
			report.Failed++
			r.metrics.Reconciliation("failed")
			r.logger.Warn("enrollment repair failed",
				zap.String("repair_id", repair.ID),
				zap.String("user_id", repair.UserID),
				zap.String("course_id", repair.CourseID),
				zap.Int("attempts", repair.Attempts+1),
				zap.Error(err),
			)
			if recErr := r.repairs.RecordFailure(ctx, repair.ID, err.Error(), r.now()); recErr != nil {
				return report, recErr
			}
			continue
		}

		if err := r.repairs.MarkResolved(ctx, repair.ID, r.now()); err != nil {
			return report, err
		}
		report.Resolved++
		r.metrics.Reconciliation("resolved")
		r.logger.Info("enrollment repair resolved",
			zap.String("repair_id", repair.ID),
			zap.String("user_id", repair.UserID),
			zap.String("course_id", repair.CourseID),
		)
	}
	return report, nil
}

func (r *EnrollmentReconciler) replay(ctx context.Context, repair domain.EnrollmentRepair) error {
	if err := r.users.AddEnrolledCourse(ctx, repair.UserID, repair.CourseID); err != nil {
		return err
	}
	return r.courses.AddEnrollmentStudent(ctx, repair.CourseID, repair.UserID)
}
