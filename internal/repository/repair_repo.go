package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"edunexus/internal/domain"
)

// RepairRepository persiste las inscripciones aplicadas a medias para que un
// proceso externo las reintente.
type RepairRepository interface {
	Record(ctx context.Context, repair domain.EnrollmentRepair) (domain.EnrollmentRepair, error)
	ListPending(ctx context.Context, limit int) ([]domain.EnrollmentRepair, error)
	MarkResolved(ctx context.Context, id string, at time.Time) error
	RecordFailure(ctx context.Context, id, lastError string, at time.Time) error
}

const repairSchema = `
	CREATE TABLE IF NOT EXISTS enrollment_repairs (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		course_id   TEXT NOT NULL,
		order_id    TEXT NOT NULL,
		payment_id  TEXT NOT NULL,
		failed_side TEXT NOT NULL,
		last_error  TEXT NOT NULL DEFAULT '',
		attempts    INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS enrollment_repairs_pending_uq
		ON enrollment_repairs (user_id, course_id, failed_side)
		WHERE status = 'pending';
`

// PgRepairRepository implementa RepairRepository usando pgxpool.
type PgRepairRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepairRepository(pool *pgxpool.Pool) *PgRepairRepository {
	return &PgRepairRepository{pool: pool}
}

// EnsureSchema crea la tabla del ledger si no existe.
func (r *PgRepairRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, repairSchema)
	return err
}

// Record inserta una reparación pendiente. Si ya existe una pendiente para el
// mismo par y lado, se actualiza su último error y se devuelve esa fila.
func (r *PgRepairRepository) Record(ctx context.Context, repair domain.EnrollmentRepair) (domain.EnrollmentRepair, error) {
	if repair.ID == "" {
		repair.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if repair.CreatedAt.IsZero() {
		repair.CreatedAt = now
	}
	repair.UpdatedAt = now
	repair.Status = domain.RepairPending

	const query = `
		INSERT INTO enrollment_repairs (
			id, user_id, course_id, order_id, payment_id, failed_side, last_error, attempts, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, course_id, failed_side) WHERE status = 'pending'
		DO UPDATE SET last_error = EXCLUDED.last_error, updated_at = EXCLUDED.updated_at
		RETURNING id, attempts, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		repair.ID,
		repair.UserID,
		repair.CourseID,
		repair.OrderID,
		repair.PaymentID,
		repair.FailedSide,
		repair.LastError,
		repair.Attempts,
		repair.Status,
		repair.CreatedAt,
		repair.UpdatedAt,
	).Scan(&repair.ID, &repair.Attempts, &repair.CreatedAt)
	if err != nil {
		return domain.EnrollmentRepair{}, err
	}
	return repair, nil
}

func (r *PgRepairRepository) ListPending(ctx context.Context, limit int) ([]domain.EnrollmentRepair, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, user_id, course_id, order_id, payment_id, failed_side, last_error, attempts, status, created_at, updated_at
		FROM enrollment_repairs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repairs []domain.EnrollmentRepair
	for rows.Next() {
		var rp domain.EnrollmentRepair
		if err := rows.Scan(
			&rp.ID,
			&rp.UserID,
			&rp.CourseID,
			&rp.OrderID,
			&rp.PaymentID,
			&rp.FailedSide,
			&rp.LastError,
			&rp.Attempts,
			&rp.Status,
			&rp.CreatedAt,
			&rp.UpdatedAt,
		); err != nil {
			return nil, err
		}
		repairs = append(repairs, rp)
	}
	return repairs, rows.Err()
}

func (r *PgRepairRepository) MarkResolved(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE enrollment_repairs
		SET status = 'resolved', attempts = attempts + 1, updated_at = $2
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepairRepository) RecordFailure(ctx context.Context, id, lastError string, at time.Time) error {
	const query = `
		UPDATE enrollment_repairs
		SET attempts = attempts + 1, last_error = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, lastError, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
