// Package db abre las conexiones del servicio: MongoDB guarda cuentas,
// cursos y reseñas; Postgres sólo guarda el ledger de inscripciones a medias
// que reintenta cmd/reconcile.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"edunexus/internal/config"
)

// NewPool abre el pool del ledger. El proceso se identifica con appName en
// pg_stat_activity para distinguir la API del reconciliador.
func NewPool(ctx context.Context, cfg *config.Config, appName string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// El ledger recibe escrituras esporádicas; pocas conexiones bastan.
	maxConns := cfg.DatabaseMaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if appName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
