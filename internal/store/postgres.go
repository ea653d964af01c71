package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS solver_runs (
		id UUID PRIMARY KEY,
		instance TEXT NOT NULL,
		cost DOUBLE PRECISION NOT NULL,
		elapsed_sec DOUBLE PRECISION NOT NULL,
		iterations BIGINT NOT NULL,
		constructor TEXT NOT NULL,
		routes TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`CREATE INDEX IF NOT EXISTS solver_runs_instance_cost ON solver_runs (instance, cost)`)
	return err
}

func (p *Postgres) SaveRunResult(ctx context.Context, res RunResult) (string, error) {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO solver_runs (id, instance, cost, elapsed_sec, iterations, constructor, routes, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		res.ID, res.Instance, res.Cost, res.ElapsedSec, res.Iterations, res.Constructor, res.Routes, res.CreatedAt)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

func (p *Postgres) ListRunResults(ctx context.Context, instance string, limit int) ([]RunResult, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, instance, cost, elapsed_sec, iterations, constructor, routes, created_at
		 FROM solver_runs WHERE instance=$1 ORDER BY created_at DESC LIMIT $2`, instance, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RunResult{}
	for rows.Next() {
		var r RunResult
		if err := rows.Scan(&r.ID, &r.Instance, &r.Cost, &r.ElapsedSec, &r.Iterations, &r.Constructor, &r.Routes, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) BestRunResult(ctx context.Context, instance string) (RunResult, error) {
	var r RunResult
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, instance, cost, elapsed_sec, iterations, constructor, routes, created_at
		 FROM solver_runs WHERE instance=$1 ORDER BY cost ASC LIMIT 1`, instance).
		Scan(&r.ID, &r.Instance, &r.Cost, &r.ElapsedSec, &r.Iterations, &r.Constructor, &r.Routes, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RunResult{}, ErrNotFound
	}
	if err != nil {
		return RunResult{}, err
	}
	return r, nil
}

func (p *Postgres) Close() error { return p.db.Close() }
