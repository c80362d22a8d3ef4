package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/easyd/internal/store"
)

// DB implements store.Store on PostgreSQL through the pgx stdlib driver.
// Useful when several hosts share one registry of names; pids stay local.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daemons(
			name TEXT PRIMARY KEY,
			pid INTEGER NOT NULL DEFAULT 0,
			exe TEXT NOT NULL,
			args TEXT NOT NULL DEFAULT '[]',
			output TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_daemons_pid ON daemons(pid);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Put(ctx context.Context, rec store.Record) error {
	args, err := store.EncodeArgs(rec.Args)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO daemons(name, pid, exe, args, output, updated_at)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT(name) DO UPDATE SET
			pid=EXCLUDED.pid,
			exe=EXCLUDED.exe,
			args=EXCLUDED.args,
			output=EXCLUDED.output,
			updated_at=EXCLUDED.updated_at;`,
		rec.Name, rec.PID, rec.Exe, args, rec.Output, time.Now().UTC())
	return err
}

func (p *DB) Get(ctx context.Context, name string) (store.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT name, pid, exe, args, output, updated_at
		FROM daemons
		WHERE name=$1;`, name)
	if err != nil {
		return store.Record{}, err
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return store.Record{}, err
	}
	if len(recs) == 0 {
		return store.Record{}, fmt.Errorf("%s: %w", name, store.ErrNotFound)
	}
	return recs[0], nil
}

func (p *DB) List(ctx context.Context) ([]store.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT name, pid, exe, args, output, updated_at
		FROM daemons
		ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *DB) SetPID(ctx context.Context, name string, pid int) error {
	res, err := p.db.ExecContext(ctx, `UPDATE daemons SET pid=$1, updated_at=$2 WHERE name=$3;`,
		pid, time.Now().UTC(), name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", name, store.ErrNotFound)
	}
	return nil
}

func (p *DB) Delete(ctx context.Context, name string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM daemons WHERE name=$1;`, name)
	return err
}

func scanRecords(rows *sql.Rows) ([]store.Record, error) {
	out := make([]store.Record, 0)
	for rows.Next() {
		var (
			r    store.Record
			args string
		)
		if err := rows.Scan(&r.Name, &r.PID, &r.Exe, &args, &r.Output, &r.UpdatedAt); err != nil {
			return nil, err
		}
		decoded, err := store.DecodeArgs(args)
		if err != nil {
			return nil, fmt.Errorf("daemon %s: %w", r.Name, err)
		}
		r.Args = decoded
		out = append(out, r)
	}
	return out, rows.Err()
}
