package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loykin/easyd/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// DSN is a filesystem path to the SQLite database file. Use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	d.SetMaxOpenConns(1)
	// busy timeout helps when two CLI invocations touch the file at once
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daemons(
			name TEXT PRIMARY KEY,
			pid INTEGER NOT NULL DEFAULT 0,
			exe TEXT NOT NULL,
			args TEXT NOT NULL DEFAULT '[]',
			output TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_daemons_pid ON daemons(pid);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Put(ctx context.Context, rec store.Record) error {
	args, err := store.EncodeArgs(rec.Args)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daemons(name, pid, exe, args, output, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			pid=excluded.pid,
			exe=excluded.exe,
			args=excluded.args,
			output=excluded.output,
			updated_at=excluded.updated_at;`,
		rec.Name, rec.PID, rec.Exe, args, rec.Output, time.Now().UTC())
	return err
}

func (s *DB) Get(ctx context.Context, name string) (store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, pid, exe, args, output, updated_at
		FROM daemons
		WHERE name=?;`, name)
	if err != nil {
		return store.Record{}, err
	}
	defer func() { _ = rows.Close() }()
	recs, err := scanRecords(rows)
	if err != nil {
		return store.Record{}, err
	}
	if len(recs) == 0 {
		return store.Record{}, fmt.Errorf("%s: %w", name, store.ErrNotFound)
	}
	return recs[0], nil
}

func (s *DB) List(ctx context.Context) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, pid, exe, args, output, updated_at
		FROM daemons
		ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *DB) SetPID(ctx context.Context, name string, pid int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE daemons SET pid=?, updated_at=? WHERE name=?;`,
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

func (s *DB) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM daemons WHERE name=?;`, name)
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
