package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"optigov.org/internal/migrate"
)

// SQL stores keys in the kv_entries table of a PostgreSQL or SQLite database.
// Apply runs in a single transaction.
type SQL struct {
	db      *sql.DB
	dialect migrate.Dialect
}

var _ Store = (*SQL)(nil)

// NewSQL wraps an open database. The schema must already exist.
func NewSQL(db *sql.DB, dialect migrate.Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

// OpenPostgres connects through pgx and applies the embedded schema.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := openPostgresDB(dsn)
	if err != nil {
		return nil, err
	}
	return openSQL(ctx, db, migrate.Postgres)
}

// OpenSQLite opens (creating if needed) a SQLite database file and applies the
// embedded schema. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	db, err := openSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	return openSQL(ctx, db, migrate.SQLite)
}

// OpenDB opens the SQL database selected by cfg without touching its schema.
func OpenDB(cfg Config) (*sql.DB, migrate.Dialect, error) {
	switch cfg.Driver {
	case DriverPostgres:
		db, err := openPostgresDB(cfg.DSN)
		return db, migrate.Postgres, err
	case DriverSQLite:
		db, err := openSQLiteDB(cfg.DSN)
		return db, migrate.SQLite, err
	}
	return nil, "", fmt.Errorf("kv: driver %q has no SQL schema", cfg.Driver)
}

func openPostgresDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("kv: postgres requires a DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: open postgres: %w", err)
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func openSQLiteDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("kv: sqlite requires a database path")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite: %w", err)
	}
	// one connection: keeps ":memory:" databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return db, nil
}

func openSQL(ctx context.Context, db *sql.DB, dialect migrate.Dialect) (*SQL, error) {
	mgr, err := migrate.NewManager(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := mgr.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: migrate %s: %w", dialect, err)
	}
	return NewSQL(db, dialect), nil
}

// DB exposes the underlying handle.
func (s *SQL) DB() *sql.DB { return s.db }

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.query(`select value from kv_entries where key = $1`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQL) Apply(ctx context.Context, ops ...Op) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	upsert := s.query(`
		insert into kv_entries(key, value, updated_at)
		values ($1, $2, $3)
		on conflict (key) do update
		set value = excluded.value, updated_at = excluded.updated_at
	`)
	del := s.query(`delete from kv_entries where key = $1`)
	now := time.Now().UTC()
	for _, op := range ops {
		if op.Delete {
			if _, err := tx.ExecContext(ctx, del, op.Key); err != nil {
				return fmt.Errorf("kv: delete %s: %w", op.Key, err)
			}
			continue
		}
		value := op.Value
		if value == nil {
			value = []byte{}
		}
		if _, err := tx.ExecContext(ctx, upsert, op.Key, value, now); err != nil {
			return fmt.Errorf("kv: put %s: %w", op.Key, err)
		}
	}
	return tx.Commit()
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Close() error { return s.db.Close() }

// query rewrites $n placeholders to ? for SQLite.
func (s *SQL) query(q string) string {
	if s.dialect != migrate.SQLite {
		return q
	}
	out := make([]byte, 0, len(q))
	for i := 0; i < len(q); i++ {
		if q[i] == '$' && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
			out = append(out, '?')
			for i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
				i++
			}
			continue
		}
		out = append(out, q[i])
	}
	return string(out)
}
