package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pingate/internal/client/migrations"
	"github.com/dmitrijs2005/pingate/internal/cryptox"
	"github.com/dmitrijs2005/pingate/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps secrets in a local SQLite table. Values are sealed with
// AES-GCM under the device key; the secret name is bound as associated data.
type SQLiteStore struct {
	db  *sql.DB
	key []byte
}

func NewSQLiteStore(db *sql.DB, key []byte) *SQLiteStore {
	return &SQLiteStore{db: db, key: key}
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// OpenSQLite opens (creating if needed) the database at dsn, migrates it and
// returns a store sealing values under key.
func OpenSQLite(ctx context.Context, dsn string, key []byte) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate secrets db: %w", err)
	}

	return NewSQLiteStore(db, key), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, name string) ([]byte, error) {
	var nonce, sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT nonce, value FROM secrets WHERE name = ?`, name).Scan(&nonce, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Name: name, Err: err}
	}

	value, err := cryptox.Open(s.key, sealed, nonce, []byte(name))
	if err != nil {
		return nil, &StoreError{Op: "open", Name: name, Err: err}
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, name string, value []byte) error {
	sealed, nonce, err := cryptox.Seal(s.key, value, []byte(name))
	if err != nil {
		return &StoreError{Op: "seal", Name: name, Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO secrets (name, nonce, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET nonce = excluded.nonce, value = excluded.value, updated_at = excluded.updated_at
	`, name, nonce, sealed)
	if err != nil {
		return &StoreError{Op: "set", Name: name, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := deleteByName(ctx, s.db, name); err != nil {
		return &StoreError{Op: "delete", Name: name, Err: err}
	}
	return nil
}

// DeleteMany removes all names in a single transaction.
func (s *SQLiteStore) DeleteMany(ctx context.Context, names ...string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, name := range names {
			if err := deleteByName(ctx, tx, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secrets`); err != nil {
		return &StoreError{Op: "delete all", Err: err}
	}
	return nil
}

func deleteByName(ctx context.Context, db dbx.DBTX, name string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM secrets WHERE name = ?`, name)
	return err
}
