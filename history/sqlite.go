package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tx_history (
	id            TEXT PRIMARY KEY,
	account       TEXT NOT NULL,
	title         TEXT NOT NULL,
	status        TEXT NOT NULL,
	tx_hash       TEXT NOT NULL DEFAULT '',
	approval_hash TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	started_at    INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS tx_history_account_idx ON tx_history (account, finished_at);
`

// SQLiteStore keeps history in a local file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO tx_history
		(id, account, title, status, tx_hash, approval_hash, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID.String(), r.Account, r.Title, r.Status,
			r.TxHash, r.ApprovalHash, r.Error, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context, account string, limit int) ([]Record, error) {
	query := `SELECT id, account, title, status, tx_hash, approval_hash, error, started_at, finished_at
		FROM tx_history`
	var args []interface{}
	if account != "" {
		query += ` WHERE account = ?`
		args = append(args, strings.ToLower(account))
	}
	query += ` ORDER BY finished_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                 Record
			id                string
			started, finished int64
		)
		if err := rows.Scan(&id, &r.Account, &r.Title, &r.Status, &r.TxHash, &r.ApprovalHash,
			&r.Error, &started, &finished); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
