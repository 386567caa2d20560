package history

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tx_history (
	id            uuid PRIMARY KEY,
	account       varchar NOT NULL,
	title         varchar NOT NULL,
	status        varchar NOT NULL,
	tx_hash       varchar NOT NULL DEFAULT '',
	approval_hash varchar NOT NULL DEFAULT '',
	error         text NOT NULL DEFAULT '',
	started_at    timestamptz NOT NULL,
	finished_at   timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS tx_history_account_idx ON tx_history (account, finished_at);
`

// PostgresStore keeps history in a shared database.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.HealthCheckPeriod = 60 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err = pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, records []Record) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`INSERT INTO tx_history
			(id, account, title, status, tx_hash, approval_hash, error, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING`,
			r.ID, r.Account, r.Title, r.Status, r.TxHash, r.ApprovalHash, r.Error, r.StartedAt, r.FinishedAt)
	}
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *PostgresStore) List(ctx context.Context, account string, limit int) ([]Record, error) {
	query := `SELECT id, account, title, status, tx_hash, approval_hash, error, started_at, finished_at
		FROM tx_history`
	var args []interface{}
	if account != "" {
		args = append(args, strings.ToLower(account))
		query += ` WHERE account = $1`
	}
	query += ` ORDER BY finished_at DESC`
	if limit > 0 {
		args = append(args, limit)
		if account != "" {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.ID, &r.Account, &r.Title, &r.Status, &r.TxHash, &r.ApprovalHash,
			&r.Error, &r.StartedAt, &r.FinishedAt)
		r.StartedAt, r.FinishedAt = r.StartedAt.UTC(), r.FinishedAt.UTC()
		return r, err
	})
}

func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}
