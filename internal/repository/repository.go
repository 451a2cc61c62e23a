// Package repository implements the URL store on PostgreSQL through the pgx
// database/sql driver.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/storage"
)

const sequenceName = "url_records"

// InitDB opens the pool, checks the connection and applies migrations.
func InitDB(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to postgresql: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgresql: %w", err)
	}

	if err = ApplyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Database connected and table ready.")
	return db, nil
}

type URLRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func CreateURLRepository(db *sql.DB, logger *zap.Logger) *URLRepository {
	return &URLRepository{
		db:     db,
		logger: logger,
	}
}

// Insert bumps the sequence row and stores the record in one transaction.
// The row lock taken by the UPDATE serializes concurrent writers and a
// rollback returns the id, so ids stay dense.
func (r *URLRepository) Insert(ctx context.Context, original string) (*storage.URLRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	err = tx.QueryRowContext(ctx,
		"UPDATE url_sequences SET value = value + 1 WHERE name = $1 RETURNING value;",
		sequenceName,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("next id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO url_records(short_id, original_url) VALUES ($1, $2);",
		id, original,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, storage.ErrConflict
		}
		r.logger.Error("unable to insert row", zap.Error(err))
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &storage.URLRecord{ShortID: id, Original: original}, nil
}

func (r *URLRepository) findOne(ctx context.Context, query string, arg any) (*storage.URLRecord, error) {
	var rec storage.URLRecord
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&rec.ShortID, &rec.Original)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *URLRepository) FindByOriginal(ctx context.Context, original string) (*storage.URLRecord, error) {
	return r.findOne(ctx, "SELECT short_id, original_url FROM url_records WHERE original_url = $1;", original)
}

func (r *URLRepository) FindByShortID(ctx context.Context, id int64) (*storage.URLRecord, error) {
	return r.findOne(ctx, "SELECT short_id, original_url FROM url_records WHERE short_id = $1;", id)
}

func (r *URLRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM url_records;").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *URLRepository) PingContext(c context.Context) error {
	return r.db.PingContext(c)
}

func (r *URLRepository) Close() error {
	return r.db.Close()
}
