package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dormitory/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
)

// ErrNotFound возвращается, когда запрошенной строки нет.
var ErrNotFound = models.ErrNotFound

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

// Queries: запросы поверх соединения или транзакции.
// Внутри транзакции выборки комнат и заявок берут блокировку строк.
type Queries struct {
	q    sqlx.ExtContext
	lock bool
}

type Storage struct {
	*Queries
	db      *sqlx.DB
	retries uint
	backoff time.Duration
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Queries: &Queries{q: db},
		db:      db,
		retries: 3,
		backoff: 20 * time.Millisecond,
	}
}

// WithRetries задаёт число повторов транзакции после serialization failure.
func (s *Storage) WithRetries(n uint) *Storage {
	s.retries = n
	return s
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx выполняет fn в SERIALIZABLE транзакции. При конфликте сериализации
// или дедлоке транзакция повторяется целиком.
func (s *Storage) InTx(ctx context.Context, fn func(*Queries) error) error {
	b := retry.WithMaxRetries(uint64(s.retries), retry.NewExponential(s.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.runTx(ctx, fn)
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Storage) runTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Queries{q: tx, lock: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Runner приводит транзакции Storage к репозиторию R, объявленному потребителем.
func Runner[R any](s *Storage, as func(*Queries) R) func(context.Context, func(R) error) error {
	return func(ctx context.Context, fn func(R) error) error {
		return s.InTx(ctx, func(q *Queries) error { return fn(as(q)) })
	}
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraint
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (q *Queries) forUpdate(b sq.SelectBuilder, of string) sq.SelectBuilder {
	if !q.lock {
		return b
	}
	return b.Suffix("FOR UPDATE OF " + of)
}

func (q *Queries) get(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	err = sqlx.GetContext(ctx, q.q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (q *Queries) selectAll(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q.q, dest, query, args...)
}

func (q *Queries) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
