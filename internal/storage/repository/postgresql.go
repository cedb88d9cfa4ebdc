// Package repository реализует хранилище леджера кредитов на PostgreSQL (pgx v5).
//
// Все методы работают либо с пулом соединений, либо с транзакцией,
// открытой через WithTx и переданной в context.Context.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magabrotheeeer/video-credits/internal/storage"
)

const (
	pgUniqueViolation      = "23505"
	pgInvalidTextRepresent = "22P02"
)

// Querier общий набор методов пула и транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB соединение, умеющее открывать транзакции. Ему удовлетворяют *pgxpool.Pool и pgxmock.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

// Storage хранилище леджера.
type Storage struct {
	db   DB
	pool *pgxpool.Pool
}

// New открывает пул соединений и проверяет доступность базы.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	pool, err := pgxpool.New(ctx, storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: pool, pool: pool}, nil
}

// NewWithDB создает Storage поверх готового соединения.
func NewWithDB(db DB) *Storage {
	return &Storage{db: db}
}

// Pool возвращает пул соединений или nil, если Storage создан через NewWithDB.
func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.Ping"
	if _, err := s.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WithTx выполняет fn в транзакции. Если в ctx уже есть транзакция, fn выполняется в ней.
// Ошибка fn откатывает транзакцию.
func (s *Storage) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Storage) q(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.db
}

// LockUser берет транзакционную advisory-блокировку на пользователя.
// Вне транзакции блокировка снимается сразу, поэтому вызывать ее нужно внутри WithTx.
func (s *Storage) LockUser(ctx context.Context, userID string) error {
	const op = "storage.LockUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.q(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// mapErr приводит ошибки pgx к ошибкам пакета storage.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, pgErr.ConstraintName)
		case pgInvalidTextRepresent:
			return storage.ErrNotFound
		}
	}
	return err
}
