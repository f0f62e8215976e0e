// Package sqlstore implements storage.Gateway on a SQL database through sqlx.
// Each session is one database transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/calcstore/internal/app/domain/item"
	"github.com/R3E-Network/calcstore/internal/app/domain/operation"
	"github.com/R3E-Network/calcstore/internal/app/storage"
	"github.com/R3E-Network/calcstore/internal/apperrors"
	"github.com/R3E-Network/calcstore/pkg/logger"
)

const (
	insertItem      = `INSERT INTO items (name, price) VALUES (?, ?) RETURNING id, name, price`
	selectItems     = `SELECT id, name, price FROM items ORDER BY id`
	insertOperation = `INSERT INTO operations (a, b, result) VALUES (?, ?, ?) RETURNING id, a, b, result`
	selectOperation = `SELECT id, a, b, result FROM operations ORDER BY id`
)

// Store implements storage.Gateway backed by a sqlx connection pool.
type Store struct {
	db   *sqlx.DB
	log  *logger.Logger
	echo bool
}

var _ storage.Gateway = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for rollback warnings and statement echo.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEcho logs every statement a session executes.
func WithEcho(enabled bool) Option {
	return func(s *Store) { s.echo = enabled }
}

// New creates a Store using the provided database handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewDefault("sqlstore")
	}
	return s
}

// WithSession runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including when fn panics.
func (s *Store) WithSession(ctx context.Context, fn func(storage.Session) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "begin session", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.WithError(err).Warn("rollback session")
		}
	}()

	if err := fn(&session{tx: tx, store: s}); err != nil {
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "commit session", err)
	}
	return nil
}

type session struct {
	tx    *sqlx.Tx
	store *Store
}

func (t *session) CreateItem(ctx context.Context, it item.Item) (item.Item, error) {
	var created item.Item
	if err := t.get(ctx, &created, insertItem, it.Name, it.Price); err != nil {
		return item.Item{}, apperrors.Wrap(apperrors.KindPersistence, "insert item", err)
	}
	return created, nil
}

func (t *session) ListItems(ctx context.Context) ([]item.Item, error) {
	items := []item.Item{}
	if err := t.selectAll(ctx, &items, selectItems); err != nil {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "select items", err)
	}
	return items, nil
}

func (t *session) CreateOperation(ctx context.Context, op operation.Operation) (operation.Operation, error) {
	var created operation.Operation
	if err := t.get(ctx, &created, insertOperation, op.A, op.B, op.Result); err != nil {
		return operation.Operation{}, apperrors.Wrap(apperrors.KindPersistence, "insert operation", err)
	}
	return created, nil
}

func (t *session) ListOperations(ctx context.Context) ([]operation.Operation, error) {
	ops := []operation.Operation{}
	if err := t.selectAll(ctx, &ops, selectOperation); err != nil {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "select operations", err)
	}
	return ops, nil
}

func (t *session) get(ctx context.Context, dest any, query string, args ...any) error {
	query = t.tx.Rebind(query)
	t.logStatement(query, args)
	return t.tx.GetContext(ctx, dest, query, args...)
}

func (t *session) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	query = t.tx.Rebind(query)
	t.logStatement(query, args)
	return t.tx.SelectContext(ctx, dest, query, args...)
}

func (t *session) logStatement(query string, args []any) {
	if !t.store.echo {
		return
	}
	t.store.log.WithField("sql", query).WithField("args", args).Info("statement")
}
