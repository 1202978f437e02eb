// Package sqlexec runs query text through bun and materializes the result
// as rows for connectors.
package sqlexec

import (
	"context"

	"github.com/agentuity/go-common/logger"
	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-query-cache/row"
	"github.com/goliatone/go-query-cache/transaction"
)

// ErrNotBunTx is returned by InScope when the scope's transaction is not a
// bun transaction.
var ErrNotBunTx = errors.New("scope transaction is not a bun transaction")

// Executor runs queries on a bun database, connection or transaction.
// Placeholders use bun's "?" syntax for every dialect.
type Executor struct {
	db     bun.IDB
	logger logger.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used to trace executed statements.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New returns an Executor over db, which may be a *bun.DB, bun.Conn or
// bun.Tx.
func New(db bun.IDB, opts ...Option) *Executor {
	e := &Executor{db: db}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.NewConsoleLogger(logger.LevelNone)
	}
	return e
}

// InScope returns an Executor bound to the scope's transaction, so every
// query it runs takes part in the unit of work.
func InScope(scope *transaction.Scope, opts ...Option) (*Executor, error) {
	if scope == nil {
		return nil, errors.New("sqlexec: nil scope")
	}
	db, ok := scope.Tx().(bun.IDB)
	if !ok {
		return nil, errors.Wrapf(ErrNotBunTx, "%T", scope.Tx())
	}
	return New(db, opts...), nil
}

// Query executes text and returns every row in result order. Driver errors
// are returned unchanged.
func (e *Executor) Query(ctx context.Context, text string, params ...any) ([]row.Row, error) {
	e.logger.Trace("query: %s %v", text, params)

	rows, err := e.db.QueryContext(ctx, text, params...)
	if err != nil {
		return nil, err
	}
	return row.ScanAll(rows)
}

// Exec executes a statement that returns no rows and reports the number of
// affected rows.
func (e *Executor) Exec(ctx context.Context, text string, params ...any) (int64, error) {
	e.logger.Trace("exec: %s %v", text, params)

	res, err := e.db.ExecContext(ctx, text, params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
