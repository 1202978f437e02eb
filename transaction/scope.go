// Package transaction provides a scoped unit of work over a bun transaction
// with commit-or-rollback semantics.
package transaction

import (
	"context"
	"database/sql"
	"sync"

	"github.com/agentuity/go-common/logger"
	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"
)

var (
	// ErrCommitFailed marks a commit the data store rejected. The scope has
	// been rolled back and is Abandoned; the driver error is wrapped.
	ErrCommitFailed = errors.New("transaction commit failed")

	// ErrScopeClosed is returned when a scope is used after reaching a
	// terminal state.
	ErrScopeClosed = errors.New("transaction scope is closed")
)

// State is the lifecycle position of a Scope.
type State int

const (
	// Open is the initial state on acquisition.
	Open State = iota
	// Committed is reached by a successful Commit.
	Committed
	// Abandoned is reached by release without commit, or a failed commit.
	Abandoned
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Committed:
		return "committed"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Tx is the transaction resource a scope owns.
type Tx interface {
	Commit() error
	Rollback() error
}

// Beginner starts bun transactions. *bun.DB and bun.Conn satisfy it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (bun.Tx, error)
}

var (
	_ Beginner = (*bun.DB)(nil)
	_ Tx       = (*bun.Tx)(nil)
)

// Scope is a unit-of-work boundary. It ends in exactly one terminal state:
// Committed after an explicit successful Commit, Abandoned otherwise.
//
// A scope belongs to the call path that acquired it and must not be used
// from concurrent operations.
type Scope struct {
	mu     sync.Mutex
	tx     Tx
	state  State
	logger logger.Logger
}

type options struct {
	txOptions *sql.TxOptions
	logger    logger.Logger
}

// Option configures a Scope.
type Option func(*options)

// WithTxOptions sets the isolation level and read-only flag used by Begin.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(o *options) { o.txOptions = opts }
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.NewConsoleLogger(logger.LevelNone)
	}
	return o
}

// Begin acquires a scope over a new transaction.
//
// The transaction is started on a context detached from ctx's cancellation:
// database/sql would otherwise roll back on cancel, and cancelling work
// inside a scope must leave it Open.
func Begin(ctx context.Context, db Beginner, opts ...Option) (*Scope, error) {
	if db == nil {
		return nil, errors.New("transaction: nil beginner")
	}

	o := buildOptions(opts)

	tx, err := db.BeginTx(context.WithoutCancel(ctx), o.txOptions)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}

	o.logger.Debug("scope opened")
	return &Scope{tx: &tx, logger: o.logger}, nil
}

// NewScope wraps an already started transaction in an Open scope.
func NewScope(tx Tx, opts ...Option) *Scope {
	o := buildOptions(opts)
	return &Scope{tx: tx, logger: o.logger}
}

// Tx returns the underlying transaction. For scopes acquired with Begin it
// is a *bun.Tx.
func (s *Scope) Tx() Tx {
	return s.tx
}

// State returns the current state.
func (s *Scope) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Commit persists the scope's effects and moves it to Committed.
//
// When the data store rejects the commit the transaction is rolled back, the
// scope becomes Abandoned and the returned error matches ErrCommitFailed as
// well as the driver error. Commit on a terminal scope returns
// ErrScopeClosed without touching the transaction.
//
// ctx is only checked before committing; an in-flight commit is not
// interrupted.
func (s *Scope) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Open {
		return errors.Wrapf(ErrScopeClosed, "commit in state %s", s.state)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.tx.Commit(); err != nil {
		s.state = Abandoned
		s.logger.Error("commit failed: %v", err)
		if rbErr := s.tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback after failed commit: %v", rbErr)
		}
		return errors.Mark(errors.Wrap(err, "commit"), ErrCommitFailed)
	}

	s.state = Committed
	s.logger.Debug("scope committed")
	return nil
}

// Close releases the scope. An Open scope is rolled back and becomes
// Abandoned; a terminal scope is left as is. Close is idempotent and is
// meant to be deferred right after acquisition.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Open {
		return nil
	}

	s.state = Abandoned
	s.logger.Debug("scope abandoned, rolling back")
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errors.Wrap(err, "rollback")
	}
	return nil
}

// Run acquires a scope, passes it to fn and always releases it. Commit stays
// explicit: fn must call scope.Commit for its effects to persist.
func Run(ctx context.Context, db Beginner, fn func(ctx context.Context, scope *Scope) error, opts ...Option) (err error) {
	scope, err := Begin(ctx, db, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := scope.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(ctx, scope)
}
